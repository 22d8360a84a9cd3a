// internal/middleware/middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Session keys. The cookie has no MaxAge, so everything here dies with
// the browsing session.
const (
	KeyAuthenticated = "authenticated"
	KeyEmail         = "email"
	KeyToken         = "token"
	KeySessionID     = "sid"
)

// CORSMiddleware allows the browser client to talk to the gateway.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", c.GetHeader("Origin"))
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// AuthMiddleware blocks access until the session has passed the gate or
// the login. There are no intermediate states: a request is either
// authenticated or rejected.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if auth, ok := session.Get(KeyAuthenticated).(bool); !ok || !auth {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// SessionID returns the stable id of the current session, assigning one
// on first use. Per-session image stores and the location cache key off
// this value.
func SessionID(c *gin.Context) string {
	session := sessions.Default(c)
	if sid, ok := session.Get(KeySessionID).(string); ok && sid != "" {
		return sid
	}
	sid := uuid.New().String()
	session.Set(KeySessionID, sid)
	session.Save()
	return sid
}
