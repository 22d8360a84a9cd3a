// internal/handlers/auth.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"silicoshield/internal/auth"
	"silicoshield/internal/middleware"
	"silicoshield/internal/store"
)

type GateRequest struct {
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Gate verifies the shared access password. Success persists the
// session's authenticated flag; anything else leaves the session
// unauthenticated and surfaces an inline error.
func Gate(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if !gate.Verify(req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect password"})
			return
		}

		session := sessions.Default(c)
		session.Set(middleware.KeyAuthenticated, true)
		if err := session.Save(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"authenticated": true})
	}
}

// Login exchanges email and password for a bearer token with the
// upstream auth service and stores both in the session.
func Login(client *auth.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		token, err := client.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "Login failed. Please try again."})
			return
		}

		session := sessions.Default(c)
		session.Set(middleware.KeyAuthenticated, true)
		session.Set(middleware.KeyEmail, req.Email)
		session.Set(middleware.KeyToken, token)
		if err := session.Save(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"authenticated": true,
			"email":         req.Email,
			"token":         token,
		})
	}
}

// Logout clears the session and drops the session's image store,
// releasing any preview handles it still owns.
func Logout(manager *store.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if sid, ok := session.Get(middleware.KeySessionID).(string); ok && sid != "" {
			manager.Drop(sid)
		}
		session.Clear()
		session.Save()

		c.JSON(http.StatusOK, gin.H{"authenticated": false})
	}
}

// Session reports the current authentication state, read once by the
// client on startup.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		authenticated, _ := session.Get(middleware.KeyAuthenticated).(bool)
		email, _ := session.Get(middleware.KeyEmail).(string)

		c.JSON(http.StatusOK, gin.H{
			"authenticated": authenticated,
			"email":         email,
		})
	}
}
