// internal/handlers/health.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"silicoshield/internal/prediction"
)

// Health reports the gateway's own status and whether the prediction
// service is reachable.
func Health(client *prediction.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		upstream := "ok"
		if err := client.Health(c.Request.Context()); err != nil {
			upstream = err.Error()
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "silicoshield-gateway",
			"upstream": upstream,
		})
	}
}
