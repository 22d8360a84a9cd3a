// internal/handlers/hospitals.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"silicoshield/internal/geo"
	"silicoshield/internal/hospitals"
	"silicoshield/internal/middleware"
)

// Hospitals resolves the session's location (at most once per session)
// and returns nearby facilities. The client may pass lat/lon query
// parameters as a device fix; without them, and with both IP services
// failing, the list degrades to unlocalized labels rather than an error.
func Hospitals(resolver *geo.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var fix *geo.DeviceFix
		latStr, lonStr := c.Query("lat"), c.Query("lon")
		if latStr != "" && lonStr != "" {
			lat, errLat := strconv.ParseFloat(latStr, 64)
			lon, errLon := strconv.ParseFloat(lonStr, 64)
			if errLat == nil && errLon == nil {
				fix = &geo.DeviceFix{Latitude: lat, Longitude: lon, Timestamp: time.Now()}
			}
		}

		loc := resolver.Resolve(c.Request.Context(), middleware.SessionID(c), fix)

		c.JSON(http.StatusOK, gin.H{
			"location":  loc,
			"hospitals": hospitals.Nearby(loc),
		})
	}
}
