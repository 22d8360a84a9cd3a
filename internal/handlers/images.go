// internal/handlers/images.go
package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"silicoshield/internal/analysis"
	"silicoshield/internal/auth"
	"silicoshield/internal/intake"
	"silicoshield/internal/middleware"
	"silicoshield/internal/models"
	"silicoshield/internal/store"
)

// Upload accepts multipart uploads under the "images" field, filters
// them through intake, and adds the accepted batch to the session's
// store in one call. Non-image files are dropped without an error.
func Upload(manager *store.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
			return
		}

		headers := form.File["images"]
		if len(headers) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
			return
		}

		var files []intake.File
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
				return
			}
			files = append(files, intake.File{Name: fh.Filename, Data: data})
		}

		batch, err := intake.Process(files)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process upload"})
			return
		}

		st := manager.Get(middleware.SessionID(c))
		st.AddBatch(batch)

		c.JSON(http.StatusOK, gin.H{
			"accepted": len(batch),
			"skipped":  len(headers) - len(batch),
			"images":   batch,
			"view":     st.View(),
		})
	}
}

// List returns the session's images with the current view and counts.
func List(manager *store.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := manager.Get(middleware.SessionID(c))
		images := st.Images()

		pending, completed := 0, 0
		for _, img := range images {
			switch img.Status {
			case models.StatusPending:
				pending++
			case models.StatusCompleted:
				completed++
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"images":          images,
			"view":            st.View(),
			"pending_count":   pending,
			"completed_count": completed,
		})
	}
}

// Preview serves the preview file for one image.
func Preview(manager *store.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := manager.Get(middleware.SessionID(c))
		img := st.Get(c.Param("id"))
		if img == nil || img.Preview == nil || img.Preview.Released() {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		c.File(img.Preview.Path())
	}
}

// Remove drops one image unconditionally. An unknown id is a no-op,
// reported the same way.
func Remove(manager *store.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := manager.Get(middleware.SessionID(c))
		st.Remove(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"removed": c.Param("id")})
	}
}

// Analyze runs the orchestrator over the session's pending images. The
// call blocks until the batch finishes; failures name the affected files
// and those images are pending again, eligible for a re-trigger.
func Analyze(orch *analysis.Orchestrator, manager *store.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := middleware.SessionID(c)
		st := manager.Get(sid)

		token := ""
		if t, ok := sessions.Default(c).Get(middleware.KeyToken).(string); ok && auth.TokenUsable(t) {
			token = t
		}

		report, err := orch.Run(c.Request.Context(), st, sid, token)
		if err != nil {
			if errors.Is(err, analysis.ErrAnalysisInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": "Analysis already in progress"})
				return
			}
			log.Printf("analysis run failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

// Overview returns aggregate statistics over completed analyses.
func Overview(manager *store.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := manager.Get(middleware.SessionID(c))
		c.JSON(http.StatusOK, models.BuildOverview(st.Images()))
	}
}

type NavigateRequest struct {
	View store.View `json:"view" binding:"required"`
}

// Navigate moves the session to the requested view.
func Navigate(manager *store.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NavigateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		st := manager.Get(middleware.SessionID(c))
		st.Navigate(req.View)
		c.JSON(http.StatusOK, gin.H{"view": st.View()})
	}
}
