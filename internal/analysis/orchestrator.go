// internal/analysis/orchestrator.go
package analysis

import (
	"context"
	"errors"
	"log"
	"sync"

	"silicoshield/internal/models"
	"silicoshield/internal/store"
)

// ErrAnalysisInProgress is returned when a run is requested for a
// session whose batch is still being analyzed.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// Predictor is the slice of the prediction client the orchestrator
// needs.
type Predictor interface {
	Predict(ctx context.Context, filename string, data []byte, token string) (*models.AnalysisResult, error)
}

// Failure reports one image whose analysis did not complete. The record
// is reverted to pending, so a re-trigger picks it up again.
type Failure struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// Report summarizes one orchestrator run.
type Report struct {
	Processed int       `json:"processed"`
	Completed int       `json:"completed"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Orchestrator drives pending images through analysis, strictly one
// prediction request in flight at a time. A batch-level flag per session
// spans the whole run; it does not track per-image status.
type Orchestrator struct {
	predictor Predictor

	mu     sync.Mutex
	active map[string]bool
}

// New creates an orchestrator backed by the given predictor.
func New(p Predictor) *Orchestrator {
	return &Orchestrator{predictor: p, active: make(map[string]bool)}
}

// Active reports whether a run is in progress for the session.
func (o *Orchestrator) Active(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active[sessionID]
}

// Run analyzes the images that are pending at the moment of invocation,
// sequentially. Images added after the snapshot are not part of this
// run. One image's failure never aborts the batch: the image reverts to
// pending, the failure is recorded, and the next image is processed.
// A second Run for the same session while one is active returns
// ErrAnalysisInProgress.
func (o *Orchestrator) Run(ctx context.Context, st *store.Store, sessionID, token string) (*Report, error) {
	o.mu.Lock()
	if o.active[sessionID] {
		o.mu.Unlock()
		return nil, ErrAnalysisInProgress
	}
	o.active[sessionID] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.active, sessionID)
		o.mu.Unlock()
	}()

	var pending []*models.UploadedImage
	for _, img := range st.Images() {
		if img.Status == models.StatusPending {
			pending = append(pending, img)
		}
	}

	report := &Report{}
	for _, img := range pending {
		report.Processed++

		st.Update(withStatus(img, models.StatusAnalyzing, nil))

		result, err := o.predictor.Predict(ctx, img.Filename, img.Data, token)
		if err != nil {
			// Revert to pending so the image is eligible on the next
			// run. No automatic retry.
			st.Update(withStatus(img, models.StatusPending, nil))
			log.Printf("analysis failed for %s: %v", img.Filename, err)
			report.Failures = append(report.Failures, Failure{
				ID:       img.ID,
				Filename: img.Filename,
				Message:  err.Error(),
			})
			continue
		}

		st.Update(withStatus(img, models.StatusCompleted, result))
		report.Completed++
	}

	return report, nil
}

// withStatus clones the record with a new status and result, keeping
// identity so the store's replace-by-id applies it.
func withStatus(img *models.UploadedImage, status models.ImageStatus, result *models.AnalysisResult) *models.UploadedImage {
	updated := *img
	updated.Status = status
	updated.Result = result
	return &updated
}
