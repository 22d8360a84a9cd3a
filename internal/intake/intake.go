// internal/intake/intake.go
package intake

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"silicoshield/internal/models"
	"silicoshield/pkg/imaging"
)

// File is one candidate upload, already read into memory.
type File struct {
	Name string
	Data []byte
}

// Process filters candidates to those whose content indicates an image
// and synthesizes a fresh pending record for each, preserving order.
// Non-image files are silently dropped. An empty accepted set yields nil
// with no side effects, so callers can batch one state update and one
// navigation decision per non-empty result.
func Process(files []File) ([]*models.UploadedImage, error) {
	var batch []*models.UploadedImage
	for _, f := range files {
		ct := imaging.DetectContentType(f.Data)
		if !imaging.IsImage(f.Data) {
			continue
		}

		preview, err := imaging.NewPreview(f.Data, f.Name)
		if err != nil {
			// Roll back previews already created for this batch.
			for _, img := range batch {
				img.Preview.Release()
			}
			return nil, fmt.Errorf("failed to create preview for %s: %w", f.Name, err)
		}

		batch = append(batch, &models.UploadedImage{
			ID:          uuid.New().String(),
			Filename:    f.Name,
			ContentType: ct,
			Size:        int64(len(f.Data)),
			Data:        f.Data,
			Preview:     preview,
			Status:      models.StatusPending,
			UploadedAt:  time.Now(),
		})
	}
	return batch, nil
}
