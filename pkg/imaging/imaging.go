// pkg/imaging/imaging.go
package imaging

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DetectContentType sniffs the content type from the first 512 bytes,
// the same way the stdlib serves files.
func DetectContentType(data []byte) string {
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}

// IsImage reports whether the sniffed content type is an image type.
func IsImage(data []byte) bool {
	return strings.HasPrefix(DetectContentType(data), "image/")
}

// ValidateImage checks that data holds a displayable image.
func ValidateImage(data []byte) error {
	ct := DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("invalid file type: %s", ct)
	}
	return nil
}

// Preview is a displayable handle over an uploaded image's bytes, backed
// by a temp file. It must be released when the owning record is
// discarded; Release is idempotent.
type Preview struct {
	path     string
	release  sync.Once
	mu       sync.Mutex
	released bool
}

// NewPreview materializes data into a temp file and returns its handle.
func NewPreview(data []byte, filename string) (*Preview, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".img"
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("preview_%s%s", uuid.New().String(), ext))

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write preview file: %w", err)
	}
	return &Preview{path: path}, nil
}

// Path returns the preview file path, or "" after release.
func (p *Preview) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return ""
	}
	return p.path
}

// Released reports whether the handle has been released.
func (p *Preview) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// Release removes the backing file. Only the first call has effect.
func (p *Preview) Release() {
	p.release.Do(func() {
		p.mu.Lock()
		p.released = true
		p.mu.Unlock()
		os.Remove(p.path)
	})
}
