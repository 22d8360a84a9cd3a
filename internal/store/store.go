// internal/store/store.go
package store

import (
	"sync"

	"silicoshield/internal/models"
)

// View identifies which screen the client is on.
type View string

const (
	ViewHome    View = "home"
	ViewResults View = "results"
)

// Store owns the images of one session and the current view. All other
// components receive snapshots and request mutations through it; preview
// handles are released here and nowhere else.
type Store struct {
	mu     sync.Mutex
	images []*models.UploadedImage
	view   View
}

// New returns an empty store positioned on the landing view.
func New() *Store {
	return &Store{view: ViewHome}
}

// AddBatch appends new images in arrival order. Adding a non-empty batch
// while on the landing view switches to the results view; an empty batch
// changes nothing.
func (s *Store) AddBatch(batch []*models.UploadedImage) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, batch...)
	if s.view == ViewHome {
		s.view = ViewResults
	}
}

// Images returns a snapshot of the current records. The slice is a copy;
// callers must not mutate the records directly, and apply changes via
// Update instead.
func (s *Store) Images() []*models.UploadedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.UploadedImage, len(s.images))
	copy(out, s.images)
	return out
}

// Get returns the image with the given id, or nil.
func (s *Store) Get(id string) *models.UploadedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		if img.ID == id {
			return img
		}
	}
	return nil
}

// Update replaces the record with the same id. Updating an id that is no
// longer held is a no-op; an image removed while its analysis was in
// flight stays removed.
func (s *Store) Update(updated *models.UploadedImage) {
	if updated == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, img := range s.images {
		if img.ID == updated.ID {
			s.images[i] = updated
			return
		}
	}
}

// Remove drops the image with the given id and releases its preview
// handle. Removing an absent id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, img := range s.images {
		if img.ID == id {
			if img.Preview != nil {
				img.Preview.Release()
			}
			s.images = append(s.images[:i], s.images[i+1:]...)
			return
		}
	}
}

// Clear drops every image, releasing each preview handle.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		if img.Preview != nil {
			img.Preview.Release()
		}
	}
	s.images = nil
	s.view = ViewHome
}

// Count returns how many images are currently held.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// View returns the current view.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Navigate moves to the given view explicitly.
func (s *Store) Navigate(v View) {
	if v != ViewHome && v != ViewResults {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}
