// Package upload handles listing images: storing them and tracking the
// per-file upload slots shown while a listing is being created.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Slot is one selected file. URL is set once its upload completes.
type Slot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Loading bool   `json:"loading"`
}

// Tray holds upload slots for one listing form. Slots are transient: only
// the resulting URLs end up in the listing.
type Tray struct {
	uploader Uploader
	logger   *slog.Logger

	// batchMu keeps uploads strictly sequential across batches.
	batchMu sync.Mutex

	mu        sync.Mutex
	slots     []Slot
	listeners []func([]Slot)
}

func NewTray(uploader Uploader, logger *slog.Logger) *Tray {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tray{uploader: uploader, logger: logger}
}

// OnChange registers fn for every change to the slot list.
func (t *Tray) OnChange(fn func([]Slot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Add creates a loading slot per file right away, then uploads the files
// one at a time in order. A failed upload removes its slot; the failures
// are returned joined for the caller to report.
func (t *Tray) Add(ctx context.Context, files []File) error {
	if len(files) == 0 {
		return nil
	}
	ids := make([]string, len(files))
	t.mu.Lock()
	for i, f := range files {
		ids[i] = uuid.NewString()
		t.slots = append(t.slots, Slot{ID: ids[i], Name: f.Name, Loading: true})
	}
	t.mu.Unlock()
	t.changed()

	t.batchMu.Lock()
	defer t.batchMu.Unlock()

	var errs []error
	for i, f := range files {
		url, err := t.uploader.Upload(ctx, f)
		if err != nil {
			t.logger.Error("image upload failed", "file", f.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			t.Remove(ids[i])
			continue
		}
		t.complete(ids[i], url)
	}
	return errors.Join(errs...)
}

func (t *Tray) complete(id, url string) {
	t.mu.Lock()
	found := false
	for i := range t.slots {
		if t.slots[i].ID == id {
			t.slots[i].URL = url
			t.slots[i].Loading = false
			found = true
			break
		}
	}
	t.mu.Unlock()
	// A slot removed mid-upload stays removed.
	if found {
		t.changed()
	}
}

// Remove deletes a slot. It reports whether the slot existed.
func (t *Tray) Remove(id string) bool {
	t.mu.Lock()
	removed := false
	for i := range t.slots {
		if t.slots[i].ID == id {
			t.slots = append(t.slots[:i], t.slots[i+1:]...)
			removed = true
			break
		}
	}
	t.mu.Unlock()
	if removed {
		t.changed()
	}
	return removed
}

// Reset discards every slot, e.g. after the listing was submitted.
func (t *Tray) Reset() {
	t.mu.Lock()
	t.slots = nil
	t.mu.Unlock()
	t.changed()
}

func (t *Tray) Slots() []Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Slot(nil), t.slots...)
}

// URLs returns the URLs of completed uploads in slot order.
func (t *Tray) URLs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	urls := make([]string, 0, len(t.slots))
	for _, s := range t.slots {
		if !s.Loading && s.URL != "" {
			urls = append(urls, s.URL)
		}
	}
	return urls
}

// Pending reports whether any upload is still running.
func (t *Tray) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.slots {
		if s.Loading {
			return true
		}
	}
	return false
}

func (t *Tray) changed() {
	t.mu.Lock()
	snapshot := append([]Slot(nil), t.slots...)
	listeners := append(([]func([]Slot))(nil), t.listeners...)
	t.mu.Unlock()
	for _, fn := range listeners {
		fn(snapshot)
	}
}
