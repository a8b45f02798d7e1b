// Package slots keeps the per-slot upload state of one intake form.
package slots

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"caseintake/internal/models"
)

var (
	ErrInvalidSlot = errors.New("invalid slot index")
	ErrSlotBusy    = errors.New("an upload is already in progress for this slot")
	ErrSlotEmpty   = errors.New("slot has no uploaded file")
	ErrSlotInUse   = errors.New("slot already holds a file, delete it first")
)

// Registry holds the fixed set of upload slots. It is safe for concurrent use;
// each slot is mutated independently of the others.
type Registry struct {
	mu    sync.RWMutex
	slots [models.SlotCount]models.UploadSlot
}

// NewRegistry returns a registry with every slot empty.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.slots {
		r.slots[i] = emptySlot(i)
	}
	return r
}

func emptySlot(i int) models.UploadSlot {
	return models.UploadSlot{
		Index: i,
		Key:   models.SlotKey(i),
		Kind:  models.KindOf(i),
	}
}

func (r *Registry) Get(i int) (models.UploadSlot, error) {
	if !models.ValidSlot(i) {
		return models.UploadSlot{}, errors.Wrapf(ErrInvalidSlot, "slot %d", i)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slots[i], nil
}

// Snapshot returns a copy of all slots in index order.
func (r *Registry) Snapshot() []models.UploadSlot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.UploadSlot, len(r.slots))
	copy(out, r.slots[:])
	return out
}

// Begin claims an empty slot i for a transfer, with progress at zero.
func (r *Registry) Begin(i int) error {
	if !models.ValidSlot(i) {
		return errors.Wrapf(ErrInvalidSlot, "slot %d", i)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[i].InFlight {
		return errors.Wrapf(ErrSlotBusy, "slot %d", i)
	}
	if !r.slots[i].Empty() {
		return errors.Wrapf(ErrSlotInUse, "slot %d", i)
	}
	r.slots[i].InFlight = true
	r.slots[i].Progress = 0
	return nil
}

// SetProgress records transfer progress for an in-flight slot. Values are
// clamped to [0, 100] and never move backwards. It returns the stored value
// and whether it changed.
func (r *Registry) SetProgress(i int, pct float64) (float64, bool) {
	if !models.ValidSlot(i) {
		return 0, false
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &r.slots[i]
	if !s.InFlight || pct <= s.Progress {
		return s.Progress, false
	}
	s.Progress = pct
	return s.Progress, true
}

// Complete stores the result of a finished transfer.
func (r *Registry) Complete(i int, url, key string, at time.Time) error {
	if !models.ValidSlot(i) {
		return errors.Wrapf(ErrInvalidSlot, "slot %d", i)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &r.slots[i]
	s.RemoteURL = url
	s.StorageKey = key
	s.Progress = 100
	s.InFlight = false
	s.UploadedAt = &at
	return nil
}

// Fail ends a transfer without a result. Progress goes back to zero.
func (r *Registry) Fail(i int) {
	if !models.ValidSlot(i) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[i].Progress = 0
	r.slots[i].InFlight = false
}

// Clear empties slot i.
func (r *Registry) Clear(i int) error {
	if !models.ValidSlot(i) {
		return errors.Wrapf(ErrInvalidSlot, "slot %d", i)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[i] = emptySlot(i)
	return nil
}

// Seed fills slot i from a previously stored file. In-flight slots are left alone.
func (r *Registry) Seed(i int, url, key string, at time.Time) {
	if !models.ValidSlot(i) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &r.slots[i]
	if s.InFlight {
		return
	}
	s.RemoteURL = url
	s.StorageKey = key
	s.UploadedAt = nil
	if url != "" || key != "" {
		s.Progress = 100
		if !at.IsZero() {
			s.UploadedAt = &at
		}
	} else {
		s.Progress = 0
	}
}

// Restore replaces the registry contents from a checkpoint. Transfers that
// were running when the checkpoint was taken are dropped.
func (r *Registry) Restore(saved []models.UploadSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range saved {
		if !models.ValidSlot(s.Index) {
			continue
		}
		restored := emptySlot(s.Index)
		if !s.InFlight {
			restored.RemoteURL = s.RemoteURL
			restored.StorageKey = s.StorageKey
			restored.UploadedAt = s.UploadedAt
			if !restored.Empty() {
				restored.Progress = 100
			}
		}
		r.slots[s.Index] = restored
	}
}

// Files assembles the files sub-document from the populated slots.
func (r *Registry) Files() models.CaseFiles {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var files models.CaseFiles
	for i, s := range r.slots {
		if s.Empty() {
			files.Set(i, nil)
			continue
		}
		e := models.FileEntry{FileURL: s.RemoteURL, FileKey: s.StorageKey}
		if s.UploadedAt != nil {
			e.UploadedAt = *s.UploadedAt
		}
		files.Set(i, &e)
	}
	return files
}

// SeedFiles fills the registry from a stored files sub-document.
func (r *Registry) SeedFiles(files models.CaseFiles) {
	for i := range files {
		e, ok := files.Entry(i)
		if !ok {
			r.Seed(i, "", "", time.Time{})
			continue
		}
		r.Seed(i, e.FileURL, e.FileKey, e.UploadedAt)
	}
}
