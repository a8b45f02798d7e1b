// Package upload moves files selected for an intake slot into object storage
// and records the outcome in the slot registry.
package upload

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"caseintake/internal/models"
	"caseintake/internal/slots"
	"caseintake/internal/storage"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"stl":  "model/stl",
	"ply":  "application/ply",
}

// Store is the object storage the pipeline writes to.
type Store interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// Observer receives the outcome of slot operations as they happen.
type Observer interface {
	OnProgress(slot int, percent float64)
	OnFailure(slot int, err error)
	OnComplete(slot int, url, key string)
	OnDeleted(slot int, err error)
}

// File is a file picked for a slot. Size may be zero when unknown, in which
// case progress jumps to 100 on completion.
type File struct {
	Name string
	Size int64
	Body io.Reader
}

type Pipeline struct {
	store    Store
	category string
	newID    func() string
	now      func() time.Time
	logger   zerolog.Logger
}

type Option func(*Pipeline)

// WithIDGenerator replaces the uuid used in storage keys.
func WithIDGenerator(f func() string) Option {
	return func(p *Pipeline) { p.newID = f }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New returns a pipeline storing objects under category/.
func New(store Store, category string, logger zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    store,
		category: strings.Trim(category, "/"),
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, `\`, "/"))
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(baseName(name)), "."))
}

// CheckFormat rejects file names whose extension the slot does not accept.
func CheckFormat(slot int, name string) error {
	if !models.ValidSlot(slot) {
		return errors.Wrapf(slots.ErrInvalidSlot, "slot %d", slot)
	}
	kind := models.KindOf(slot)
	accepted := models.AcceptedExtensions(kind)
	ext := extension(name)
	for _, a := range accepted {
		if ext == a {
			return nil
		}
	}
	return errors.Wrapf(ErrUnsupportedFormat, "%s slots accept %s files only",
		kind, strings.Join(accepted, ", "))
}

// StorageKey builds a unique object name: <category>/<uuid>-<original name>.
func (p *Pipeline) StorageKey(name string) string {
	return p.category + "/" + p.newID() + "-" + baseName(name)
}

// Upload validates f against the slot, streams it to storage and stores the
// resulting URL and key in reg. Nothing is sent to storage when the format is
// rejected or the slot is busy.
func (p *Pipeline) Upload(ctx context.Context, reg *slots.Registry, obs Observer, slot int, f File) (models.UploadSlot, error) {
	if err := CheckFormat(slot, f.Name); err != nil {
		obs.OnFailure(slot, err)
		return models.UploadSlot{}, err
	}
	if err := reg.Begin(slot); err != nil {
		obs.OnFailure(slot, err)
		return models.UploadSlot{}, err
	}

	key := p.StorageKey(f.Name)
	logger := p.logger.With().Int("slot", slot).Str("key", key).Int64("size", f.Size).Logger()
	logger.Debug().Msg("upload started")
	obs.OnProgress(slot, 0)

	body := &progressReader{
		r:     f.Body,
		total: f.Size,
		report: func(pct float64) {
			if v, changed := reg.SetProgress(slot, pct); changed {
				obs.OnProgress(slot, v)
			}
		},
	}
	if err := p.store.Upload(ctx, key, contentTypes[extension(f.Name)], body); err != nil {
		reg.Fail(slot)
		logger.Warn().Err(err).Msg("upload failed")
		obs.OnFailure(slot, err)
		return models.UploadSlot{}, err
	}

	url, err := p.store.URL(ctx, key)
	if err != nil {
		reg.Fail(slot)
		if derr := p.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			logger.Warn().Err(derr).Msg("failed to remove object without url")
		}
		logger.Warn().Err(err).Msg("upload failed resolving url")
		obs.OnFailure(slot, err)
		return models.UploadSlot{}, err
	}

	if v, changed := reg.SetProgress(slot, 100); changed {
		obs.OnProgress(slot, v)
	}
	if err := reg.Complete(slot, url, key, p.now()); err != nil {
		return models.UploadSlot{}, err
	}
	logger.Info().Msg("upload complete")
	obs.OnComplete(slot, url, key)
	return reg.Get(slot)
}

// Delete removes the stored file of a slot. The slot is cleared only once
// storage confirms; an object that is already gone counts as deleted.
func (p *Pipeline) Delete(ctx context.Context, reg *slots.Registry, obs Observer, slot int) error {
	s, err := reg.Get(slot)
	if err != nil {
		obs.OnDeleted(slot, err)
		return err
	}
	switch {
	case s.InFlight:
		err = errors.Wrapf(slots.ErrSlotBusy, "slot %d", slot)
	case s.Empty():
		err = errors.Wrapf(slots.ErrSlotEmpty, "slot %d", slot)
	}
	if err != nil {
		obs.OnDeleted(slot, err)
		return err
	}

	if err := p.store.Delete(ctx, s.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		p.logger.Warn().Err(err).Int("slot", slot).Str("key", s.StorageKey).Msg("delete failed")
		obs.OnDeleted(slot, err)
		return err
	}
	if err := reg.Clear(slot); err != nil {
		return err
	}
	p.logger.Info().Int("slot", slot).Str("key", s.StorageKey).Msg("file deleted")
	obs.OnDeleted(slot, nil)
	return nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(pct float64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 && r.total > 0 {
		r.read += int64(n)
		r.report(float64(r.read) / float64(r.total) * 100)
	}
	return n, err
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnProgress(int, float64)        {}
func (NopObserver) OnFailure(int, error)           {}
func (NopObserver) OnComplete(int, string, string) {}
func (NopObserver) OnDeleted(int, error)           {}
