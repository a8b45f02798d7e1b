// Package intake holds the server-side state of open case intake forms.
package intake

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"caseintake/internal/apiclient"
	"caseintake/internal/models"
	"caseintake/internal/upload"
)

var (
	ErrSessionNotFound = errors.New("intake session not found")
	ErrDraftNotFound   = errors.New("draft not found")
)

// PatientStore is the patients API as used by the form.
type PatientStore interface {
	CreatePatient(ctx context.Context, token string, rec models.PatientCaseRecord) (apiclient.Created, error)
	UpdatePatient(ctx context.Context, token, id string, rec models.PatientCaseRecord) error
	GetPatient(ctx context.Context, token, id string) (json.RawMessage, error)
}

// DraftStore keeps session checkpoints. FindDraft returns ErrDraftNotFound
// for an unknown session.
type DraftStore interface {
	SaveDraft(ctx context.Context, d models.Draft) error
	FindDraft(ctx context.Context, sessionID string) (models.Draft, error)
	DeleteDraft(ctx context.Context, sessionID string) error
}

// Manager keeps the open intake sessions.
type Manager struct {
	patients     PatientStore
	categories   CategorySource
	pipeline     *upload.Pipeline
	drafts       DraftStore
	logger       zerolog.Logger
	now          func() time.Time
	newID        func() string
	fetchTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

type ManagerOption func(*Manager)

// WithDrafts checkpoints sessions to store.
func WithDrafts(store DraftStore) ManagerOption {
	return func(m *Manager) { m.drafts = store }
}

func WithSessionClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func WithSessionIDs(f func() string) ManagerOption {
	return func(m *Manager) { m.newID = f }
}

func WithFetchTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.fetchTimeout = d }
}

func NewManager(patients PatientStore, categories CategorySource, pipeline *upload.Pipeline, logger zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		patients:     patients,
		categories:   categories,
		pipeline:     pipeline,
		logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
		fetchTimeout: 30 * time.Second,
		sessions:     map[string]*Session{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ownerOf identifies the caller behind token without keeping the token.
func ownerOf(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func sameOwner(owner, token string) bool {
	return subtle.ConstantTimeCompare([]byte(owner), []byte(ownerOf(token))) == 1
}

// Create opens a session. With a patientID the stored case is loaded into
// the form and its files into the slots.
func (m *Manager) Create(ctx context.Context, token, patientID string) (*Session, error) {
	s := newSession(m, m.newID(), ownerOf(token))
	if patientID != "" {
		if err := s.load(ctx, token, patientID); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	s.checkpoint(ctx)
	s.refreshCategories(token)
	s.logger.Info().Str("patient", patientID).Msg("session opened")
	return s, nil
}

func (s *Session) load(ctx context.Context, token, patientID string) error {
	raw, err := s.m.patients.GetPatient(ctx, token, patientID)
	if err != nil {
		return errors.Wrapf(err, "loading patient %s", patientID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.agg.Merge(raw); err != nil {
		return err
	}
	if s.agg.ID() == "" {
		s.agg.SetIdentity(patientID, "")
	}
	s.slots.SeedFiles(s.agg.record.Files)
	return nil
}

// Get returns an open session. A session that is not in memory is rebuilt
// from its checkpoint. Sessions opened with another token are not found.
func (m *Manager) Get(ctx context.Context, token, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		if !sameOwner(s.owner, token) {
			return nil, errors.Wrap(ErrSessionNotFound, id)
		}
		return s, nil
	}
	if m.drafts == nil {
		return nil, errors.Wrap(ErrSessionNotFound, id)
	}

	d, err := m.drafts.FindDraft(ctx, id)
	if errors.Is(err, ErrDraftNotFound) {
		return nil, errors.Wrap(ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if !sameOwner(d.Owner, token) {
		return nil, errors.Wrap(ErrSessionNotFound, id)
	}

	s = newSession(m, id, d.Owner)
	if d.PatientID != "" {
		if err := s.load(ctx, token, d.PatientID); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	if d.CaseID != "" {
		s.agg.SetIdentity(s.agg.ID(), d.CaseID)
	}
	s.tabs.restore(Tab(d.Tab))
	s.mu.Unlock()
	s.slots.Restore(d.Slots)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		if !sameOwner(existing.owner, token) {
			return nil, errors.Wrap(ErrSessionNotFound, id)
		}
		return existing, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()

	s.refreshCategories(token)
	s.logger.Info().Msg("session restored from draft")
	return s, nil
}

// Drop closes a session and removes its checkpoint. Stored files stay where
// they are.
func (m *Manager) Drop(ctx context.Context, token, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && !sameOwner(s.owner, token) {
		m.mu.Unlock()
		return errors.Wrap(ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.drafts == nil {
		if !ok {
			return errors.Wrap(ErrSessionNotFound, id)
		}
		return nil
	}
	if !ok {
		d, err := m.drafts.FindDraft(ctx, id)
		if errors.Is(err, ErrDraftNotFound) {
			return errors.Wrap(ErrSessionNotFound, id)
		}
		if err != nil {
			return err
		}
		if !sameOwner(d.Owner, token) {
			return errors.Wrap(ErrSessionNotFound, id)
		}
	}
	if err := m.drafts.DeleteDraft(ctx, id); err != nil && !errors.Is(err, ErrDraftNotFound) {
		return err
	}
	return nil
}

// Wait blocks until background category fetches have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// MemoryDrafts is a DraftStore that lives in process memory.
type MemoryDrafts struct {
	mu     sync.Mutex
	drafts map[string]models.Draft
}

func NewMemoryDrafts() *MemoryDrafts {
	return &MemoryDrafts{drafts: map[string]models.Draft{}}
}

func (d *MemoryDrafts) SaveDraft(_ context.Context, draft models.Draft) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	draft.Slots = append([]models.UploadSlot(nil), draft.Slots...)
	d.drafts[draft.SessionID] = draft
	return nil
}

func (d *MemoryDrafts) FindDraft(_ context.Context, sessionID string) (models.Draft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	draft, ok := d.drafts[sessionID]
	if !ok {
		return models.Draft{}, ErrDraftNotFound
	}
	return draft, nil
}

func (d *MemoryDrafts) DeleteDraft(_ context.Context, sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.drafts[sessionID]; !ok {
		return ErrDraftNotFound
	}
	delete(d.drafts, sessionID)
	return nil
}
