package facility

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SpecializationRef is the slice of the specialization catalog the service
// needs to seed locked departments.
type SpecializationRef struct {
	ID   int
	Name string
}

// CatalogSource supplies catalog lookups without binding this package to the
// catalog domain.
type CatalogSource interface {
	ListSpecializations(ctx context.Context) ([]SpecializationRef, error)
	WardTypeName(ctx context.Context, id int) (string, error)
}

// Session is one wizard run: a single mutator working on a single aggregate.
type Session struct {
	ID         string    `json:"id"`
	EditWardID string    `json:"edit_ward_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`

	store *Store
}

// Store exposes the session's aggregate.
func (s *Session) Store() *Store { return s.store }

// SaveSummary is the review-cache entry written on each successful save.
type SaveSummary struct {
	SessionID   string                  `json:"session_id"`
	SavedAt     time.Time               `json:"saved_at"`
	Departments int                     `json:"departments"`
	Wards       int                     `json:"wards"`
	Rooms       int                     `json:"rooms"`
	Beds        BedTally                `json:"beds"`
	Payload     []SpecializationPayload `json:"payload"`
	Result      *SaveResult             `json:"result"`
}

// Service owns the session registry and routes every wizard operation to the
// right aggregate. It is the only writer of the summary review cache.
type Service struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	summaries []*SaveSummary

	repo    Repository
	catalog CatalogSource
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

func NewService(repo Repository, catalog CatalogSource, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{
		sessions: make(map[string]*Session),
		repo:     repo,
		catalog:  catalog,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// CreateSession opens a wizard session. With seed set, locked departments
// are installed from the specialization catalog before the session is
// handed out.
func (s *Service) CreateSession(ctx context.Context, seed bool) (*Session, error) {
	store := NewStore()
	if seed {
		specs, err := s.catalog.ListSpecializations(ctx)
		if err != nil {
			return nil, fmt.Errorf("seed departments: %w", err)
		}
		for _, sp := range specs {
			store.SeedDepartment(sp.Name, sp.ID)
		}
	}

	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastActive: now,
		store:      store,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Info().Str("session_id", sess.ID).Bool("seeded", seed).Msg("session created")
	return sess, nil
}

// Session looks up a live session and refreshes its idle clock.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	sess.LastActive = s.now()
	return sess, nil
}

// DeleteSession discards a session and its aggregate. Summaries survive.
func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// LoadForEdit fetches the nested ward record and replaces the session's
// aggregate with the imported form.
func (s *Service) LoadForEdit(ctx context.Context, sessionID, wardID string) (*Session, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if wardID == "" {
		return nil, fmt.Errorf("%w: ward id is required", ErrValidation)
	}

	rec, err := s.repo.FetchWardRecord(ctx, wardID)
	if err != nil {
		return nil, fmt.Errorf("fetch ward record %s: %w", wardID, err)
	}

	s.mu.Lock()
	sess.store = ImportWardRecord(rec)
	sess.EditWardID = wardID
	s.mu.Unlock()

	s.log.Info().Str("session_id", sessionID).Str("ward_id", wardID).Msg("ward record loaded for edit")
	return sess, nil
}

// AddWard resolves the ward type's display name from the catalog before
// delegating to the aggregate. An unknown type still gets a ward; the name
// just falls back to the generic form.
func (s *Service) AddWard(ctx context.Context, sessionID string, wardTypeID int, departmentID string) (*Ward, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	typeName, err := s.catalog.WardTypeName(ctx, wardTypeID)
	if err != nil {
		typeName = ""
	}
	return sess.store.AddWard(wardTypeID, typeName, departmentID)
}

// Save serializes the session's aggregate and persists it department by
// department, then records the summary in the review cache. The summary for
// a session is replaced on re-save, not appended twice.
func (s *Service) Save(ctx context.Context, sessionID string) (*SaveResult, *SaveSummary, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}

	saver := NewSaver(s.repo, s.log)
	result, err := saver.Save(ctx, sess.store)
	if err != nil {
		return result, nil, err
	}

	view := sess.store.Snapshot()
	summary := &SaveSummary{
		SessionID:   sessionID,
		SavedAt:     s.now(),
		Departments: len(view.Departments),
		Wards:       len(view.Wards),
		Rooms:       len(view.Rooms),
		Beds:        sess.store.CountBeds(),
		Payload:     sess.store.ExportForSave(),
		Result:      result,
	}

	s.mu.Lock()
	replaced := false
	for i, existing := range s.summaries {
		if existing.SessionID == sessionID {
			s.summaries[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		s.summaries = append(s.summaries, summary)
	}
	s.mu.Unlock()

	return result, summary, nil
}

// Summaries returns the review cache in save order.
func (s *Service) Summaries() []*SaveSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SaveSummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// SummaryForSession returns the latest summary recorded for a session.
func (s *Service) SummaryForSession(sessionID string) (*SaveSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sum := range s.summaries {
		if sum.SessionID == sessionID {
			return sum, nil
		}
	}
	return nil, fmt.Errorf("%w: no summary for session %s", ErrNotFound, sessionID)
}

// PruneIdleSessions drops sessions idle past the TTL and returns how many
// were removed. A zero TTL disables pruning.
func (s *Service) PruneIdleSessions() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	pruned := 0
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			pruned++
		}
	}
	if pruned > 0 {
		s.log.Info().Int("pruned", pruned).Msg("idle sessions discarded")
	}
	return pruned
}

// StartSessionReaper prunes idle sessions on a fixed interval until ctx is
// cancelled.
func (s *Service) StartSessionReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PruneIdleSessions()
		}
	}
}
