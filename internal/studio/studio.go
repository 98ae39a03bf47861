package studio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"adprint/internal/domain"
	"adprint/internal/infra"
	"adprint/internal/metrics"
)

var ErrAdNotFound = errors.New("ad not found")

// Generator produces ad concepts and renders their images.
type Generator interface {
	GenerateIdeas(ctx context.Context, spec domain.AdSpec) ([]domain.GeneratedAdIdea, error)
	GenerateImage(ctx context.Context, prompt string, ratio domain.AspectRatio) (domain.Image, error)
}

// Quota is the free-tier counter shared by every session.
type Quota interface {
	HasQuota() bool
	Remaining() int
	Ceiling() int
	Increment(ctx context.Context) int
}

type Options struct {
	Generator Generator
	Quota     Quota
	Logger    infra.Logger
	// RenderConcurrency caps parallel image renders per run; 0 means unlimited.
	RenderConcurrency int
	Now               func() time.Time
}

// Studio owns every browser session and drives each one through
// landing, creating, loading and results.
type Studio struct {
	gen    Generator
	quota  Quota
	logger infra.Logger
	limit  int
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	runs     sync.WaitGroup
}

func New(opts Options) *Studio {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Studio{
		gen:      opts.Generator,
		quota:    opts.Quota,
		logger:   opts.Logger,
		limit:    max(opts.RenderConcurrency, 0),
		now:      now,
		sessions: make(map[string]*session),
	}
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string { return uuid.NewString() }

// Snapshot returns the session's current view, creating the session on
// first use.
func (s *Studio) Snapshot(id string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.sessionLocked(id))
}

// StartCreating moves landing to creating. Without quota the sign-up modal
// opens instead and ErrQuotaExceeded is returned.
func (s *Studio) StartCreating(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(id)
	if sess.state != StateLanding {
		return s.snapshotLocked(sess), domain.ErrInvalidTransition
	}
	if !s.quota.HasQuota() {
		sess.signupOpen = true
		metrics.RecordQuotaRejection()
		return s.snapshotLocked(sess), domain.ErrQuotaExceeded
	}
	sess.state = StateCreating
	return s.snapshotLocked(sess), nil
}

// SaveDraft keeps the raw form values so the form can be re-rendered after
// a validation or generation failure.
func (s *Studio) SaveDraft(id string, form domain.SpecForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(id)
	if sess.state != StateCreating {
		return domain.ErrInvalidTransition
	}
	sess.draft = form
	return nil
}

// Submit moves creating to loading and starts the run in the background.
// The run outlives the calling request.
func (s *Studio) Submit(ctx context.Context, id string, spec domain.AdSpec) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(id)
	if sess.state != StateCreating {
		return s.snapshotLocked(sess), domain.ErrInvalidTransition
	}
	// Any submission attempt dismisses the previous banner.
	sess.errMsg = ""
	if !s.quota.HasQuota() {
		sess.signupOpen = true
		metrics.RecordQuotaRejection()
		return s.snapshotLocked(sess), domain.ErrQuotaExceeded
	}

	runID := uuid.NewString()
	sess.state = StateLoading
	sess.ads = nil
	sess.runID = runID
	sess.runStarted = s.now()

	s.logger.Info().
		Str("session", id).
		Str("run", runID).
		Str("brand", spec.BrandName).
		Int("ideas", spec.IdeaCount()).
		Int("ratios", len(spec.AspectRatios)).
		Msg("generation run started")

	s.runs.Add(1)
	go s.run(context.WithoutCancel(ctx), id, runID, spec.Clone())
	return s.snapshotLocked(sess), nil
}

// CreateMore moves results back to creating.
func (s *Studio) CreateMore(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(id)
	if sess.state != StateResults {
		return s.snapshotLocked(sess), domain.ErrInvalidTransition
	}
	sess.state = StateCreating
	sess.ads = nil
	return s.snapshotLocked(sess), nil
}

func (s *Studio) OpenSignup(id string) Snapshot  { return s.setSignup(id, true) }
func (s *Studio) CloseSignup(id string) Snapshot { return s.setSignup(id, false) }

func (s *Studio) setSignup(id string, open bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(id)
	sess.signupOpen = open
	return s.snapshotLocked(sess)
}

// Ad returns one delivered ad without creating a session.
func (s *Studio) Ad(id string, index int) (domain.GeneratedAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.GeneratedAd{}, domain.ErrSessionNotFound
	}
	if sess.state != StateResults || index < 0 || index >= len(sess.ads) {
		return domain.GeneratedAd{}, ErrAdNotFound
	}
	sess.lastActivity = s.now()
	return sess.ads[index], nil
}

// Prune drops sessions idle for longer than ttl. Sessions with a run in
// flight are kept.
func (s *Studio) Prune(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.state == StateLoading || sess.lastActivity.After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Wait blocks until every background run has settled.
func (s *Studio) Wait() { s.runs.Wait() }

func (s *Studio) sessionLocked(id string) *session {
	now := s.now()
	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession(id, now)
		s.sessions[id] = sess
	}
	sess.lastActivity = now
	return sess
}

func (s *Studio) snapshotLocked(sess *session) Snapshot {
	snap := sess.snapshot()
	snap.Remaining = s.quota.Remaining()
	snap.Ceiling = s.quota.Ceiling()
	return snap
}
