package studio

import (
	"slices"
	"time"

	"adprint/internal/domain"
)

// State is the view a session is currently on.
type State string

const (
	StateLanding  State = "landing"
	StateCreating State = "creating"
	StateLoading  State = "loading"
	StateResults  State = "results"
)

type session struct {
	id           string
	state        State
	ads          []domain.GeneratedAd
	errMsg       string
	signupOpen   bool
	draft        domain.SpecForm
	runID        string
	runStarted   time.Time
	lastActivity time.Time
}

func newSession(id string, now time.Time) *session {
	return &session{
		id:           id,
		state:        StateLanding,
		draft:        domain.DefaultSpecForm(),
		lastActivity: now,
	}
}

// Snapshot is a read-only copy of one session plus the shared quota, which
// is everything a view needs to render.
type Snapshot struct {
	SessionID  string
	State      State
	Ads        []domain.GeneratedAd
	Error      string
	SignupOpen bool
	Draft      domain.SpecForm
	RunStarted time.Time
	Remaining  int
	Ceiling    int
}

// HasQuota reports whether another creation is allowed.
func (s Snapshot) HasQuota() bool { return s.Remaining > 0 }

func (s *session) snapshot() Snapshot {
	draft := s.draft
	draft.AspectRatios = slices.Clone(s.draft.AspectRatios)
	return Snapshot{
		SessionID:  s.id,
		State:      s.state,
		Ads:        slices.Clone(s.ads),
		Error:      s.errMsg,
		SignupOpen: s.signupOpen,
		Draft:      draft,
		RunStarted: s.runStarted,
	}
}
