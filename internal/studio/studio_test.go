package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"adprint/internal/domain"
	"adprint/internal/quota"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeGenerator struct {
	mu          sync.Mutex
	ideas       func(spec domain.AdSpec) ([]domain.GeneratedAdIdea, error)
	image       func(ctx context.Context, prompt string, ratio domain.AspectRatio) (domain.Image, error)
	ideaCalls   int
	prompts     []string
	inflight    int
	maxInflight int
}

func ideasFor(n int) []domain.GeneratedAdIdea {
	out := make([]domain.GeneratedAdIdea, n)
	for i := range out {
		out[i] = domain.GeneratedAdIdea{
			Headline:    fmt.Sprintf("Headline %d", i),
			Subtext:     fmt.Sprintf("Subtext %d", i),
			ImagePrompt: fmt.Sprintf("scene %d", i),
		}
	}
	return out
}

func (f *fakeGenerator) GenerateIdeas(_ context.Context, spec domain.AdSpec) ([]domain.GeneratedAdIdea, error) {
	f.mu.Lock()
	f.ideaCalls++
	f.mu.Unlock()
	if f.ideas != nil {
		return f.ideas(spec)
	}
	return ideasFor(spec.IdeaCount()), nil
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt string, ratio domain.AspectRatio) (domain.Image, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.inflight++
	f.maxInflight = max(f.maxInflight, f.inflight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()
	if f.image != nil {
		return f.image(ctx, prompt, ratio)
	}
	return domain.Image{Data: []byte(prompt), MIMEType: "image/png"}, nil
}

type fixture struct {
	studio  *Studio
	gen     *fakeGenerator
	tracker *quota.Tracker
	store   *quota.MemoryStore
}

func newFixture(t *testing.T, used int, limit int) *fixture {
	t.Helper()
	store := quota.NewMemoryStore(used)
	tracker := quota.NewTracker(context.Background(), store, quota.DefaultCeiling, zerolog.Nop())
	gen := &fakeGenerator{}
	return &fixture{
		studio: New(Options{
			Generator:         gen,
			Quota:             tracker,
			Logger:            zerolog.Nop(),
			RenderConcurrency: limit,
		}),
		gen:     gen,
		tracker: tracker,
		store:   store,
	}
}

func lumaSpec() domain.AdSpec {
	return domain.AdSpec{
		ProductImage:     domain.Image{Data: []byte("png"), MIMEType: "image/png"},
		BrandName:        "Luma",
		AudienceAge:      domain.Audience20To35,
		AudienceLocation: domain.LocationBoth,
		BrandFeatures:    "Hand-poured soy candles",
		GenerationMode:   domain.ModeTwo,
		AspectRatios:     []domain.AspectRatio{domain.Ratio1x1, domain.Ratio16x9},
	}
}

// submitAndWait drives a session from landing through one finished run.
func (f *fixture) submitAndWait(t *testing.T, id string, spec domain.AdSpec) Snapshot {
	t.Helper()
	snap := f.studio.Snapshot(id)
	if snap.State == StateLanding {
		_, err := f.studio.StartCreating(id)
		require.NoError(t, err)
	}
	snap, err := f.studio.Submit(context.Background(), id, spec)
	require.NoError(t, err)
	require.Equal(t, StateLoading, snap.State)
	f.studio.Wait()
	return f.studio.Snapshot(id)
}

func TestLumaScenario(t *testing.T) {
	f := newFixture(t, 0, 0)

	snap := f.submitAndWait(t, "s1", lumaSpec())

	require.Equal(t, StateResults, snap.State)
	require.Empty(t, snap.Error)
	require.Len(t, snap.Ads, 4)
	assert.Equal(t, 1, f.tracker.Count())
	assert.Equal(t, 4, snap.Remaining)

	perRatio := map[domain.AspectRatio]int{}
	pairs := map[string]int{}
	for _, ad := range snap.Ads {
		perRatio[ad.AspectRatio]++
		pairs[ad.Headline+"|"+string(ad.AspectRatio)]++
		assert.Equal(t, ComposeImagePrompt(ad.ImagePrompt, ad.AspectRatio), string(ad.Image.Data))
	}
	assert.Equal(t, 2, perRatio[domain.Ratio1x1])
	assert.Equal(t, 2, perRatio[domain.Ratio16x9])
	assert.Len(t, pairs, 4, "every (idea, ratio) pair exactly once")
	assert.Contains(t, f.gen.prompts, "scene 0, aspect ratio 16:9")

	persisted, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, persisted)
}

func TestIdeaCountMatchesMode(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.gen.ideas = func(domain.AdSpec) ([]domain.GeneratedAdIdea, error) { return ideasFor(6), nil }

	spec := lumaSpec()
	spec.GenerationMode = domain.ModeFour
	spec.AspectRatios = []domain.AspectRatio{domain.RatioA4Portrait}
	snap := f.submitAndWait(t, "s1", spec)

	require.Equal(t, StateResults, snap.State)
	assert.Len(t, snap.Ads, 4, "surplus concepts are dropped")
}

func TestTooFewIdeasFailsRun(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.gen.ideas = func(domain.AdSpec) ([]domain.GeneratedAdIdea, error) { return ideasFor(1), nil }

	snap := f.submitAndWait(t, "s1", lumaSpec())

	assert.Equal(t, StateCreating, snap.State)
	assert.NotEmpty(t, snap.Error)
	assert.Empty(t, snap.Ads)
	assert.Equal(t, 0, f.tracker.Count())
}

func TestMalformedIdeasReturnToForm(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.gen.ideas = func(domain.AdSpec) ([]domain.GeneratedAdIdea, error) {
		return nil, &domain.GenerationError{Stage: domain.StageIdeas, Message: "The AI failed to generate valid ad concepts. Please try again."}
	}

	snap := f.submitAndWait(t, "s1", lumaSpec())

	assert.Equal(t, StateCreating, snap.State)
	assert.Equal(t, "The AI failed to generate valid ad concepts. Please try again.", snap.Error)
	assert.Equal(t, 2, f.tracker.Count())
	assert.Empty(t, f.gen.prompts, "no render may start before concepts succeed")
}

func TestAnyRenderFailureFailsRun(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.gen.image = func(ctx context.Context, prompt string, ratio domain.AspectRatio) (domain.Image, error) {
		if ratio == domain.Ratio16x9 && prompt == "scene 1, aspect ratio 16:9" {
			return domain.Image{}, errors.New("upstream 500")
		}
		return domain.Image{Data: []byte("ok")}, nil
	}

	snap := f.submitAndWait(t, "s1", lumaSpec())

	assert.Equal(t, StateCreating, snap.State)
	assert.Equal(t, "upstream 500", snap.Error)
	assert.Empty(t, snap.Ads, "no partial results")
	assert.Equal(t, 0, f.tracker.Count())
}

func TestEmptyImageCountsAsFailure(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.gen.image = func(context.Context, string, domain.AspectRatio) (domain.Image, error) {
		return domain.Image{}, nil
	}

	snap := f.submitAndWait(t, "s1", lumaSpec())

	assert.Equal(t, StateCreating, snap.State)
	assert.Equal(t, "Image generation failed. No image data received.", snap.Error)
}

func TestFailureCancelsSiblingRenders(t *testing.T) {
	f := newFixture(t, 0, 0)
	release := make(chan struct{})
	f.gen.image = func(ctx context.Context, prompt string, _ domain.AspectRatio) (domain.Image, error) {
		if prompt == "scene 0, aspect ratio 1:1" {
			return domain.Image{}, errors.New("boom")
		}
		select {
		case <-ctx.Done():
			return domain.Image{}, ctx.Err()
		case <-release:
			return domain.Image{Data: []byte("late")}, nil
		}
	}
	defer close(release)

	snap := f.submitAndWait(t, "s1", lumaSpec())
	assert.Equal(t, StateCreating, snap.State)
	assert.Equal(t, "boom", snap.Error)
}

func TestRenderConcurrencyLimit(t *testing.T) {
	f := newFixture(t, 0, 2)
	f.gen.image = func(context.Context, string, domain.AspectRatio) (domain.Image, error) {
		time.Sleep(5 * time.Millisecond)
		return domain.Image{Data: []byte("x")}, nil
	}
	spec := lumaSpec()
	spec.GenerationMode = domain.ModeFour
	spec.AspectRatios = domain.AspectRatios()

	snap := f.submitAndWait(t, "s1", spec)

	require.Equal(t, StateResults, snap.State)
	assert.Len(t, snap.Ads, 20)
	assert.LessOrEqual(t, f.gen.maxInflight, 2)
}

func TestFiveRunsExhaustQuota(t *testing.T) {
	f := newFixture(t, 0, 0)
	for i := 0; i < quota.DefaultCeiling; i++ {
		snap := f.submitAndWait(t, "s1", lumaSpec())
		require.Equal(t, StateResults, snap.State)
		_, err := f.studio.CreateMore("s1")
		require.NoError(t, err)
	}
	assert.Equal(t, 5, f.tracker.Count())

	snap, err := f.studio.Submit(context.Background(), "s1", lumaSpec())
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, StateCreating, snap.State)
	assert.True(t, snap.SignupOpen)
	assert.Equal(t, 0, snap.Remaining)

	fresh, err := f.studio.StartCreating("s2")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, StateLanding, fresh.State)
	assert.True(t, fresh.SignupOpen)
}

func TestExhaustedQuotaNeverEntersCreating(t *testing.T) {
	f := newFixture(t, 5, 0)

	snap, err := f.studio.StartCreating("s1")

	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, StateLanding, snap.State)
	assert.True(t, snap.SignupOpen)
	assert.Zero(t, f.gen.ideaCalls)

	snap = f.studio.CloseSignup("s1")
	assert.False(t, snap.SignupOpen)
	assert.Equal(t, StateLanding, snap.State)
}

func TestInvalidTransitions(t *testing.T) {
	f := newFixture(t, 0, 0)

	_, err := f.studio.Submit(context.Background(), "s1", lumaSpec())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "submit from landing")
	_, err = f.studio.CreateMore("s1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "create more from landing")
	assert.ErrorIs(t, f.studio.SaveDraft("s1", domain.DefaultSpecForm()), domain.ErrInvalidTransition)

	_, err = f.studio.StartCreating("s1")
	require.NoError(t, err)
	_, err = f.studio.StartCreating("s1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "start from creating")
	assert.Equal(t, StateCreating, f.studio.Snapshot("s1").State)
}

func TestSubmitClearsPreviousError(t *testing.T) {
	f := newFixture(t, 0, 0)
	fail := true
	f.gen.ideas = func(spec domain.AdSpec) ([]domain.GeneratedAdIdea, error) {
		if fail {
			return nil, errors.New("first try fails")
		}
		return ideasFor(spec.IdeaCount()), nil
	}

	snap := f.submitAndWait(t, "s1", lumaSpec())
	require.Equal(t, "first try fails", snap.Error)

	fail = false
	snap, err := f.studio.Submit(context.Background(), "s1", lumaSpec())
	require.NoError(t, err)
	assert.Empty(t, snap.Error)
	f.studio.Wait()
	assert.Equal(t, StateResults, f.studio.Snapshot("s1").State)
}

func TestDraftIsRetained(t *testing.T) {
	f := newFixture(t, 0, 0)
	_, err := f.studio.StartCreating("s1")
	require.NoError(t, err)

	form := domain.DefaultSpecForm()
	form.BrandName = "Luma"
	require.NoError(t, f.studio.SaveDraft("s1", form))

	assert.Equal(t, "Luma", f.studio.Snapshot("s1").Draft.BrandName)
}

func TestAdLookup(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.submitAndWait(t, "s1", lumaSpec())

	ad, err := f.studio.Ad("s1", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, ad.Image.Data)

	_, err = f.studio.Ad("s1", 4)
	assert.ErrorIs(t, err, ErrAdNotFound)
	_, err = f.studio.Ad("nobody", 0)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.submitAndWait(t, "a", lumaSpec())

	assert.Equal(t, StateResults, f.studio.Snapshot("a").State)
	b := f.studio.Snapshot("b")
	assert.Equal(t, StateLanding, b.State)
	assert.Equal(t, 4, b.Remaining, "quota is shared across sessions")
}

func TestPruneDropsIdleSessions(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, 0, 0)
	f.studio.now = func() time.Time { return now }

	f.studio.Snapshot("old")
	now = now.Add(3 * time.Hour)
	f.studio.Snapshot("new")

	assert.Equal(t, 1, f.studio.Prune(2*time.Hour))
	_, err := f.studio.Ad("old", 0)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestComposeImagePrompt(t *testing.T) {
	assert.Equal(t, "a candle at dusk, aspect ratio A3 Landscape",
		ComposeImagePrompt("a candle at dusk", domain.RatioA3Landscape))
}

// slowQuota holds Increment until released, standing in for a slow store.
type slowQuota struct {
	*quota.Tracker
	entered chan struct{}
	release chan struct{}
}

func (q *slowQuota) Increment(ctx context.Context) int {
	close(q.entered)
	<-q.release
	return q.Tracker.Increment(ctx)
}

func TestSlowQuotaSaveDoesNotBlockOtherSessions(t *testing.T) {
	tracker := quota.NewTracker(context.Background(), quota.NewMemoryStore(0), quota.DefaultCeiling, zerolog.Nop())
	q := &slowQuota{Tracker: tracker, entered: make(chan struct{}), release: make(chan struct{})}
	st := New(Options{Generator: &fakeGenerator{}, Quota: q, Logger: zerolog.Nop()})

	_, err := st.StartCreating("s1")
	require.NoError(t, err)
	_, err = st.Submit(context.Background(), "s1", lumaSpec())
	require.NoError(t, err)
	<-q.entered

	done := make(chan Snapshot, 1)
	go func() { done <- st.Snapshot("s2") }()
	select {
	case snap := <-done:
		assert.Equal(t, StateLanding, snap.State)
	case <-time.After(2 * time.Second):
		close(q.release)
		st.Wait()
		t.Fatal("snapshot blocked while the quota was being saved")
	}
	assert.Equal(t, StateLoading, st.Snapshot("s1").State)

	close(q.release)
	st.Wait()
	snap := st.Snapshot("s1")
	assert.Equal(t, StateResults, snap.State)
	assert.Len(t, snap.Ads, 4)
	assert.Equal(t, 1, tracker.Count())
}

func TestQuotaRejectedSubmitClearsPreviousError(t *testing.T) {
	f := newFixture(t, quota.DefaultCeiling-1, 0)
	f.gen.ideas = func(domain.AdSpec) ([]domain.GeneratedAdIdea, error) {
		return nil, errors.New("boom")
	}
	snap := f.submitAndWait(t, "s1", lumaSpec())
	require.Equal(t, "boom", snap.Error)

	f.tracker.Increment(context.Background())
	snap, err := f.studio.Submit(context.Background(), "s1", lumaSpec())
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, StateCreating, snap.State)
	assert.True(t, snap.SignupOpen)
	assert.Empty(t, snap.Error)
}
