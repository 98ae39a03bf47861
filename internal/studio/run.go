package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"adprint/internal/domain"
	"adprint/internal/metrics"
)

const unknownErrorMessage = "An unknown error occurred."

// ComposeImagePrompt appends the target ratio to an idea's image prompt.
func ComposeImagePrompt(imagePrompt string, ratio domain.AspectRatio) string {
	return fmt.Sprintf("%s, aspect ratio %s", imagePrompt, ratio)
}

func (s *Studio) run(ctx context.Context, sessionID, runID string, spec domain.AdSpec) {
	defer s.runs.Done()

	started := time.Now()
	ads, err := s.generate(ctx, spec)
	metrics.RecordRun(started, len(ads), err)

	log := s.logger.With().Str("session", sessionID).Str("run", runID).Logger()

	s.mu.Lock()
	sess, ok := s.currentRunLocked(sessionID, runID)
	if !ok {
		s.mu.Unlock()
		log.Warn().Err(err).Msg("discarding result of stale run")
		return
	}
	if err != nil {
		sess.state = StateCreating
		sess.errMsg = userMessage(err)
		s.mu.Unlock()
		log.Error().Err(err).Dur("took", time.Since(started)).Msg("generation run failed")
		return
	}
	s.mu.Unlock()

	// The store may be slow; other sessions keep being served meanwhile.
	count := s.quota.Increment(ctx)
	metrics.SetQuotaRemaining(s.quota.Remaining())

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok = s.currentRunLocked(sessionID, runID)
	if !ok {
		log.Warn().Int("creation_count", count).Msg("session left loading while the count was saved")
		return
	}
	sess.ads = ads
	sess.state = StateResults
	log.Info().
		Int("ads", len(ads)).
		Int("creation_count", count).
		Dur("took", time.Since(started)).
		Msg("generation run finished")
}

// currentRunLocked returns the session only while it still waits for runID.
func (s *Studio) currentRunLocked(sessionID, runID string) (*session, bool) {
	sess, ok := s.sessions[sessionID]
	if !ok || sess.runID != runID || sess.state != StateLoading {
		return nil, false
	}
	return sess, true
}

// generate runs the idea stage, then renders every (idea, ratio) pair
// concurrently. The first failure cancels the remaining renders and no
// partial result is returned. Ads are ordered by completion.
func (s *Studio) generate(ctx context.Context, spec domain.AdSpec) ([]domain.GeneratedAd, error) {
	ideasStarted := time.Now()
	ideas, err := s.gen.GenerateIdeas(ctx, spec)
	metrics.RecordModelCall(string(domain.StageIdeas), ideasStarted, err)
	if err != nil {
		return nil, err
	}
	ideas, err = checkIdeas(ideas, spec.IdeaCount())
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}

	var mu sync.Mutex
	ads := make([]domain.GeneratedAd, 0, spec.ExpectedAds())
	for _, idea := range ideas {
		for _, ratio := range spec.AspectRatios {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				renderStarted := time.Now()
				img, err := s.gen.GenerateImage(gctx, ComposeImagePrompt(idea.ImagePrompt, ratio), ratio)
				if err == nil && img.Empty() {
					err = &domain.GenerationError{Stage: domain.StageImage, Message: "Image generation failed. No image data received."}
				}
				metrics.RecordModelCall(string(domain.StageImage), renderStarted, err)
				if err != nil {
					return err
				}
				mu.Lock()
				ads = append(ads, domain.GeneratedAd{GeneratedAdIdea: idea, Image: img, AspectRatio: ratio})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ads, nil
}

// checkIdeas trims surplus concepts and rejects short or incomplete batches.
func checkIdeas(ideas []domain.GeneratedAdIdea, want int) ([]domain.GeneratedAdIdea, error) {
	if len(ideas) < want {
		return nil, &domain.GenerationError{
			Stage:   domain.StageIdeas,
			Message: "The AI failed to generate valid ad concepts. Please try again.",
			Err:     fmt.Errorf("got %d concepts, want %d", len(ideas), want),
		}
	}
	ideas = ideas[:want]
	for i, idea := range ideas {
		if !idea.Complete() {
			return nil, &domain.GenerationError{
				Stage:   domain.StageIdeas,
				Message: "The AI failed to generate valid ad concepts. Please try again.",
				Err:     fmt.Errorf("concept %d is incomplete", i),
			}
		}
	}
	return ideas, nil
}

func userMessage(err error) string {
	var gerr *domain.GenerationError
	if errors.As(err, &gerr) {
		return gerr.Error()
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return unknownErrorMessage
}
