package handlers

import (
	"fmt"
	"net/http"
	"time"

	"adprint/internal/studio"
)

type sessionAd struct {
	Headline    string `json:"headline"`
	Subtext     string `json:"subtext"`
	AspectRatio string `json:"aspect_ratio"`
	ImageURL    string `json:"image_url"`
}

type sessionResponse struct {
	State      string      `json:"state"`
	Error      string      `json:"error,omitempty"`
	SignupOpen bool        `json:"signup_open"`
	Remaining  int         `json:"remaining"`
	Ceiling    int         `json:"ceiling"`
	Badge      string      `json:"badge"`
	RunStarted *time.Time  `json:"run_started,omitempty"`
	Ads        []sessionAd `json:"ads"`
}

func newSessionResponse(snap studio.Snapshot) sessionResponse {
	resp := sessionResponse{
		State:      string(snap.State),
		Error:      snap.Error,
		SignupOpen: snap.SignupOpen,
		Remaining:  snap.Remaining,
		Ceiling:    snap.Ceiling,
		Badge:      BadgeText(snap.Remaining),
		Ads:        make([]sessionAd, 0, len(snap.Ads)),
	}
	if !snap.RunStarted.IsZero() {
		started := snap.RunStarted.UTC()
		resp.RunStarted = &started
	}
	for i, ad := range snap.Ads {
		resp.Ads = append(resp.Ads, sessionAd{
			Headline:    ad.Headline,
			Subtext:     ad.Subtext,
			AspectRatio: string(ad.AspectRatio),
			ImageURL:    fmt.Sprintf("/ads/%d/image", i),
		})
	}
	return resp
}

// SessionState reports the session as JSON; the loading view polls it.
func (a *App) SessionState(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, newSessionResponse(a.Studio.Snapshot(sessionID(r))))
}
