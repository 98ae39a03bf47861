package handlers

import (
	"errors"
	"net/http"

	"adprint/internal/domain"
	"adprint/internal/studio"
)

const uploadErrorMessage = "The upload could not be read. Images must be PNG, JPEG or WebP and under 25 MB in total."

// Index renders the view for the session's current state.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	a.render(w, http.StatusOK, a.Studio.Snapshot(sessionID(r)), "")
}

func (a *App) Start(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Studio.StartCreating(sessionID(r))
	a.afterTransition(w, r, snap, err)
}

func (a *App) CreateMore(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Studio.CreateMore(sessionID(r))
	a.afterTransition(w, r, snap, err)
}

func (a *App) SignupOpen(w http.ResponseWriter, r *http.Request) {
	a.Studio.OpenSignup(sessionID(r))
	a.acknowledge(w, r)
}

func (a *App) SignupClose(w http.ResponseWriter, r *http.Request) {
	a.Studio.CloseSignup(sessionID(r))
	a.acknowledge(w, r)
}

// SubmitAds validates the creation form and starts a generation run.
func (a *App) SubmitAds(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	snap := a.Studio.Snapshot(id)
	if snap.State != studio.StateCreating {
		a.afterTransition(w, r, snap, domain.ErrInvalidTransition)
		return
	}

	form, err := readSpecForm(w, r, snap.Draft)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			a.render(w, http.StatusUnprocessableEntity, snap, verr.Error())
			return
		}
		a.Logger.Warn().Err(err).Str("session", id).Msg("unreadable creation form")
		a.render(w, http.StatusBadRequest, snap, uploadErrorMessage)
		return
	}
	if err := a.Studio.SaveDraft(id, form); err != nil {
		a.afterTransition(w, r, a.Studio.Snapshot(id), err)
		return
	}

	spec, err := form.Build()
	if err != nil {
		a.render(w, http.StatusUnprocessableEntity, a.Studio.Snapshot(id), err.Error())
		return
	}

	snap, err = a.Studio.Submit(r.Context(), id, spec)
	a.afterTransition(w, r, snap, err)
}

// afterTransition redirects to the current view on success or when the quota
// modal opened, and re-renders with 409 when the trigger was not allowed.
func (a *App) afterTransition(w http.ResponseWriter, r *http.Request, snap studio.Snapshot, err error) {
	switch {
	case err == nil, errors.Is(err, domain.ErrQuotaExceeded):
		if wantsJSON(r) {
			a.json(w, http.StatusOK, newSessionResponse(snap))
			return
		}
		redirectHome(w, r)
	case errors.Is(err, domain.ErrInvalidTransition):
		if wantsJSON(r) {
			a.error(w, http.StatusConflict, "invalid_transition", "That action is not available right now.")
			return
		}
		a.render(w, http.StatusConflict, snap, "")
	default:
		a.Logger.Error().Err(err).Str("session", snap.SessionID).Msg("studio transition failed")
		a.render(w, http.StatusInternalServerError, snap, "An unknown error occurred.")
	}
}

func (a *App) acknowledge(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	redirectHome(w, r)
}
