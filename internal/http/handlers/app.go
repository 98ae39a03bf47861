package handlers

import (
	"encoding/json"
	"net/http"

	"adprint/internal/infra"
	"adprint/internal/middleware"
	"adprint/internal/studio"
)

// MaxUploadBytes bounds a whole form submission including both images.
const MaxUploadBytes = 25 << 20

type App struct {
	Studio *studio.Studio
	Logger infra.Logger
	// GeneratorName is reported by the health check ("gemini" or "synthetic").
	GeneratorName string
	views         views
}

func NewApp(st *studio.Studio, generatorName string, logger infra.Logger) (*App, error) {
	v, err := parseViews()
	if err != nil {
		return nil, err
	}
	return &App{Studio: st, Logger: logger, GeneratorName: generatorName, views: v}, nil
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, errorResponse{Error: kind, Message: msg})
}

func sessionID(r *http.Request) string {
	return middleware.SessionIDFromContext(r.Context())
}

// wantsJSON reports whether the caller is a script rather than a form post.
func wantsJSON(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json"
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
