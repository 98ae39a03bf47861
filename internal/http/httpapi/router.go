package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"adprint/internal/http/handlers"
	"adprint/internal/infra"
	"adprint/internal/metrics"
	"adprint/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger, secureCookies bool) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Session(secureCookies),
		middleware.Logger(logger),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Studio
	r.Get("/", app.Index)
	r.Post("/start", app.Start)
	r.Post("/create-more", app.CreateMore)
	r.Post("/signup/open", app.SignupOpen)
	r.Post("/signup/close", app.SignupClose)

	r.Route("/ads", func(r chi.Router) {
		r.Post("/", app.SubmitAds)
		r.Get("/archive.zip", app.AdsArchive)
		r.Get("/{index}/image", app.AdImage)
	})

	r.Get("/api/session", app.SessionState)

	return r
}
