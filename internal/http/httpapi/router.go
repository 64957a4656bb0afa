package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"creativegen/internal/http/handlers"
	"creativegen/internal/middleware"
)

// Options tunes the router's middleware.
type Options struct {
	RateLimitPerMinute int
	AllowedOrigins     []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := zerolog.Nop()
	if app.Logger != nil {
		logger = *app.Logger
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/v1/generations", func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.With(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute)).Post("/", app.GenerationsCreate)
		} else {
			r.Post("/", app.GenerationsCreate)
		}
		r.Get("/{id}", app.GenerationsGet)
		r.Get("/{id}/report", app.GenerationsReport)
	})

	r.Get("/v1/budget", app.BudgetGet)

	return r
}
