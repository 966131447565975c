package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/classafix/caf-copilot/internal/http/handlers"
	"github.com/classafix/caf-copilot/internal/middleware"
)

type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	// StaticDir is served under /static when uploads live on the local filesystem.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/cases", func(r chi.Router) {
		r.Get("/", app.ListCases)
		r.Post("/", app.CreateCase)
		r.Get("/{id}", app.GetCase)
		r.Post("/{id}/media", app.AttachMedia)
		r.Post("/{id}/tenant-message", app.TenantMessage)

		// Every route below makes one model call.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
			r.Post("/{id}/triage", app.Triage)
			r.Post("/{id}/vision", app.Vision)
			r.Post("/{id}/diagnosis", app.Diagnosis)
			r.Post("/{id}/pricing", app.Pricing)
			r.Post("/{id}/quote-analysis", app.QuoteAnalysis)
		})
	})

	r.Post("/v1/uploads", app.Upload)

	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	return otelhttp.NewHandler(r, "caf-copilot",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}
