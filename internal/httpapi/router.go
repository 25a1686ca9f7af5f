// Package httpapi wires the turntable HTTP API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"turntable/internal/httpapi/handlers"
	"turntable/internal/httpapi/util"
	"turntable/internal/httpkit"
	"turntable/internal/pkg/logger"
	"turntable/internal/pkg/middleware"
	"turntable/internal/ports"
)

type Deps struct {
	Pool  *pgxpool.Pool
	Queue handlers.JobQueue
	SP    ports.StorageProvider
	Log   *logger.Logger
	// RequestTimeout bounds every request context. Zero means 60s.
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Timeout(timeout))

	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: util.EnvCSV("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:8081",
			"http://localhost:5173",
		}),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Pool:      d.Pool,
		Queue:     d.Queue,
		SP:        d.SP,
		Log:       log,
		PublicURL: util.Env("PUBLIC_BASE_URL", "http://localhost:"+util.Env("HTTP_PORT", "8080")),
	})
	wrap := func(fn middleware.ErrorHandlerFunc) http.HandlerFunc {
		return middleware.WrapHandler(log, fn)
	}

	r.Get("/health", h.Health)

	r.Route("/objects", func(r chi.Router) {
		r.Post("/", wrap(h.PostObject))
		r.Get("/", wrap(h.ListObjects))
		r.Get("/{name}", wrap(h.GetObject))
		r.Delete("/{name}", wrap(h.DeleteObject))
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", wrap(h.PostJob))
		r.Get("/", wrap(h.ListJobs))
		r.Post("/plan", wrap(h.PostPlan))
		r.Get("/{jobId}", wrap(h.GetJob))
		r.Post("/{jobId}/cancel", wrap(h.CancelJob))
	})

	r.Route("/assets", func(r chi.Router) {
		r.Post("/", wrap(h.PostAsset))
		r.Get("/{assetId}", wrap(h.GetAsset))
		r.Get("/{assetId}/url", wrap(h.GetAssetURL))
		r.Get("/{assetId}/content", wrap(h.StreamAsset))
		r.Delete("/{assetId}", wrap(h.DeleteAsset))
	})

	return r
}
