package bridge

import (
	"net/http"

	"github.com/dov85/Apartment/internal/availability"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/dov85/Apartment/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	MaxBodyBytes int64
	MetricsPath  string // empty disables the metrics endpoint
}

func NewRouter(h *Handler, cfg RouterConfig, m *metrics.MetricsManager, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(log.Named("http")))
	r.Use(Tracing())
	if m != nil {
		r.Use(Metrics(m))
	}
	r.Use(BodyLimit(cfg.MaxBodyBytes))

	r.Get(availability.StatusPath, h.HandleStatus)
	r.Get("/api/config", h.HandleConfig)

	r.Get("/api/listings", h.HandleGetListings)
	r.Post("/api/listings", h.HandleSaveListings)
	r.Post("/api/images", h.HandlePersistImage)
	r.Get("/api/images/{key}", h.HandleGetImage)
	r.Delete("/api/images/{key}", h.HandleDeleteImage)
	r.Get("/files/{name}", h.HandleGetFile)

	if m != nil && cfg.MetricsPath != "" {
		r.Method(http.MethodGet, cfg.MetricsPath, m.Handler())
	}
	return r
}
