// Package bridge is the server side of the proxy: it holds the storage
// credential and exposes the document and images over JSON HTTP.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/dov85/Apartment/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EventPublisher announces changes to other devices.
type EventPublisher interface {
	PublishDocumentUpdated(ctx context.Context, listings int) error
	PublishImageDeleted(ctx context.Context, key string) error
}

// PublicConfig is what clients may learn about the deployment. It never
// carries credentials.
type PublicConfig struct {
	PublicBaseURL string `json:"publicBaseUrl"`
	Bucket        string `json:"bucket"`
	Mode          string `json:"mode"`
}

type Handler struct {
	backend   Backend
	publisher EventPublisher
	metrics   *metrics.MetricsManager
	public    PublicConfig
	logger    *logger.Logger
}

type Option func(*Handler)

func WithPublisher(p EventPublisher) Option {
	return func(h *Handler) { h.publisher = p }
}

func WithMetrics(m *metrics.MetricsManager) Option {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(backend Backend, public PublicConfig, log *logger.Logger, opts ...Option) *Handler {
	public.Mode = backend.Mode()
	h := &Handler{
		backend: backend,
		public:  public,
		logger:  log.Named("bridge_handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type statusResponse struct {
	OK   bool   `json:"ok"`
	Mode string `json:"mode"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type persistImageRequest struct {
	DataURL string `json:"dataUrl"`
}

type persistImageResponse struct {
	Key string `json:"key"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{OK: true, Mode: h.backend.Mode()})
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.public)
}

func (h *Handler) HandleGetListings(w http.ResponseWriter, r *http.Request) {
	data, err := h.backend.LoadDocument(r.Context())
	if errors.Is(err, domain.ErrDocumentNotFound) {
		h.writeJSON(w, http.StatusOK, domain.Collection{})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load document", zap.Error(err))
		h.writeError(w, r, http.StatusBadGateway, "failed to load listings")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) HandleSaveListings(w http.ResponseWriter, r *http.Request) {
	var c domain.Collection
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.logger.Warn("Invalid listings body", zap.Error(err))
		h.writeError(w, r, statusForDecodeError(err), "request body must be a JSON array of listings")
		return
	}
	if c == nil {
		c = domain.Collection{}
	}
	data, err := json.Marshal(c.WithoutInline())
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.backend.SaveDocument(r.Context(), data); err != nil {
		h.logger.Error("Failed to save document", zap.Int("listings", len(c)), zap.Error(err))
		h.writeError(w, r, http.StatusBadGateway, "failed to save listings")
		return
	}
	if h.metrics != nil {
		h.metrics.DocumentWritesTotal.Inc()
	}
	if h.publisher != nil {
		if err := h.publisher.PublishDocumentUpdated(r.Context(), len(c)); err != nil {
			h.logger.Warn("Failed to publish document update", zap.Error(err))
		}
	}
	h.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) HandlePersistImage(w http.ResponseWriter, r *http.Request) {
	var req persistImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, statusForDecodeError(err), "invalid request body")
		return
	}
	mimeType, data, err := domain.DecodeDataURL(req.DataURL)
	if err != nil || len(data) == 0 {
		h.writeError(w, r, http.StatusBadRequest, "dataUrl must be a non-empty base64 data URL")
		return
	}
	ref, err := h.backend.StoreImage(r.Context(), mimeType, data)
	if err != nil {
		h.logger.Error("Failed to store image", zap.Int("bytes", len(data)), zap.Error(err))
		h.writeError(w, r, http.StatusBadGateway, "failed to store image")
		return
	}
	if h.metrics != nil {
		h.metrics.ImagesStoredTotal.Inc()
		h.metrics.ImageBytesStored.Add(float64(len(data)))
	}
	h.logger.Info("Image stored", zap.String("key", ref.String()), zap.Int("bytes", len(data)))
	h.writeJSON(w, http.StatusOK, persistImageResponse{Key: ref.String()})
}

func (h *Handler) HandleGetImage(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.refParam(w, r)
	if !ok {
		return
	}
	h.serveImage(w, r, ref)
}

func (h *Handler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.refParam(w, r)
	if !ok {
		return
	}
	if err := h.backend.DeleteImage(r.Context(), ref); err != nil {
		h.logger.Error("Failed to delete image", zap.String("key", ref.String()), zap.Error(err))
		h.writeError(w, r, http.StatusBadGateway, "failed to delete image")
		return
	}
	if h.metrics != nil {
		h.metrics.ImagesDeletedTotal.Inc()
	}
	if h.publisher != nil {
		if err := h.publisher.PublishImageDeleted(r.Context(), ref.String()); err != nil {
			h.logger.Warn("Failed to publish image deletion", zap.Error(err))
		}
	}
	h.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		h.writeError(w, r, http.StatusBadRequest, "invalid file name")
		return
	}
	h.serveImage(w, r, domain.LocalFileRef(name))
}

func (h *Handler) serveImage(w http.ResponseWriter, r *http.Request, ref domain.ImageRef) {
	data, contentType, err := h.backend.GetImage(r.Context(), ref)
	switch {
	case errors.Is(err, domain.ErrImageNotFound):
		h.writeError(w, r, http.StatusNotFound, "image not found")
		return
	case errors.Is(err, domain.ErrMalformedImageRef):
		h.writeError(w, r, http.StatusBadRequest, "invalid image key")
		return
	case err != nil:
		h.logger.Error("Failed to read image", zap.String("key", ref.String()), zap.Error(err))
		h.writeError(w, r, http.StatusBadGateway, "failed to read image")
		return
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) refParam(w http.ResponseWriter, r *http.Request) (domain.ImageRef, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid image key")
		return domain.ImageRef{}, false
	}
	ref, err := domain.ParseImageRef(raw)
	if err != nil || ref.Kind == domain.RefInline || ref.Kind == domain.RefDeviceBlob {
		h.writeError(w, r, http.StatusBadRequest, "invalid image key")
		return domain.ImageRef{}, false
	}
	return ref, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if h.metrics != nil {
		h.metrics.APIErrorsTotal.WithLabelValues(routePattern(r), http.StatusText(status)).Inc()
	}
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func statusForDecodeError(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
