package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"nearby-offers/internal/models"
	"nearby-offers/internal/service"
	"nearby-offers/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 10 << 20, // 10MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// Routes mounts the API routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/offers/nearby", h.FilterOffers)

	r.Route("/catalogs", func(r chi.Router) {
		r.Post("/", h.CreateCatalog)
		r.Get("/", h.ListCatalogs)
		r.Get("/{catalog_id}/nearby-offers", h.GetNearbyOffers)
	})

	r.Get("/health", h.Health)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// FilterOffers handles POST /offers/nearby?checkin=YYYY-MM-DD
func (h *Handler) FilterOffers(w http.ResponseWriter, r *http.Request) {
	checkin, err := validation.ParseCheckinDate(r.URL.Query().Get("checkin"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	selected, err := h.service.FilterDocument(r.Context(), body, checkin)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.NewOutputDocument(selected))
}

// CreateCatalog handles POST /catalogs
func (h *Handler) CreateCatalog(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	catalog, err := h.service.StoreCatalog(r.Context(), body)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, catalog)
}

// ListCatalogs handles GET /catalogs?limit=N
func (h *Handler) ListCatalogs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(validation.SanitizeString(raw))
		if err != nil || n <= 0 || n > 100 {
			h.respondError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	catalogs, err := h.service.ListCatalogs(r.Context(), limit)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, catalogs)
}

// GetNearbyOffers handles GET /catalogs/{catalog_id}/nearby-offers?checkin=YYYY-MM-DD
func (h *Handler) GetNearbyOffers(w http.ResponseWriter, r *http.Request) {
	catalogID := validation.SanitizeString(chi.URLParam(r, "catalog_id"))
	if catalogID == "" {
		h.respondError(w, http.StatusBadRequest, "catalog_id is required")
		return
	}

	checkin, err := validation.ParseCheckinDate(r.URL.Query().Get("checkin"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	selected, err := h.service.FilterCatalog(r.Context(), catalogID, checkin)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.NewOutputDocument(selected))
}

// readBody reads the size limited request body, answering 400 itself on failure.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		h.respondError(w, http.StatusBadRequest, "unable to read request body")
		return nil, false
	}
	if len(body) == 0 {
		h.respondError(w, http.StatusBadRequest, "request body is required")
		return nil, false
	}
	return body, true
}

// respondServiceError maps service errors onto HTTP status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrCatalogNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case validation.IsClientError(err):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
