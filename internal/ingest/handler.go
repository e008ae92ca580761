package ingest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jordymora1978/GSS-Utilidad/internal/platform/httpx"
	"github.com/jordymora1978/GSS-Utilidad/internal/shared"
)

// Handler exposes the ingestion endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ingestion routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/consolidate", h.consolidate)
	r.Post("/overlays/{source}", h.updateOverlay)
	r.Get("/duplicates", h.duplicateScan)
}

func (h *Handler) consolidate(w http.ResponseWriter, r *http.Request) {
	var req ConsolidateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if req.Actor == "" {
		req.Actor = shared.ActorFromContext(r.Context())
	}

	summary, err := h.service.Consolidate(r.Context(), req)
	if err != nil {
		h.respondRunError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) updateOverlay(w http.ResponseWriter, r *http.Request) {
	var req OverlayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	req.Source = Source(chi.URLParam(r, "source"))
	if req.Actor == "" {
		req.Actor = shared.ActorFromContext(r.Context())
	}

	summary, err := h.service.UpdateOverlay(r.Context(), req)
	if err != nil {
		h.respondRunError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) duplicateScan(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.DuplicateScan(r.Context())
	if err != nil {
		h.logger.Error("duplicate scan failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"duplicates": groups,
		"count":      len(groups),
	})
}

func (h *Handler) respondRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidRequest) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	h.logger.Error("ingestion run failed", "error", err)
	httpx.RespondError(w, err)
}
