package rates

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/httpx"
	"github.com/jordymora1978/GSS-Utilidad/internal/shared"
)

// Handler exposes the rate endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers rate routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/{country}", h.update)
	r.Get("/history", h.history)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list rates failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rates": current})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	req.Country = accounts.Country(chi.URLParam(r, "country"))
	if req.Actor == "" {
		req.Actor = shared.ActorFromContext(r.Context())
	}

	change, err := h.service.Update(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidRate) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Rate", err.Error())
			return
		}
		h.logger.Error("rate update failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, change)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	country := accounts.Country(r.URL.Query().Get("country"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.service.History(r.Context(), country, limit)
	if err != nil {
		h.logger.Error("rate history failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": entries})
}
