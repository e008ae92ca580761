package reports

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jordymora1978/GSS-Utilidad/internal/platform/httpx"
)

// Handler exposes the report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/groups/{group}", h.group)
	r.Get("/global", h.global)
	r.Get("/refunds", h.refunds)
}

func (h *Handler) group(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Period", err.Error())
		return
	}

	report, err := h.service.Group(r.Context(), Group(chi.URLParam(r, "group")), period)
	if err != nil {
		if errors.Is(err, ErrUnknownGroup) {
			httpx.Problem(w, http.StatusNotFound, "Unknown Group", err.Error())
			return
		}
		h.logger.Error("group report failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) global(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Period", err.Error())
		return
	}

	report, err := h.service.Global(r.Context(), period)
	if err != nil {
		h.logger.Error("global report failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) refunds(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Period", err.Error())
		return
	}

	report, err := h.service.Refunds(r.Context(), period)
	if err != nil {
		h.logger.Error("refunds report failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// parsePeriod reads the from/to query parameters. Missing bounds are left
// zero so the service defaults to the current month.
func parsePeriod(r *http.Request) (Period, error) {
	var p Period
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Period{}, fmt.Errorf("%w: from: %v", ErrInvalidRequest, err)
		}
		p.From = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Period{}, fmt.Errorf("%w: to: %v", ErrInvalidRequest, err)
		}
		p.To = t
	}
	return p, nil
}
