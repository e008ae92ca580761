package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/httpx"
	"github.com/jordymora1978/GSS-Utilidad/internal/profit"
	"github.com/jordymora1978/GSS-Utilidad/internal/shared"
)

var ErrInvalidRate = fmt.Errorf("invalid rate update: %w", httpx.ErrValidation)

// significantChangePct is the threshold above which a rate change makes
// stored profits stale enough to recalculate.
const significantChangePct = 1.0

// Recalculator schedules a profit recalculation for the affected countries.
type Recalculator interface {
	EnqueueRecalc(ctx context.Context, countries []accounts.Country) error
}

// Auditor records rate-change activity.
type Auditor interface {
	Record(ctx context.Context, entry shared.ActivityLog) error
}

// Service owns rate reads and updates.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	cache    *Cache
	audit    Auditor
	recalc   Recalculator
	validate *validator.Validate
}

// NewService builds the rate service. cache and audit may be nil.
func NewService(logger *slog.Logger, repo Repository, cache *Cache, audit Auditor) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		cache:    cache,
		audit:    audit,
		validate: validator.New(),
	}
}

// SetRecalculator injects the background recalculation hook.
func (s *Service) SetRecalculator(r Recalculator) {
	s.recalc = r
}

// CurrentRates returns one rate per country for a calculation run,
// cache-first.
func (s *Service) CurrentRates(ctx context.Context) (profit.Rates, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}
	current, err := s.repo.Current(ctx)
	if err != nil {
		return nil, err
	}
	rates := make(profit.Rates, len(current))
	for _, r := range current {
		rates[r.Country] = r.Value
	}
	s.cache.Set(ctx, rates)
	return rates, nil
}

// List returns the full current rate rows.
func (s *Service) List(ctx context.Context) ([]Rate, error) {
	return s.repo.Current(ctx)
}

// History returns recent changes, newest first.
func (s *Service) History(ctx context.Context, country accounts.Country, limit int) ([]HistoryEntry, error) {
	return s.repo.History(ctx, country, limit)
}

// UpdateRequest is one manual rate change.
type UpdateRequest struct {
	Country accounts.Country `json:"country" validate:"required,oneof=colombia peru chile"`
	Value   float64          `json:"value" validate:"required,gt=0"`
	Actor   string           `json:"actor"`
	Reason  string           `json:"reason"`
}

// Update stores a new rate with its history entry. A change above the
// significance threshold schedules a profit recalculation for the country.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*RateChange, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRate, err)
	}
	if req.Reason == "" {
		req.Reason = "manual update"
	}

	var previous *float64
	changePct := 0.0
	existing, err := s.repo.Get(ctx, req.Country)
	switch {
	case err == nil:
		v := existing.Value
		previous = &v
		if v != 0 {
			changePct = (req.Value - v) / v * 100
		}
	case errors.Is(err, ErrRateNotFound):
		// First rate for the country; no change to measure.
	default:
		return nil, err
	}

	entry := HistoryEntry{
		Country:       req.Country,
		PreviousValue: derefFloat(previous),
		NewValue:      req.Value,
		ChangePct:     round2(changePct),
		Actor:         req.Actor,
		Reason:        req.Reason,
	}
	rate := Rate{
		Country:       req.Country,
		Value:         req.Value,
		PreviousValue: previous,
		UpdatedBy:     req.Actor,
	}
	if err := s.repo.Apply(ctx, rate, entry); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	change := &RateChange{
		Entry:       entry,
		Significant: math.Abs(changePct) > significantChangePct,
	}

	s.logger.Info("rate updated",
		"country", req.Country,
		"value", req.Value,
		"change_pct", entry.ChangePct,
		"significant", change.Significant,
	)
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.ActivityLog{
			Actor:       req.Actor,
			Action:      "rate_update",
			Description: fmt.Sprintf("%s: %.4f -> %.4f (%.2f%%)", req.Country, entry.PreviousValue, req.Value, entry.ChangePct),
			Source:      "rates",
			RecordCount: 1,
		})
		if err != nil {
			s.logger.Error("audit record failed", "error", err)
		}
	}

	if change.Significant && s.recalc != nil {
		if err := s.recalc.EnqueueRecalc(ctx, []accounts.Country{req.Country}); err != nil {
			s.logger.Error("recalc enqueue failed", "country", req.Country, "error", err)
		}
	}
	return change, nil
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
