package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	jobmetrics "github.com/jordymora1978/GSS-Utilidad/internal/jobs"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
	"github.com/jordymora1978/GSS-Utilidad/internal/profit"
	"github.com/jordymora1978/GSS-Utilidad/internal/shared"
)

const (
	recalcPageSize = 500
	recalcBatch    = 50
	recalcLockTTL  = 30 * time.Minute
)

// RateSource yields the current rate set for a recalculation run.
type RateSource interface {
	CurrentRates(ctx context.Context) (profit.Rates, error)
}

// RecalcJob recomputes the persisted derived columns for every order of the
// requested countries. Runs are serialized with a redis lock: a rate change
// mid-run would otherwise interleave two rate sets in storage.
type RecalcJob struct {
	logger  *slog.Logger
	repo    orders.Repository
	rates   RateSource
	locker  *redis.Client
	metrics *jobmetrics.Metrics
}

// NewRecalcJob constructs the handler. locker and metrics may be nil.
func NewRecalcJob(logger *slog.Logger, repo orders.Repository, rates RateSource, locker *redis.Client, metrics *jobmetrics.Metrics) *RecalcJob {
	return &RecalcJob{logger: logger, repo: repo, rates: rates, locker: locker, metrics: metrics}
}

// Handle processes one TaskTypeProfitRecalc task.
func (j *RecalcJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ProfitRecalcPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	countries := payload.Countries
	if len(countries) == 0 {
		countries = []accounts.Country{accounts.Colombia, accounts.Peru, accounts.Chile}
	}

	release, ok, err := j.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !ok {
		j.logger.Info("recalc already running, requeueing")
		return errors.New("recalc lock held")
	}
	defer release()

	tracker := j.metrics.Track("profit_recalc")
	return tracker.End(j.run(ctx, countries))
}

func (j *RecalcJob) run(ctx context.Context, countries []accounts.Country) error {
	rates, err := j.rates.CurrentRates(ctx)
	if err != nil {
		return err
	}
	ids := orders.AccountsForCountries(countries)
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	var updated, failed, skipped int
	offset := 0
	for {
		page, err := j.repo.List(ctx, orders.ListRequest{
			Accounts: ids,
			Limit:    recalcPageSize,
			Offset:   offset,
		})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		updates := make([]orders.FieldUpdate, 0, len(page))
		now := time.Now().UTC()
		for _, o := range page {
			d, err := profit.Calculate(o, rates)
			if err != nil {
				skipped++
				continue
			}
			updates = append(updates, orders.FieldUpdate{
				OrderID: o.OrderID,
				Fields: map[string]any{
					"profit_total":          d.ProfitTotal,
					"profit_partner_share":  d.PartnerShare,
					"profit_operator_share": d.OperatorShare,
					"weight_kg_rounded":     d.WeightKg,
					"billing_tax":           d.BillingTax,
					"calculated_at":         now,
				},
			})
		}
		for chunk := 0; chunk < len(updates); chunk += recalcBatch {
			end := min(chunk+recalcBatch, len(updates))
			failedIDs, err := j.repo.UpdateBatch(ctx, updates[chunk:end])
			if err != nil {
				j.logger.Error("recalc batch failed", "error", err)
				failed += end - chunk
				continue
			}
			failed += len(failedIDs)
			updated += end - chunk - len(failedIDs)
		}
		j.metrics.AddRecalculated(countriesLabel(countries), len(updates))

		if len(page) < recalcPageSize {
			break
		}
		offset += recalcPageSize
	}

	j.logger.Info("profit recalc finished",
		"countries", countriesLabel(countries),
		"updated", updated,
		"failed", failed,
		"skipped", skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// acquireLock takes the cross-process recalc lock. Without redis the job
// runs unlocked; single-process deployments need no coordination.
func (j *RecalcJob) acquireLock(ctx context.Context) (func(), bool, error) {
	if j.locker == nil {
		return func() {}, true, nil
	}
	key := shared.RecalcLockKey()
	ok, err := j.locker.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), recalcLockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		if err := j.locker.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
			j.logger.Warn("recalc lock release failed", "error", err)
		}
	}
	return release, true, nil
}

func countriesLabel(countries []accounts.Country) string {
	out := ""
	for i, c := range countries {
		if i > 0 {
			out += ","
		}
		out += string(c)
	}
	return out
}
