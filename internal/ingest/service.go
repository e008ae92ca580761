package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/observability"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/httpx"
	"github.com/jordymora1978/GSS-Utilidad/internal/shared"
)

var (
	ErrInvalidRequest = fmt.Errorf("invalid ingestion request: %w", httpx.ErrValidation)
)

// Source identifies which external file an overlay run ingests.
type Source string

const (
	SourceLogistics  Source = "logistics"
	SourceAditionals Source = "aditionals"
	SourceCustoms    Source = "cxp"
)

// defaultBatchSize bounds one storage write. Tunable, not a correctness
// parameter.
const defaultBatchSize = 50

// Recalculator schedules a profit recalculation after a run changes stored
// records.
type Recalculator interface {
	EnqueueRecalc(ctx context.Context, countries []accounts.Country) error
}

// Auditor records run activity.
type Auditor interface {
	Record(ctx context.Context, entry shared.ActivityLog) error
}

// Service orchestrates ingestion runs: a full consolidation from the
// primary feed plus optional overlays, and update-only runs for a single
// external source against already-stored records.
type Service struct {
	logger    *slog.Logger
	repo      orders.Repository
	audit     Auditor
	metrics   *observability.RunMetrics
	recalc    Recalculator
	validate  *validator.Validate
	batchSize int
}

// NewService builds the ingestion service. audit and metrics may be nil.
func NewService(logger *slog.Logger, repo orders.Repository, audit Auditor, metrics *observability.RunMetrics, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		logger:    logger,
		repo:      repo,
		audit:     audit,
		metrics:   metrics,
		validate:  validator.New(),
		batchSize: batchSize,
	}
}

// SetRecalculator injects the background recalculation hook.
func (s *Service) SetRecalculator(r Recalculator) {
	s.recalc = r
}

// ConsolidateRequest is a full ingestion run: the primary feed plus any of
// the three external overlays, already parsed into tabular rows.
type ConsolidateRequest struct {
	Actor          string   `json:"actor"`
	Base           []Row    `json:"base" validate:"required,min=1"`
	Logistics      []Row    `json:"logistics"`
	Aditionals     []Row    `json:"aditionals"`
	Customs        []Row    `json:"customs"`
	CustomsHeaders []string `json:"customs_headers"`
	// LogisticsDate stamps matched records with the carrier report's
	// cutoff date, format 2006-01-02.
	LogisticsDate string `json:"logistics_date" validate:"omitempty,datetime=2006-01-02"`
}

// OverlayRequest is an update-only run for one external source. It can only
// mutate records that already exist.
type OverlayRequest struct {
	Actor          string   `json:"actor"`
	Source         Source   `json:"source" validate:"required,oneof=logistics aditionals cxp"`
	Rows           []Row    `json:"rows" validate:"required,min=1"`
	CustomsHeaders []string `json:"customs_headers"`
	LogisticsDate  string   `json:"logistics_date" validate:"omitempty,datetime=2006-01-02"`
}

// SourceStats is the per-source match outcome of a run.
type SourceStats struct {
	Rows          int                 `json:"rows"`
	IndexedKeys   int                 `json:"indexed_keys"`
	DuplicateKeys int                 `json:"duplicate_keys"`
	Matched       map[StrategyTag]int `json:"matched_by_strategy"`
	// Reapplied counts external rows applied to more than one record in
	// this run, which happens when two records reach the same row through
	// different keys.
	Reapplied    int      `json:"reapplied_rows,omitempty"`
	Unmatched    int      `json:"unmatched"`
	UnmatchedIDs []string `json:"unmatched_ids,omitempty"`
	Note         string   `json:"note,omitempty"`
}

// RunSummary is the structured result of one run. A run never fails
// silently: every outcome, including per-record failures, lands here.
type RunSummary struct {
	RunID             string                  `json:"run_id"`
	StartedAt         time.Time               `json:"started_at"`
	DurationMS        int64                   `json:"duration_ms"`
	BaseRows          int                     `json:"base_rows,omitempty"`
	DuplicateOrderIDs []string                `json:"duplicate_order_ids,omitempty"`
	Warnings          int                     `json:"warnings"`
	Sources           map[Source]*SourceStats `json:"sources"`
	Inserted          int                     `json:"inserted"`
	Updated           int                     `json:"updated"`
	Failed            int                     `json:"failed"`
	FailedIDs         []string                `json:"failed_ids,omitempty"`
}

func newSourceStats(rows int) *SourceStats {
	return &SourceStats{Rows: rows, Matched: make(map[StrategyTag]int)}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// customsHeaders falls back to the first row's keys, sorted for
// determinism, when the caller did not preserve header order.
func customsHeaders(explicit []string, rows []Row) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if len(rows) == 0 {
		return nil
	}
	headers := make([]string, 0, len(rows[0]))
	for h := range rows[0] {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return headers
}

func parseRunDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}

// Consolidate runs the full pipeline on the primary feed: parse and dedupe
// base rows, join each provided overlay, partition by existence and write
// batched inserts and field-level updates.
func (s *Service) Consolidate(ctx context.Context, req ConsolidateRequest) (*RunSummary, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	start := time.Now()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Sources:   make(map[Source]*SourceStats),
	}

	recs, dupIDs, warnings := ParseBaseRows(req.Base)
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no usable base rows", ErrInvalidRequest)
	}
	summary.BaseRows = len(req.Base)
	summary.DuplicateOrderIDs = dupIDs
	summary.Warnings = warnings

	runDate := parseRunDate(req.LogisticsDate)

	var logIx *LogisticsIndex
	if len(req.Logistics) > 0 {
		logIx = NewLogisticsIndex(req.Logistics)
		st := newSourceStats(len(req.Logistics))
		st.IndexedKeys = logIx.Size()
		st.DuplicateKeys = logIx.Duplicates()
		summary.Sources[SourceLogistics] = st
	}
	var adIx *AditionalsIndex
	if len(req.Aditionals) > 0 {
		adIx = NewAditionalsIndex(req.Aditionals)
		st := newSourceStats(len(req.Aditionals))
		st.IndexedKeys = adIx.Size()
		st.DuplicateKeys = adIx.Duplicates()
		summary.Sources[SourceAditionals] = st
	}
	var cxIx *CustomsIndex
	if len(req.Customs) > 0 {
		ix, err := NewCustomsIndex(customsHeaders(req.CustomsHeaders, req.Customs), req.Customs)
		if err != nil {
			// The customs overlay alone is unusable; the rest of the run
			// proceeds.
			s.logger.Warn("skipping customs overlay", "run_id", summary.RunID, "error", err)
			summary.Warnings++
			summary.Sources[SourceCustoms] = &SourceStats{Rows: len(req.Customs), Note: err.Error()}
		} else {
			cxIx = ix
			st := newSourceStats(len(req.Customs))
			st.IndexedKeys = ix.Size()
			st.DuplicateKeys = ix.Duplicates()
			summary.Sources[SourceCustoms] = st
		}
	}

	// Per-record overlay update payloads, built while matching so the
	// update path carries exactly what this run is responsible for.
	overlayFields := make([]map[string]any, len(recs))
	addFields := func(i int, f map[string]any) {
		if overlayFields[i] == nil {
			overlayFields[i] = make(map[string]any, len(f))
		}
		for k, v := range f {
			overlayFields[i][k] = v
		}
	}

	logSeen := make(map[int]struct{})
	adSeen := make(map[int]struct{})
	cxSeen := make(map[int]struct{})
	for i := range recs {
		o := &recs[i]
		if logIx != nil {
			st := summary.Sources[SourceLogistics]
			if hit, ok := logIx.Match(o.OrderID, deref(o.PrealertID)); ok {
				ov := newLogisticsOverlay(hit.Row, runDate)
				ov.apply(o)
				addFields(i, ov.fields())
				markHit(st, summary, logSeen, hit)
			} else {
				st.Unmatched++
				st.UnmatchedIDs = append(st.UnmatchedIDs, o.OrderID)
			}
		}
		if adIx != nil {
			st := summary.Sources[SourceAditionals]
			if hit, ok := adIx.Match(deref(o.PrealertID)); ok {
				ov := newAditionalsOverlay(hit.Row)
				ov.apply(o)
				addFields(i, ov.fields())
				markHit(st, summary, adSeen, hit)
			} else {
				st.Unmatched++
				st.UnmatchedIDs = append(st.UnmatchedIDs, o.OrderID)
			}
		}
		if cxIx != nil {
			st := summary.Sources[SourceCustoms]
			if hit, ok := cxIx.Match(deref(o.Assignment)); ok {
				ov := newCustomsOverlay(hit.Row, cxIx.Columns())
				ov.apply(o)
				addFields(i, ov.fields())
				markHit(st, summary, cxSeen, hit)
			} else {
				st.Unmatched++
				st.UnmatchedIDs = append(st.UnmatchedIDs, o.OrderID)
			}
		}
	}

	ids := make([]string, len(recs))
	for i, o := range recs {
		ids[i] = o.OrderID
	}
	existing, err := s.repo.FilterExisting(ctx, ids)
	if err != nil {
		s.finishRun(ctx, "consolidate", req.Actor, summary, start, "error")
		return nil, fmt.Errorf("consolidate: existence check: %w", err)
	}

	var plan UpsertPlan
	for i, o := range recs {
		if _, ok := existing[o.OrderID]; ok {
			fields := baseFields(o)
			for k, v := range overlayFields[i] {
				fields[k] = v
			}
			plan.Updates = append(plan.Updates, orders.FieldUpdate{OrderID: o.OrderID, Fields: fields})
		} else {
			plan.Inserts = append(plan.Inserts, o)
		}
	}

	s.writePlan(ctx, summary, plan)
	s.finishRun(ctx, "consolidate", req.Actor, summary, start, "success")
	s.enqueueRecalc(ctx, countriesOf(recs))
	return summary, nil
}

// UpdateOverlay runs a single external source against stored records. It
// never creates records: unmatched external keys are reported, not written.
func (s *Service) UpdateOverlay(ctx context.Context, req OverlayRequest) (*RunSummary, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	start := time.Now()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Sources:   make(map[Source]*SourceStats),
	}
	st := newSourceStats(len(req.Rows))
	summary.Sources[req.Source] = st

	runDate := parseRunDate(req.LogisticsDate)

	var (
		updates    []orders.FieldUpdate
		candidates []orders.Order
		matchedKey = make(map[string]struct{})
		rowSeen    = make(map[int]struct{})
		keys       []string
	)

	switch req.Source {
	case SourceLogistics:
		ix := NewLogisticsIndex(req.Rows)
		st.IndexedKeys = ix.Size()
		st.DuplicateKeys = ix.Duplicates()
		keys = ix.Keys()
		byOrder, err := s.repo.ListByOrderIDs(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("overlay %s: load candidates: %w", req.Source, err)
		}
		byPrealert, err := s.repo.ListByPrealertIDs(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("overlay %s: load candidates: %w", req.Source, err)
		}
		candidates = dedupeOrders(append(byOrder, byPrealert...))
		for _, o := range candidates {
			hit, ok := ix.Match(o.OrderID, deref(o.PrealertID))
			if !ok {
				continue
			}
			markHit(st, summary, rowSeen, hit)
			matchedKey[hit.Key] = struct{}{}
			updates = append(updates, orders.FieldUpdate{
				OrderID: o.OrderID,
				Fields:  newLogisticsOverlay(hit.Row, runDate).fields(),
			})
		}

	case SourceAditionals:
		ix := NewAditionalsIndex(req.Rows)
		st.IndexedKeys = ix.Size()
		st.DuplicateKeys = ix.Duplicates()
		keys = ix.Keys()
		var err error
		candidates, err = s.repo.ListByPrealertIDs(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("overlay %s: load candidates: %w", req.Source, err)
		}
		candidates = dedupeOrders(candidates)
		for _, o := range candidates {
			hit, ok := ix.Match(deref(o.PrealertID))
			if !ok {
				continue
			}
			markHit(st, summary, rowSeen, hit)
			matchedKey[hit.Key] = struct{}{}
			updates = append(updates, orders.FieldUpdate{
				OrderID: o.OrderID,
				Fields:  newAditionalsOverlay(hit.Row).fields(),
			})
		}

	case SourceCustoms:
		ix, err := NewCustomsIndex(customsHeaders(req.CustomsHeaders, req.Rows), req.Rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		st.IndexedKeys = ix.Size()
		st.DuplicateKeys = ix.Duplicates()
		keys = ix.Keys()
		candidates, err = s.repo.ListByAssignments(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("overlay %s: load candidates: %w", req.Source, err)
		}
		candidates = dedupeOrders(candidates)
		for _, o := range candidates {
			hit, ok := ix.Match(deref(o.Assignment))
			if !ok {
				continue
			}
			markHit(st, summary, rowSeen, hit)
			matchedKey[hit.Key] = struct{}{}
			updates = append(updates, orders.FieldUpdate{
				OrderID: o.OrderID,
				Fields:  newCustomsOverlay(hit.Row, ix.Columns()).fields(),
			})
		}
	}

	for _, k := range keys {
		if _, ok := matchedKey[k]; !ok {
			st.Unmatched++
			st.UnmatchedIDs = append(st.UnmatchedIDs, k)
		}
	}

	s.writePlan(ctx, summary, UpsertPlan{Updates: updates})
	s.finishRun(ctx, "overlay_update", req.Actor, summary, start, "success")
	s.enqueueRecalc(ctx, countriesOf(candidates))
	return summary, nil
}

// DuplicateScan lists order_ids stored more than once; report-only.
func (s *Service) DuplicateScan(ctx context.Context) ([]orders.DuplicateGroup, error) {
	return s.repo.DuplicateOrderIDs(ctx)
}

// writePlan submits the plan in fixed-size batches. A failed batch is
// recorded and skipped; the remaining batches still run.
func (s *Service) writePlan(ctx context.Context, summary *RunSummary, plan UpsertPlan) {
	for start := 0; start < len(plan.Inserts); start += s.batchSize {
		chunk := plan.Inserts[start:min(start+s.batchSize, len(plan.Inserts))]
		failed, err := s.repo.InsertBatch(ctx, chunk)
		if err != nil {
			s.logger.Error("insert batch failed", "run_id", summary.RunID, "rows", len(chunk), "error", err)
			for _, o := range chunk {
				summary.FailedIDs = append(summary.FailedIDs, o.OrderID)
			}
			continue
		}
		summary.FailedIDs = append(summary.FailedIDs, failed...)
		summary.Inserted += len(chunk) - len(failed)
	}
	for start := 0; start < len(plan.Updates); start += s.batchSize {
		chunk := plan.Updates[start:min(start+s.batchSize, len(plan.Updates))]
		failed, err := s.repo.UpdateBatch(ctx, chunk)
		if err != nil {
			s.logger.Error("update batch failed", "run_id", summary.RunID, "rows", len(chunk), "error", err)
			for _, u := range chunk {
				summary.FailedIDs = append(summary.FailedIDs, u.OrderID)
			}
			continue
		}
		summary.FailedIDs = append(summary.FailedIDs, failed...)
		summary.Updated += len(chunk) - len(failed)
	}
	summary.Failed = len(summary.FailedIDs)
}

// finishRun stamps the summary and emits metrics, logs and the audit row.
func (s *Service) finishRun(ctx context.Context, action, actor string, summary *RunSummary, start time.Time, status string) {
	summary.DurationMS = time.Since(start).Milliseconds()

	totalUnmatched := 0
	for source, st := range summary.Sources {
		for strategy, n := range st.Matched {
			s.metrics.MatchRecorded(string(source), string(strategy), n)
		}
		s.metrics.UnmatchedRecorded(string(source), st.Unmatched)
		totalUnmatched += st.Unmatched
	}
	s.metrics.RowsWritten("inserted", summary.Inserted)
	s.metrics.RowsWritten("updated", summary.Updated)
	s.metrics.RowsWritten("failed", summary.Failed)
	s.metrics.RunCompleted(action, status)

	s.logger.Info("ingestion run finished",
		"run_id", summary.RunID,
		"action", action,
		"status", status,
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"failed", summary.Failed,
		"unmatched", totalUnmatched,
		"warnings", summary.Warnings,
		"duration_ms", summary.DurationMS,
	)

	if s.audit == nil {
		return
	}
	entry := shared.ActivityLog{
		Actor:       actor,
		Action:      action,
		Description: fmt.Sprintf("run %s: %d inserted, %d updated, %d failed", summary.RunID, summary.Inserted, summary.Updated, summary.Failed),
		Source:      sourcesLabel(summary),
		RecordCount: summary.Inserted + summary.Updated,
		Status:      status,
		Counts: map[string]int{
			"inserted":  summary.Inserted,
			"updated":   summary.Updated,
			"failed":    summary.Failed,
			"unmatched": totalUnmatched,
			"warnings":  summary.Warnings,
		},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("audit record failed", "run_id", summary.RunID, "error", err)
	}
}

func (s *Service) enqueueRecalc(ctx context.Context, countries []accounts.Country) {
	if s.recalc == nil || len(countries) == 0 {
		return
	}
	if err := s.recalc.EnqueueRecalc(ctx, countries); err != nil {
		s.logger.Error("recalc enqueue failed", "error", err)
	}
}

func sourcesLabel(summary *RunSummary) string {
	names := make([]string, 0, len(summary.Sources))
	for source := range summary.Sources {
		names = append(names, string(source))
	}
	sort.Strings(names)
	label := ""
	for i, n := range names {
		if i > 0 {
			label += ","
		}
		label += n
	}
	return label
}

func countriesOf(recs []orders.Order) []accounts.Country {
	seen := make(map[accounts.Country]struct{})
	var out []accounts.Country
	for _, o := range recs {
		id, ok := accounts.Parse(string(o.AccountName))
		if !ok {
			continue
		}
		c := id.Country()
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func dedupeOrders(recs []orders.Order) []orders.Order {
	seen := make(map[string]struct{}, len(recs))
	out := recs[:0]
	for _, o := range recs {
		if _, dup := seen[o.OrderID]; dup {
			continue
		}
		seen[o.OrderID] = struct{}{}
		out = append(out, o)
	}
	return out
}

// markHit records a match and flags the external row when a previous record
// in the same run already consumed it.
func markHit(st *SourceStats, summary *RunSummary, seen map[int]struct{}, hit Hit) {
	st.Matched[hit.Strategy]++
	if _, dup := seen[hit.RowID]; dup {
		st.Reapplied++
		summary.Warnings++
		return
	}
	seen[hit.RowID] = struct{}{}
}
