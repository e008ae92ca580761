package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
	"github.com/jordymora1978/GSS-Utilidad/internal/shared"
)

// memRepo is an in-memory stand-in for the consolidated order table. It
// stores inserted records plus the raw field patches from updates so tests
// can assert on exactly what a run wrote.
type memRepo struct {
	mu      sync.Mutex
	recs    map[string]orders.Order
	patches map[string][]map[string]any

	failInserts bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		recs:    make(map[string]orders.Order),
		patches: make(map[string][]map[string]any),
	}
}

func (m *memRepo) FilterExisting(_ context.Context, ids []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := m.recs[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *memRepo) InsertBatch(_ context.Context, recs []orders.Order) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInserts {
		return nil, errors.New("storage unavailable")
	}
	for _, o := range recs {
		if _, dup := m.recs[o.OrderID]; dup {
			continue
		}
		m.recs[o.OrderID] = o
	}
	return nil, nil
}

func (m *memRepo) UpdateBatch(_ context.Context, updates []orders.FieldUpdate) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var failed []string
	for _, u := range updates {
		if _, ok := m.recs[u.OrderID]; !ok {
			failed = append(failed, u.OrderID)
			continue
		}
		m.patches[u.OrderID] = append(m.patches[u.OrderID], u.Fields)
	}
	return failed, nil
}

func (m *memRepo) Get(_ context.Context, id string) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.recs[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return &o, nil
}

func (m *memRepo) ListByOrderIDs(_ context.Context, ids []string) ([]orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []orders.Order
	for _, id := range ids {
		if o, ok := m.recs[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) ListByPrealertIDs(_ context.Context, ids []string) ([]orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []orders.Order
	for _, o := range m.recs {
		if o.PrealertID == nil {
			continue
		}
		if _, ok := want[*o.PrealertID]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) ListByAssignments(_ context.Context, keys []string) ([]orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	var out []orders.Order
	for _, o := range m.recs {
		if o.Assignment == nil {
			continue
		}
		if _, ok := want[*o.Assignment]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) List(context.Context, orders.ListRequest) ([]orders.Order, error) {
	return nil, nil
}

func (m *memRepo) ListRefunded(context.Context, time.Time, time.Time) ([]orders.Order, error) {
	return nil, nil
}

func (m *memRepo) DuplicateOrderIDs(context.Context) ([]orders.DuplicateGroup, error) {
	return nil, nil
}

type memAuditor struct {
	mu      sync.Mutex
	entries []shared.ActivityLog
}

func (a *memAuditor) Record(_ context.Context, entry shared.ActivityLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

type memRecalc struct {
	mu    sync.Mutex
	calls [][]accounts.Country
}

func (r *memRecalc) EnqueueRecalc(_ context.Context, countries []accounts.Country) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, countries)
	return nil
}

func newTestService(repo orders.Repository, audit Auditor) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo, audit, nil, 2)
}

func consolidateFixture() ConsolidateRequest {
	return ConsolidateRequest{
		Actor: "tester",
		Base: []Row{
			{
				"order_id":          "1001",
				"prealert_id":       "501",
				"Serial#":           "5390",
				"account_name":      "3-VEENDELO",
				"order_status_meli": "approved",
				"quantity":          "1",
				"Declare Value":     "10",
			},
			{
				"order_id":          "1002",
				"prealert_id":       "502",
				"Serial#":           "7700",
				"account_name":      "1-TODOENCARGO-CO",
				"order_status_meli": "approved",
				"quantity":          "1",
				"Declare Value":     "15",
			},
		},
		Logistics: []Row{
			{"Reference": "1001", "Guide Number": "G-1", "Total": "5.5"},
		},
		Aditionals: []Row{
			{"Order Id": "502", "Description": "repack", "Total": "2"},
		},
		Customs: []Row{
			{"Ref #": "VEEN5390", "Amt. Due": "12", "IVA": "1.9"},
		},
	}
}

func TestConsolidateInsertsAndJoins(t *testing.T) {
	repo := newMemRepo()
	audit := &memAuditor{}
	svc := newTestService(repo, audit)
	recalc := &memRecalc{}
	svc.SetRecalculator(recalc)

	summary, err := svc.Consolidate(context.Background(), consolidateFixture())
	require.NoError(t, err)

	require.Equal(t, 2, summary.Inserted)
	require.Zero(t, summary.Updated)
	require.Zero(t, summary.Failed)
	require.Equal(t, 1, summary.Sources[SourceLogistics].Matched[StrategyOrderIDReference])
	require.Equal(t, 1, summary.Sources[SourceLogistics].Unmatched)
	require.Equal(t, 1, summary.Sources[SourceAditionals].Matched[StrategyPrealertAditionals])
	require.Equal(t, 1, summary.Sources[SourceCustoms].Matched[StrategyAssignmentRef])

	stored, err := repo.Get(context.Background(), "1001")
	require.NoError(t, err)
	require.Equal(t, "G-1", *stored.LogisticsGuideNumber)
	require.InDelta(t, 12.0, *stored.CxpAmtDue, 1e-9)
	require.Equal(t, "VEEN5390", *stored.Assignment)

	other, err := repo.Get(context.Background(), "1002")
	require.NoError(t, err)
	require.Nil(t, other.LogisticsGuideNumber)
	require.Equal(t, "repack", *other.AditionalsDescription)

	require.Len(t, audit.entries, 1)
	require.Equal(t, "consolidate", audit.entries[0].Action)
	require.Len(t, recalc.calls, 1)
	require.ElementsMatch(t, []accounts.Country{accounts.Chile, accounts.Colombia}, recalc.calls[0])
}

func TestConsolidateRunTwiceIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	req := consolidateFixture()

	first, err := svc.Consolidate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, first.Inserted)

	second, err := svc.Consolidate(context.Background(), req)
	require.NoError(t, err)
	require.Zero(t, second.Inserted)
	require.Equal(t, 2, second.Updated)
	require.Zero(t, second.Failed)
	require.Len(t, repo.recs, 2)

	// The replayed run patches the same values it inserted.
	patches := repo.patches["1001"]
	require.Len(t, patches, 1)
	require.Equal(t, "G-1", *patches[0]["logistics_guide_number"].(*string))
	require.InDelta(t, 12.0, *patches[0]["cxp_amt_due"].(*float64), 1e-9)
}

func TestConsolidateBatchFailureIsIsolated(t *testing.T) {
	repo := newMemRepo()
	repo.failInserts = true
	svc := newTestService(repo, nil)

	summary, err := svc.Consolidate(context.Background(), consolidateFixture())
	require.NoError(t, err, "a failed write batch must not fail the run")
	require.Zero(t, summary.Inserted)
	require.Equal(t, 2, summary.Failed)
	require.ElementsMatch(t, []string{"1001", "1002"}, summary.FailedIDs)
}

func TestConsolidateSkipsCustomsWithoutRefColumn(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	req := consolidateFixture()
	req.Customs = []Row{{"Amt. Due": "12"}}

	summary, err := svc.Consolidate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Inserted)
	require.NotEmpty(t, summary.Sources[SourceCustoms].Note)

	stored, err := repo.Get(context.Background(), "1001")
	require.NoError(t, err)
	require.Nil(t, stored.CxpAmtDue)
}

func TestConsolidateRejectsEmptyBase(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	_, err := svc.Consolidate(context.Background(), ConsolidateRequest{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestUpdateOverlayLogistics(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Consolidate(context.Background(), consolidateFixture())
	require.NoError(t, err)

	summary, err := svc.UpdateOverlay(context.Background(), OverlayRequest{
		Actor:  "tester",
		Source: SourceLogistics,
		Rows: []Row{
			{"Reference": "1002", "Guide Number": "G-9", "Total": "7.75"},
			{"Reference": "9999", "Guide Number": "G-X"},
		},
		LogisticsDate: "2026-02-01",
	})
	require.NoError(t, err)

	st := summary.Sources[SourceLogistics]
	require.Equal(t, 1, st.Matched[StrategyOrderIDReference])
	require.Equal(t, 1, st.Unmatched)
	require.Contains(t, st.UnmatchedIDs, "9999")
	require.Equal(t, 1, summary.Updated)

	patches := repo.patches["1002"]
	require.NotEmpty(t, patches)
	last := patches[len(patches)-1]
	require.Equal(t, "G-9", *last["logistics_guide_number"].(*string))
	require.InDelta(t, 7.75, *last["logistics_total"].(*float64), 1e-9)
	require.Equal(t,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		*last["logistics_date"].(*time.Time))
	// Update-only runs never touch base or foreign-overlay columns.
	_, hasBase := last["declare_value"]
	require.False(t, hasBase)
}

func TestUpdateOverlayCustomsByAssignment(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Consolidate(context.Background(), consolidateFixture())
	require.NoError(t, err)

	summary, err := svc.UpdateOverlay(context.Background(), OverlayRequest{
		Actor:  "tester",
		Source: SourceCustoms,
		Rows: []Row{
			{"Ref #": "VEEN 5390", "Amt. Due": "14", "Arancel": "2.1"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Updated)
	require.Equal(t, 1, summary.Sources[SourceCustoms].Matched[StrategyAssignmentRef])

	patches := repo.patches["1001"]
	require.NotEmpty(t, patches)
	last := patches[len(patches)-1]
	require.InDelta(t, 14.0, *last["cxp_amt_due"].(*float64), 1e-9)
	require.InDelta(t, 2.1, *last["cxp_arancel"].(*float64), 1e-9)
}

func TestUpdateOverlayUnmatchedCountsOnlyHitKey(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Consolidate(context.Background(), consolidateFixture())
	require.NoError(t, err)

	// Order 1001 consumes the first row by order_id. Its prealert_id keys
	// the second row, which stays unmatched.
	summary, err := svc.UpdateOverlay(context.Background(), OverlayRequest{
		Actor:  "tester",
		Source: SourceLogistics,
		Rows: []Row{
			{"Reference": "1001", "Guide Number": "G-1"},
			{"Order number": "501", "Guide Number": "G-2"},
		},
	})
	require.NoError(t, err)

	st := summary.Sources[SourceLogistics]
	require.Equal(t, 1, st.Matched[StrategyOrderIDReference])
	require.Equal(t, 1, st.Unmatched)
	require.Equal(t, []string{"501"}, st.UnmatchedIDs)
	require.Equal(t, 1, summary.Updated)
}

func TestConsolidateFlagsReappliedRow(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	req := consolidateFixture()
	// One carrier row reachable from both records: 1001 through Reference,
	// 1002 through its prealert_id against Order number.
	req.Logistics = []Row{
		{"Reference": "1001", "Order number": "502", "Guide Number": "G-1", "Total": "5.5"},
	}

	summary, err := svc.Consolidate(context.Background(), req)
	require.NoError(t, err)

	st := summary.Sources[SourceLogistics]
	require.Equal(t, 1, st.Matched[StrategyOrderIDReference])
	require.Equal(t, 1, st.Matched[StrategyPrealertOrderNum])
	require.Zero(t, st.Unmatched)
	require.Equal(t, 1, st.Reapplied)
	require.Equal(t, 1, summary.Warnings)
}

func TestUpdateOverlayFlagsReappliedRow(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Consolidate(context.Background(), consolidateFixture())
	require.NoError(t, err)

	summary, err := svc.UpdateOverlay(context.Background(), OverlayRequest{
		Actor:  "tester",
		Source: SourceLogistics,
		Rows: []Row{
			{"Reference": "1001", "Order number": "502", "Guide Number": "G-3"},
		},
	})
	require.NoError(t, err)

	st := summary.Sources[SourceLogistics]
	require.Equal(t, 1, st.Matched[StrategyOrderIDReference])
	require.Equal(t, 1, st.Matched[StrategyPrealertOrderNum])
	require.Equal(t, 1, st.Reapplied)
	require.Equal(t, 1, summary.Warnings)
	require.Equal(t, 2, summary.Updated)
	require.Zero(t, st.Unmatched)
}

func TestUpdateOverlayRejectsUnknownSource(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	_, err := svc.UpdateOverlay(context.Background(), OverlayRequest{
		Source: "mystery",
		Rows:   []Row{{"a": "b"}},
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
}
