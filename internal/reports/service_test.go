package reports

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
	"github.com/jordymora1978/GSS-Utilidad/internal/profit"
)

var testRates = profit.Rates{
	accounts.Colombia: 4000.0,
	accounts.Peru:     4.0,
	accounts.Chile:    1000.0,
}

type fakeRates struct{}

func (fakeRates) CurrentRates(context.Context) (profit.Rates, error) {
	return testRates, nil
}

// memRepo serves canned orders and records the list requests it saw.
type memRepo struct {
	recs     []orders.Order
	refunded []orders.Order
	requests []orders.ListRequest
}

func (m *memRepo) List(_ context.Context, req orders.ListRequest) ([]orders.Order, error) {
	m.requests = append(m.requests, req)
	wanted := make(map[accounts.Identity]struct{}, len(req.Accounts))
	for _, id := range req.Accounts {
		wanted[id] = struct{}{}
	}
	var out []orders.Order
	for _, o := range m.recs {
		if _, ok := wanted[o.AccountName]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) ListRefunded(_ context.Context, from, to time.Time) ([]orders.Order, error) {
	return m.refunded, nil
}

func (m *memRepo) FilterExisting(context.Context, []string) (map[string]struct{}, error) {
	return nil, nil
}
func (m *memRepo) InsertBatch(context.Context, []orders.Order) ([]string, error) { return nil, nil }
func (m *memRepo) UpdateBatch(context.Context, []orders.FieldUpdate) ([]string, error) {
	return nil, nil
}
func (m *memRepo) Get(context.Context, string) (*orders.Order, error)            { return nil, nil }
func (m *memRepo) ListByOrderIDs(context.Context, []string) ([]orders.Order, error) { return nil, nil }
func (m *memRepo) ListByPrealertIDs(context.Context, []string) ([]orders.Order, error) {
	return nil, nil
}
func (m *memRepo) ListByAssignments(context.Context, []string) ([]orders.Order, error) {
	return nil, nil
}
func (m *memRepo) DuplicateOrderIDs(context.Context) ([]orders.DuplicateGroup, error) {
	return nil, nil
}

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func newTestService(repo *memRepo) *Service {
	return NewService(slog.New(slog.DiscardHandler), repo, fakeRates{})
}

func testPeriod() Period {
	return Period{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestGroupReportDTPTSplit(t *testing.T) {
	// Net 100000 COP at 4000 is 25 USD; utility 25-5-2-1 = 17, split 7.5/9.5.
	// The second order stays below the cap: utility 20-14-2-1 = 3.
	repo := &memRepo{recs: []orders.Order{
		{
			OrderID:        "3001",
			AccountName:    accounts.Detodoparatodos,
			OrderStatus:    orders.OrderStatusApproved,
			Quantity:       1,
			NetReceived:    f(100000),
			DeclareValue:   f(5),
			LogisticsTotal: f(2),
		},
		{
			OrderID:        "3002",
			AccountName:    accounts.Comprafacil,
			OrderStatus:    orders.OrderStatusApproved,
			Quantity:       2,
			NetReceived:    f(80000),
			DeclareValue:   f(7),
			LogisticsTotal: f(2),
		},
	}}
	svc := newTestService(repo)

	report, err := svc.Group(context.Background(), GroupDTPT, testPeriod())
	require.NoError(t, err)

	require.Equal(t, 2, report.Totals.Rows)
	require.Equal(t, 2, report.Totals.Approved)
	require.InDelta(t, 20.0, report.Totals.ProfitTotal, 1e-9)
	require.InDelta(t, 10.5, report.Totals.PartnerTotal, 1e-9)
	require.InDelta(t, 9.5, report.Totals.OperatorTotal, 1e-9)
	require.InDelta(t, 2.0, report.Totals.BillingTaxTotal, 1e-9)
	require.Equal(t, 1, report.Totals.HighValueOrders)
	require.Equal(t, map[string]float64{"colombia": 4000}, report.Rates)

	// The group reads the carrier delivery date column.
	require.Len(t, repo.requests, 1)
	require.Equal(t, "logistics_date", repo.requests[0].DateField)
	require.ElementsMatch(t,
		[]accounts.Identity{accounts.Detodoparatodos, accounts.Comprafacil, accounts.CompraYa},
		repo.requests[0].Accounts)
}

func TestGroupReportChileUsesCustomsDate(t *testing.T) {
	cxpDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &memRepo{recs: []orders.Order{
		{
			OrderID:      "4001",
			AccountName:  accounts.Veendelo,
			OrderStatus:  orders.OrderStatusApproved,
			Quantity:     1,
			NetReceived:  f(30000),
			DeclareValue: f(10),
			CxpAmtDue:    f(8),
			CxpDate:      &cxpDate,
		},
	}}
	svc := newTestService(repo)

	report, err := svc.Group(context.Background(), GroupMegatiendaVeendelo, testPeriod())
	require.NoError(t, err)

	require.Equal(t, "cxp_date", repo.requests[0].DateField)
	require.Len(t, report.Lines, 1)
	require.Equal(t, &cxpDate, report.Lines[0].Date)
	// 30 - 10 - 8 - 1 partner fee, no drop-off surcharge.
	approx(t, report.Lines[0].ProfitTotal, 11.0)
}

func TestGroupReportUnpriceableRowYieldsZero(t *testing.T) {
	repo := &memRepo{recs: []orders.Order{
		{
			// No logistics charge yet, so the row is not priceable.
			OrderID:     "5001",
			AccountName: accounts.TodoencargoCO,
			OrderStatus: orders.OrderStatusApproved,
			Quantity:    1,
			NetReceived: f(1),
		},
		{
			OrderID:        "5002",
			AccountName:    accounts.TodoencargoCO,
			OrderStatus:    orders.OrderStatusApproved,
			Quantity:       1,
			NetReceived:    f(80000),
			DeclareValue:   f(5),
			LogisticsTotal: f(10),
		},
	}}
	svc := newTestService(repo)

	report, err := svc.Group(context.Background(), GroupTodoencargo, testPeriod())
	require.NoError(t, err)
	require.Equal(t, 2, report.Totals.Rows)
	require.Zero(t, report.Totals.Skipped)
	// The unpriceable row contributes zero, the priced row 20-5-10.
	require.InDelta(t, 5.0, report.Totals.ProfitTotal, 1e-9)
}

func TestGroupReportFaborcargoWeights(t *testing.T) {
	repo := &memRepo{recs: []orders.Order{
		{
			OrderID:     "6001",
			AccountName: accounts.Faborcargo,
			OrderStatus: orders.OrderStatusApproved,
			Quantity:    1,
			WeightLbs:   f(2 * 2.20462),
			CxpAmtDue:   f(30),
			CxpArancel:  f(10),
			CxpIVA:      f(4),
		},
	}}
	svc := newTestService(repo)

	report, err := svc.Group(context.Background(), GroupFaborcargo, testPeriod())
	require.NoError(t, err)

	require.Len(t, report.Lines, 1)
	approx(t, report.Lines[0].WeightKg, 2.0)
	// Handling fee 51.25 for 2.0 kg, plus duty and tax, minus amount due.
	approx(t, report.Lines[0].ProfitTotal, 51.25+10+4-30)
	require.InDelta(t, 2.0, report.Totals.AvgWeightKg, 1e-9)
}

func TestGroupReportUnknownGroup(t *testing.T) {
	svc := newTestService(&memRepo{})
	_, err := svc.Group(context.Background(), Group("nope"), testPeriod())
	require.ErrorIs(t, err, ErrUnknownGroup)
}

func TestGlobalReportRollsUpByCountry(t *testing.T) {
	repo := &memRepo{recs: []orders.Order{
		{
			OrderID:        "7001",
			AccountName:    accounts.TodoencargoCO,
			OrderStatus:    orders.OrderStatusApproved,
			Quantity:       1,
			NetReceived:    f(80000),
			DeclareValue:   f(5),
			LogisticsTotal: f(10),
		},
		{
			OrderID:      "7002",
			AccountName:  accounts.MegatiendaSPA,
			OrderStatus:  orders.OrderStatusApproved,
			Quantity:     1,
			NetReceived:  f(30000),
			DeclareValue: f(10),
			CxpAmtDue:    f(8),
		},
	}}
	svc := newTestService(repo)

	report, err := svc.Global(context.Background(), testPeriod())
	require.NoError(t, err)

	// One list request per group, each on its own date column.
	require.Len(t, repo.requests, len(AllGroups))
	require.Equal(t, 2, report.Totals.Rows)
	require.InDelta(t, 5.0, report.CountryTotals[accounts.Colombia], 1e-9)
	require.InDelta(t, 11.0, report.CountryTotals[accounts.Chile], 1e-9)
	require.Len(t, report.AccountTotals, 2)
	require.Equal(t, accounts.TodoencargoCO, report.AccountTotals[0].AccountName)
}

func TestRefundsReport(t *testing.T) {
	refundedAt := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	repo := &memRepo{refunded: []orders.Order{
		{
			// Settled utility 20-5-2 = 13, all on the operator side.
			OrderID:        "8001",
			AccountName:    accounts.TodoencargoCO,
			OrderStatus:    orders.OrderStatusRefunded,
			Quantity:       1,
			AmzOrderID:     s("111-222"),
			RefundedDate:   &refundedAt,
			NetReceived:    f(80000),
			DeclareValue:   f(5),
			LogisticsTotal: f(2),
		},
		{
			// Utility 25-5-2-1 = 17, split 7.5 partner, 9.5 operator.
			OrderID:        "8002",
			AccountName:    accounts.Detodoparatodos,
			OrderStatus:    orders.OrderStatusRefunded,
			Quantity:       1,
			AmzOrderID:     s("111-333"),
			RefundedDate:   &refundedAt,
			NetReceived:    f(100000),
			DeclareValue:   f(5),
			LogisticsTotal: f(2),
		},
		{
			// The carrier account never appears in the refunds report.
			OrderID:     "8003",
			AccountName: accounts.Faborcargo,
			OrderStatus: orders.OrderStatusRefunded,
			Quantity:    1,
			AmzOrderID:  s("111-444"),
		},
	}}
	svc := newTestService(repo)

	report, err := svc.Refunds(context.Background(), testPeriod())
	require.NoError(t, err)

	require.Equal(t, 2, report.Count)
	require.Len(t, report.Lines, 2)
	require.InDelta(t, 7.5, report.ReversalPartner, 1e-9)
	require.InDelta(t, 13.0+9.5, report.ReversalGss, 1e-9)
	require.InDelta(t, -(5.0+2.0)-(5.0+2.0+1.0), report.LossTotal, 1e-9)

	first := report.Lines[0]
	require.Equal(t, "8001", first.OrderID)
	require.Equal(t, "111-222", first.AmzOrderID)
	require.InDelta(t, 13.0, first.Utility, 1e-9)
	require.InDelta(t, -7.0, first.Loss, 1e-9)
}

func approx(t *testing.T, got *float64, want float64) {
	t.Helper()
	require.NotNil(t, got)
	require.InDelta(t, want, *got, 1e-9)
}
