package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/httpx"
	"github.com/jordymora1978/GSS-Utilidad/internal/profit"
)

var (
	ErrUnknownGroup   = fmt.Errorf("unknown report group: %w", httpx.ErrNotFound)
	ErrInvalidRequest = fmt.Errorf("invalid report request: %w", httpx.ErrValidation)
)

// RateSource yields the current rate set for a report run. Satisfied by the
// rates service.
type RateSource interface {
	CurrentRates(ctx context.Context) (profit.Rates, error)
}

// Service recomputes period reports from stored orders and current rates.
type Service struct {
	logger *slog.Logger
	repo   orders.Repository
	rates  RateSource
}

func NewService(logger *slog.Logger, repo orders.Repository, rates RateSource) *Service {
	return &Service{logger: logger, repo: repo, rates: rates}
}

// Period is an inclusive date range. A zero period defaults to the current
// calendar month.
type Period struct {
	From time.Time
	To   time.Time
}

// normalize fills a zero period with the current month and orders the bounds.
func (p Period) normalize(now time.Time) Period {
	if p.From.IsZero() && p.To.IsZero() {
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{From: first, To: first.AddDate(0, 1, -1)}
	}
	if p.To.IsZero() {
		p.To = p.From
	}
	if p.From.IsZero() {
		p.From = p.To
	}
	if p.To.Before(p.From) {
		p.From, p.To = p.To, p.From
	}
	return p
}

// Group builds the period report for one account group.
func (s *Service) Group(ctx context.Context, group Group, period Period) (*GroupReport, error) {
	spec, ok := groupSpecs[group]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	period = period.normalize(time.Now())

	rates, err := s.rates.CurrentRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}

	recs, err := s.repo.List(ctx, orders.ListRequest{
		Accounts:  spec.accounts,
		DateField: spec.dateField,
		DateFrom:  &period.From,
		DateTo:    &period.To,
	})
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	report := &GroupReport{
		Group: group,
		From:  period.From,
		To:    period.To,
		Rates: ratesUsed(rates, spec.accounts),
		Lines: make([]Line, 0, len(recs)),
	}
	var weightSum float64
	var weightRows int
	for _, o := range recs {
		d, err := profit.Calculate(o, rates)
		if err != nil {
			report.Totals.Skipped++
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", o.OrderID, err))
			continue
		}
		line := buildLine(o, d, rates, spec.dateField)
		report.Lines = append(report.Lines, line)
		accumulate(&report.Totals, o, d)
		if d.WeightKg != nil {
			weightSum += *d.WeightKg
			weightRows++
		}
	}
	if weightRows > 0 {
		report.Totals.AvgWeightKg = weightSum / float64(weightRows)
	}

	s.logger.Info("group report built",
		"group", group,
		"from", period.From.Format("2006-01-02"),
		"to", period.To.Format("2006-01-02"),
		"rows", report.Totals.Rows,
		"skipped", report.Totals.Skipped,
	)
	return report, nil
}

// Global builds the cross-account report, reading each group on its own
// date column and rolling totals up by country and account.
func (s *Service) Global(ctx context.Context, period Period) (*GlobalReport, error) {
	period = period.normalize(time.Now())

	rates, err := s.rates.CurrentRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}

	report := &GlobalReport{
		From:          period.From,
		To:            period.To,
		CountryTotals: make(map[accounts.Country]float64),
	}
	perAccount := make(map[accounts.Identity]*AccountTotal)

	for _, group := range AllGroups {
		spec := groupSpecs[group]
		recs, err := s.repo.List(ctx, orders.ListRequest{
			Accounts:  spec.accounts,
			DateField: spec.dateField,
			DateFrom:  &period.From,
			DateTo:    &period.To,
		})
		if err != nil {
			return nil, fmt.Errorf("load orders for %s: %w", group, err)
		}
		for _, o := range recs {
			d, err := profit.Calculate(o, rates)
			if err != nil {
				report.Totals.Skipped++
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", o.OrderID, err))
				continue
			}
			accumulate(&report.Totals, o, d)

			p := deref(d.ProfitTotal)
			report.CountryTotals[o.AccountName.Country()] += p
			at, ok := perAccount[o.AccountName]
			if !ok {
				at = &AccountTotal{AccountName: o.AccountName}
				perAccount[o.AccountName] = at
			}
			at.Rows++
			at.ProfitTotal += p
		}
	}

	for _, id := range accounts.All {
		if at, ok := perAccount[id]; ok {
			report.AccountTotals = append(report.AccountTotals, *at)
		}
	}
	return report, nil
}

// Refunds builds the marketplace refunds report: refunded orders with a
// marketplace order id, the carrier account excluded, bracketed by
// refunded_date.
func (s *Service) Refunds(ctx context.Context, period Period) (*RefundReport, error) {
	period = period.normalize(time.Now())

	rates, err := s.rates.CurrentRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}

	recs, err := s.repo.ListRefunded(ctx, period.From, period.To)
	if err != nil {
		return nil, fmt.Errorf("load refunded orders: %w", err)
	}

	report := &RefundReport{From: period.From, To: period.To}
	for _, o := range recs {
		if o.AccountName == accounts.Faborcargo {
			continue
		}
		rev, err := profit.CalculateReversal(o, rates)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", o.OrderID, err))
			continue
		}
		line := RefundLine{
			OrderID:         o.OrderID,
			AccountName:     o.AccountName,
			AmzOrderID:      deref(o.AmzOrderID),
			RefundedDate:    o.RefundedDate,
			Rate:            rates[o.AccountName.Country()],
			NetUSD:          rev.NetUSD,
			Utility:         rev.Utility,
			ReversalPartner: rev.Partner,
			ReversalGss:     rev.Operator,
			Loss:            rev.Loss,
		}
		report.Lines = append(report.Lines, line)
		report.Count++
		report.ReversalPartner += rev.Partner
		report.ReversalGss += rev.Operator
		report.LossTotal += rev.Loss
	}
	return report, nil
}

// buildLine projects one stored order plus its derived fields onto a report
// row, picking the group's date column as the display date.
func buildLine(o orders.Order, d profit.Derived, rates profit.Rates, dateField string) Line {
	date := o.LogisticsDate
	if dateField == "cxp_date" {
		date = o.CxpDate
	}
	return Line{
		OrderID:         o.OrderID,
		AccountName:     o.AccountName,
		PrealertID:      o.PrealertID,
		Assignment:      o.Assignment,
		Date:            date,
		OrderStatus:     string(o.OrderStatus),
		NetReceived:     o.NetReceived,
		DeclareValue:    o.DeclareValue,
		Quantity:        o.Quantity,
		LogisticsTotal:  o.LogisticsTotal,
		AditionalsTotal: o.AditionalsTotal,
		CxpAmtDue:       o.CxpAmtDue,
		WeightLbs:       o.WeightLbs,
		Rate:            rates[o.AccountName.Country()],
		NetUSD:          d.NetUSD,
		WeightKg:        d.WeightKg,
		BillingTax:      d.BillingTax,
		WarehouseFee:    d.WarehouseFee,
		PartnerFee:      d.PartnerFee,
		ProfitTotal:     d.ProfitTotal,
		PartnerShare:    d.PartnerShare,
		OperatorShare:   d.OperatorShare,
	}
}

// highValueThreshold mirrors the partner split cap for the high-value order
// counter shown on the revenue-split report.
const highValueThreshold = 7.5

func accumulate(t *Totals, o orders.Order, d profit.Derived) {
	t.Rows++
	switch o.OrderStatus {
	case orders.OrderStatusApproved:
		t.Approved++
	case orders.OrderStatusRefunded:
		t.Refunded++
	}
	p := deref(d.ProfitTotal)
	t.ProfitTotal += p
	t.PartnerTotal += deref(d.PartnerShare)
	t.OperatorTotal += deref(d.OperatorShare)
	t.BillingTaxTotal += deref(d.BillingTax)
	t.WarehouseTotal += deref(d.WarehouseFee)
	if d.PartnerShare != nil && p >= highValueThreshold {
		t.HighValueOrders++
	}
}

// ratesUsed narrows the rate set to the countries the group settles in.
func ratesUsed(rates profit.Rates, ids []accounts.Identity) map[string]float64 {
	used := make(map[string]float64)
	for _, id := range ids {
		c := id.Country()
		if v, ok := rates[c]; ok {
			used[string(c)] = v
		}
	}
	return used
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
