package profit

import (
	"errors"
	"math"
	"testing"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
)

func approxVal(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestReversalSimpleWaivesPerOrderFee(t *testing.T) {
	// Same order through the approved path would have paid no fee either;
	// the point is that the utility here is the as-if-approved one, not the
	// negated refund profit.
	o := orders.Order{
		AccountName:     accounts.TodoencargoCO,
		OrderStatus:     orders.OrderStatusRefunded,
		DeclareValue:    f(10),
		Quantity:        1,
		LogisticsTotal:  f(5),
		AditionalsTotal: f(2),
		NetReceived:     f(120000), // 30 USD at rate 4000
	}
	r, err := CalculateReversal(o, testRates)
	if err != nil {
		t.Fatalf("CalculateReversal returned error: %v", err)
	}
	approxVal(t, r.NetUSD, 30)
	approxVal(t, r.Utility, 13) // 30 - 10 - 5 - 2
	approxVal(t, r.Partner, 0)
	approxVal(t, r.Operator, 13)
	approxVal(t, r.Loss, -17)
}

func TestReversalPartnerFeeAccountDropsFee(t *testing.T) {
	o := orders.Order{
		AccountName:     accounts.MegaTiendasPeruanas,
		OrderStatus:     orders.OrderStatusRefunded,
		DeclareValue:    f(8),
		Quantity:        1,
		LogisticsTotal:  f(4),
		NetReceived:     f(100), // 25 USD at rate 4
	}
	r, err := CalculateReversal(o, testRates)
	if err != nil {
		t.Fatalf("CalculateReversal returned error: %v", err)
	}
	// No partner fee in the reversal utility: 25 - 8 - 4.
	approxVal(t, r.Utility, 13)
	approxVal(t, r.Operator, 13)
	approxVal(t, r.Loss, -12)
}

func TestReversalRevenueSplitKeepsBillingTaxAndSplits(t *testing.T) {
	o := orders.Order{
		AccountName:    accounts.Detodoparatodos,
		OrderStatus:    orders.OrderStatusRefunded,
		DeclareValue:   f(10),
		Quantity:       1,
		LogisticsTotal: f(5),
		NetReceived:    f(132000), // 33 USD at rate 4000
	}
	r, err := CalculateReversal(o, testRates)
	if err != nil {
		t.Fatalf("CalculateReversal returned error: %v", err)
	}
	approxVal(t, r.Utility, 17) // 33 - 10 - 5 - 1
	approxVal(t, r.Partner, 7.5)
	approxVal(t, r.Operator, 9.5)
	approxVal(t, r.Loss, -16) // billing tax stays in the sunk cost
}

func TestReversalRevenueSplitBelowCapAllPartner(t *testing.T) {
	o := orders.Order{
		AccountName:    accounts.Comprafacil,
		OrderStatus:    orders.OrderStatusRefunded,
		DeclareValue:   f(10),
		Quantity:       1,
		LogisticsTotal: f(5),
		NetReceived:    f(80000), // 20 USD at rate 4000
	}
	r, err := CalculateReversal(o, testRates)
	if err != nil {
		t.Fatalf("CalculateReversal returned error: %v", err)
	}
	approxVal(t, r.Utility, 4) // 20 - 10 - 5 - 1
	approxVal(t, r.Partner, 4)
	approxVal(t, r.Operator, 0)
}

func TestReversalDropOffChargesWarehouseFee(t *testing.T) {
	lt := orders.LogisticTypeDropOff
	o := orders.Order{
		AccountName:  accounts.MegatiendaSPA,
		OrderStatus:  orders.OrderStatusRefunded,
		DeclareValue: f(6),
		Quantity:     1,
		CxpAmtDue:    f(3),
		LogisticType: &lt,
		NetReceived:  f(20000), // 20 USD at rate 1000
	}
	r, err := CalculateReversal(o, testRates)
	if err != nil {
		t.Fatalf("CalculateReversal returned error: %v", err)
	}
	approxVal(t, r.Utility, 7.5) // 20 - 6 - 3 - 3.5
	approxVal(t, r.Operator, 7.5)
	approxVal(t, r.Loss, -12.5)
}

func TestReversalCarrierAccountHasNothingToReverse(t *testing.T) {
	o := orders.Order{
		AccountName: accounts.Faborcargo,
		OrderStatus: orders.OrderStatusRefunded,
	}
	_, err := CalculateReversal(o, testRates)
	if !errors.Is(err, ErrNoReversal) {
		t.Fatalf("expected ErrNoReversal, got %v", err)
	}
}

func TestReversalMissingRate(t *testing.T) {
	o := orders.Order{
		AccountName: accounts.TodoencargoCO,
		NetReceived: f(1000),
	}
	_, err := CalculateReversal(o, Rates{})
	if !errors.Is(err, ErrMissingRate) {
		t.Fatalf("expected ErrMissingRate, got %v", err)
	}
}
