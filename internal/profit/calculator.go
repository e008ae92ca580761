// Package profit derives the monetary outcome of a consolidated order. The
// calculation is a pure function of the record and the current currency
// rates: no I/O, no clock, fully recomputable at any time.
package profit

import (
	"errors"
	"fmt"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
)

var (
	// ErrUnknownAccount flags a record whose account identity is not one of
	// the eight known sellers. Surfaced as a data-quality warning; the
	// record keeps zeroed derived fields.
	ErrUnknownAccount = errors.New("unknown account identity")
	// ErrMissingRate flags a missing currency rate for the record's country.
	ErrMissingRate = errors.New("missing currency rate")
)

const (
	// partnerFee is the fixed per-order partner deduction (families B and E).
	partnerFee = 1.0
	// billingTax is the fixed invoicing tax (family C), charged on refunds too.
	billingTax = 1.0
	// partnerShareCap is the revenue-split threshold (family C): the partner
	// keeps everything up to this amount, the operator keeps the excess.
	partnerShareCap = 7.5
	// warehouseFee is the drop-off surcharge on Chile-market orders.
	warehouseFee = 3.5
)

// Rates holds one current rate per country for a calculation run.
type Rates map[accounts.Country]float64

// Derived is the set of computed monetary fields for one order.
type Derived struct {
	NetUSD        *float64
	ProfitTotal   *float64
	PartnerShare  *float64
	OperatorShare *float64
	WeightKg      *float64
	BillingTax    *float64
	WarehouseFee  *float64
	PartnerFee    *float64
}

func ptr(v float64) *float64 { return &v }

// orZero treats an absent charge as zero. Only valid for the logistics and
// additional-charge totals, where absence means "no charge applied yet".
func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Calculate computes the derived fields for one order under the given rates.
// An unrecognized account returns ErrUnknownAccount with zeroed fields; a
// missing rate returns ErrMissingRate. Both are per-record conditions, never
// run-wide failures.
func Calculate(o orders.Order, rates Rates) (Derived, error) {
	id, ok := accounts.Parse(string(o.AccountName))
	if !ok {
		return Derived{ProfitTotal: ptr(0)}, fmt.Errorf("%w: %q", ErrUnknownAccount, o.AccountName)
	}

	family := id.Family()

	var rate float64
	if family != accounts.FamilyCarrierNet {
		// Family D has no revenue term and never converts currency.
		rate, ok = rates[id.Country()]
		if !ok || rate == 0 {
			return Derived{}, fmt.Errorf("%w: %s", ErrMissingRate, id.Country())
		}
	}

	switch family {
	case accounts.FamilySimple:
		return calcSimple(o, rate, 0), nil
	case accounts.FamilyPartnerFee:
		return calcPartnerFee(o, rate), nil
	case accounts.FamilyRevenueSplit:
		return calcRevenueSplit(o, rate), nil
	case accounts.FamilyCarrierNet:
		return calcCarrierNet(o), nil
	case accounts.FamilyDropOff:
		return calcDropOff(o, rate), nil
	}
	return Derived{ProfitTotal: ptr(0)}, fmt.Errorf("%w: %q", ErrUnknownAccount, o.AccountName)
}

func goodsCost(o orders.Order) float64 {
	qty := o.Quantity
	if qty == 0 {
		qty = 1
	}
	return orZero(o.DeclareValue) * float64(qty)
}

// calcSimple is family A: net USD minus goods cost and logistics charges.
// A refund forfeits the full cost side; with no logistics charge yet the
// order is not priceable and yields zero. extraFee covers family B's partner
// deduction on approved orders.
func calcSimple(o orders.Order, rate, extraFee float64) Derived {
	netUSD := orZero(o.NetReceived) / rate
	logistics := orZero(o.LogisticsTotal)
	aditionals := orZero(o.AditionalsTotal)

	var profit float64
	switch {
	case o.IsRefunded():
		profit = -(goodsCost(o) + logistics + aditionals)
	case logistics > 0:
		profit = netUSD - goodsCost(o) - logistics - aditionals - extraFee
	default:
		profit = 0
	}
	return Derived{NetUSD: ptr(netUSD), ProfitTotal: ptr(profit)}
}

// calcPartnerFee is family B: family A plus a fixed partner fee charged only
// on approved orders. Refunds never carry the fee.
func calcPartnerFee(o orders.Order, rate float64) Derived {
	fee := 0.0
	if o.OrderStatus == orders.OrderStatusApproved {
		fee = partnerFee
	}
	d := calcSimple(o, rate, fee)
	d.PartnerFee = ptr(fee)
	return d
}

// calcRevenueSplit is family C: the billing tax is charged on approved and
// refunded orders alike, then the utility is split at the 7.5 USD threshold.
// The partner keeps the whole utility (even negative) below the cap.
func calcRevenueSplit(o orders.Order, rate float64) Derived {
	netUSD := orZero(o.NetReceived) / rate
	logistics := orZero(o.LogisticsTotal)
	aditionals := orZero(o.AditionalsTotal)

	var utility float64
	priceable := true
	switch {
	case o.IsRefunded():
		utility = -(goodsCost(o) + logistics + aditionals + billingTax)
	case logistics > 0:
		utility = netUSD - goodsCost(o) - logistics - aditionals - billingTax
	default:
		utility = 0
		priceable = false
	}

	var partner, operator float64
	if utility >= partnerShareCap {
		partner = partnerShareCap
		operator = utility - partnerShareCap
	} else {
		partner = utility
		operator = 0
	}

	d := Derived{
		NetUSD:        ptr(netUSD),
		ProfitTotal:   ptr(utility),
		PartnerShare:  ptr(partner),
		OperatorShare: ptr(operator),
	}
	if priceable {
		d.BillingTax = ptr(billingTax)
	} else {
		d.BillingTax = ptr(0)
	}
	return d
}

// calcCarrierNet is family D: a weight-table handling fee plus customs duty
// and tax, netted against the carrier's amount due. No revenue term.
func calcCarrierNet(o orders.Order) Derived {
	kg := 0.0
	if o.WeightLbs != nil {
		kg = RoundHalfKg(PoundsToKg(*o.WeightLbs))
	}
	fee := HandlingFee(kg)
	amtDue := orZero(o.CxpAmtDue)

	profit := 0.0
	if amtDue > 0 {
		profit = fee + orZero(o.CxpArancel) + orZero(o.CxpIVA) - amtDue
	}
	return Derived{
		ProfitTotal: ptr(profit),
		WeightKg:    ptr(kg),
	}
}

// calcDropOff is family E: Chile-market formula with the drop-off warehouse
// surcharge and a partner fee waived on refunds.
func calcDropOff(o orders.Order, rate float64) Derived {
	wh := 0.0
	if o.IsDropOff() {
		wh = warehouseFee
	}
	fee := partnerFee
	if o.IsRefunded() {
		fee = 0
	}

	netUSD := orZero(o.NetReceived) / rate
	amtDue := orZero(o.CxpAmtDue)

	var profit float64
	switch {
	case o.IsRefunded():
		profit = -(goodsCost(o) + amtDue + wh + fee)
	case amtDue > 0:
		profit = netUSD - goodsCost(o) - amtDue - wh - fee
	default:
		profit = 0
	}
	return Derived{
		NetUSD:       ptr(netUSD),
		ProfitTotal:  ptr(profit),
		WarehouseFee: ptr(wh),
		PartnerFee:   ptr(fee),
	}
}
