package profit

import (
	"errors"
	"fmt"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
)

// ErrNoReversal flags an account with no marketplace settlement to reverse.
var ErrNoReversal = errors.New("account has no marketplace settlement")

// Reversal is the undo side of one refunded order: the utility that had
// been settled as if the order were approved, split into the partner's and
// the operator's part, plus the sunk cost of the order. Per-order fees that
// are waived on refunds are left out of the utility; the billing tax of the
// revenue-split family is charged even here.
type Reversal struct {
	NetUSD   float64
	Utility  float64
	Partner  float64
	Operator float64
	Loss     float64
}

// CalculateReversal computes the reversal amounts for one refunded order.
// The carrier account returns ErrNoReversal: it never settles marketplace
// revenue, so a refund there reverses nothing.
func CalculateReversal(o orders.Order, rates Rates) (Reversal, error) {
	id, ok := accounts.Parse(string(o.AccountName))
	if !ok {
		return Reversal{}, fmt.Errorf("%w: %q", ErrUnknownAccount, o.AccountName)
	}
	if id.Family() == accounts.FamilyCarrierNet {
		return Reversal{}, fmt.Errorf("%w: %q", ErrNoReversal, o.AccountName)
	}
	rate, ok := rates[id.Country()]
	if !ok || rate == 0 {
		return Reversal{}, fmt.Errorf("%w: %q", ErrMissingRate, id.Country())
	}

	netUSD := orZero(o.NetReceived) / rate
	goods := goodsCost(o)

	var r Reversal
	r.NetUSD = netUSD
	switch id.Family() {
	case accounts.FamilyRevenueSplit:
		logistics := orZero(o.LogisticsTotal)
		aditionals := orZero(o.AditionalsTotal)
		r.Utility = netUSD - goods - logistics - aditionals - billingTax
		r.Loss = -(goods + logistics + aditionals + billingTax)
		if r.Utility >= partnerShareCap {
			r.Partner = partnerShareCap
			r.Operator = r.Utility - partnerShareCap
		} else {
			r.Partner = r.Utility
		}
	case accounts.FamilyDropOff:
		wh := 0.0
		if o.IsDropOff() {
			wh = warehouseFee
		}
		amtDue := orZero(o.CxpAmtDue)
		r.Utility = netUSD - goods - amtDue - wh
		r.Operator = r.Utility
		r.Loss = -(goods + amtDue + wh)
	default:
		logistics := orZero(o.LogisticsTotal)
		aditionals := orZero(o.AditionalsTotal)
		r.Utility = netUSD - goods - logistics - aditionals
		r.Operator = r.Utility
		r.Loss = -(goods + logistics + aditionals)
	}
	return r, nil
}
