// Package reports builds the period reports the operations team reads:
// one report per account group, a cross-account global view and the
// marketplace refunds report with its reversal amounts. Reports are always
// recomputed from stored orders and the current rates, never from the
// persisted derived columns, so a rate correction shows up immediately.
package reports

import (
	"time"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
)

// Group names one reporting unit. Groups follow settlement, not country:
// the three partner storefronts report together, the two Chile marketplaces
// report together and the carrier account stands alone.
type Group string

const (
	GroupTodoencargo        Group = "todoencargo-co"
	GroupMegaTiendas        Group = "mega-tiendas-peruanas"
	GroupDTPT               Group = "dtpt-group"
	GroupMegatiendaVeendelo Group = "megatienda-veendelo"
	GroupFaborcargo         Group = "faborcargo"
)

// groupSpec fixes which accounts a group covers and which date column
// brackets its period. Colombia and Peru accounts report on the carrier
// delivery date; Chile accounts report on the customs invoice date.
type groupSpec struct {
	accounts  []accounts.Identity
	dateField string
}

var groupSpecs = map[Group]groupSpec{
	GroupTodoencargo: {
		accounts:  []accounts.Identity{accounts.TodoencargoCO},
		dateField: "logistics_date",
	},
	GroupMegaTiendas: {
		accounts:  []accounts.Identity{accounts.MegaTiendasPeruanas},
		dateField: "logistics_date",
	},
	GroupDTPT: {
		accounts:  []accounts.Identity{accounts.Detodoparatodos, accounts.Comprafacil, accounts.CompraYa},
		dateField: "logistics_date",
	},
	GroupMegatiendaVeendelo: {
		accounts:  []accounts.Identity{accounts.MegatiendaSPA, accounts.Veendelo},
		dateField: "cxp_date",
	},
	GroupFaborcargo: {
		accounts:  []accounts.Identity{accounts.Faborcargo},
		dateField: "cxp_date",
	},
}

// AllGroups lists every group in display order.
var AllGroups = []Group{
	GroupTodoencargo,
	GroupMegaTiendas,
	GroupDTPT,
	GroupMegatiendaVeendelo,
	GroupFaborcargo,
}

// Line is one order as it appears in a report, with its recomputed
// monetary columns. Pointer fields follow the stored record: nil means
// the source never reported a value.
type Line struct {
	OrderID     string            `json:"order_id"`
	AccountName accounts.Identity `json:"account_name"`
	PrealertID  *string           `json:"prealert_id,omitempty"`
	Assignment  *string           `json:"assignment,omitempty"`
	Date        *time.Time        `json:"date,omitempty"`
	OrderStatus string            `json:"order_status"`

	NetReceived     *float64 `json:"net_received_amount,omitempty"`
	DeclareValue    *float64 `json:"declare_value,omitempty"`
	Quantity        int      `json:"quantity"`
	LogisticsTotal  *float64 `json:"logistics_total,omitempty"`
	AditionalsTotal *float64 `json:"aditionals_total,omitempty"`
	CxpAmtDue       *float64 `json:"cxp_amt_due,omitempty"`
	WeightLbs       *float64 `json:"weight_lbs,omitempty"`

	Rate          float64  `json:"rate"`
	NetUSD        *float64 `json:"net_usd,omitempty"`
	WeightKg      *float64 `json:"weight_kg,omitempty"`
	BillingTax    *float64 `json:"billing_tax,omitempty"`
	WarehouseFee  *float64 `json:"warehouse_fee,omitempty"`
	PartnerFee    *float64 `json:"partner_fee,omitempty"`
	ProfitTotal   *float64 `json:"profit_total,omitempty"`
	PartnerShare  *float64 `json:"partner_share,omitempty"`
	OperatorShare *float64 `json:"operator_share,omitempty"`
}

// Totals aggregates a report. Fields that only apply to some groups
// (partner split, billing tax, weight) stay zero for the rest.
type Totals struct {
	Rows            int     `json:"rows"`
	Approved        int     `json:"approved"`
	Refunded        int     `json:"refunded"`
	Skipped         int     `json:"skipped"`
	ProfitTotal     float64 `json:"profit_total"`
	PartnerTotal    float64 `json:"partner_total"`
	OperatorTotal   float64 `json:"operator_total"`
	BillingTaxTotal float64 `json:"billing_tax_total"`
	WarehouseTotal  float64 `json:"warehouse_total"`
	HighValueOrders int     `json:"high_value_orders"`
	AvgWeightKg     float64 `json:"avg_weight_kg"`
}

// GroupReport is the period report for one account group.
type GroupReport struct {
	Group    Group              `json:"group"`
	From     time.Time          `json:"from"`
	To       time.Time          `json:"to"`
	Rates    map[string]float64 `json:"rates"`
	Totals   Totals             `json:"totals"`
	Lines    []Line             `json:"lines"`
	Warnings []string           `json:"warnings,omitempty"`
}

// AccountTotal is one account's rollup inside the global report.
type AccountTotal struct {
	AccountName accounts.Identity `json:"account_name"`
	Rows        int               `json:"rows"`
	ProfitTotal float64           `json:"profit_total"`
}

// GlobalReport sums every group over one period, with per-country and
// per-account rollups.
type GlobalReport struct {
	From          time.Time                    `json:"from"`
	To            time.Time                    `json:"to"`
	Totals        Totals                       `json:"totals"`
	CountryTotals map[accounts.Country]float64 `json:"country_totals"`
	AccountTotals []AccountTotal               `json:"account_totals"`
	Warnings      []string                     `json:"warnings,omitempty"`
}

// RefundLine is one refunded marketplace order with its reversal split:
// how much of the already-settled profit comes back from the partner and
// how much from the operator, plus the sunk cost of the order.
type RefundLine struct {
	OrderID         string            `json:"order_id"`
	AccountName     accounts.Identity `json:"account_name"`
	AmzOrderID      string            `json:"amz_order_id"`
	RefundedDate    *time.Time        `json:"refunded_date,omitempty"`
	Rate            float64           `json:"rate"`
	NetUSD          float64           `json:"net_usd"`
	Utility         float64           `json:"utility"`
	ReversalPartner float64           `json:"reversal_partner"`
	ReversalGss     float64           `json:"reversal_gss"`
	Loss            float64           `json:"loss"`
}

// RefundReport lists refunded orders over a period with reversal totals.
// The carrier account is excluded: it has no marketplace settlement to
// reverse.
type RefundReport struct {
	From            time.Time    `json:"from"`
	To              time.Time    `json:"to"`
	Count           int          `json:"count"`
	ReversalPartner float64      `json:"reversal_partner"`
	ReversalGss     float64      `json:"reversal_gss"`
	LossTotal       float64      `json:"loss_total"`
	Lines           []RefundLine `json:"lines"`
	Warnings        []string     `json:"warnings,omitempty"`
}
