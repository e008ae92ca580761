package orders

import (
	"time"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
)

// OrderStatus mirrors the marketplace order state carried by the primary feed.
type OrderStatus string

const (
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusRefunded OrderStatus = "refunded"
)

// LogisticTypeDropOff is the only logistic type the profit formulas care
// about; it triggers the warehouse surcharge on Chile-market accounts.
const LogisticTypeDropOff = "xd_drop_off"

// Order is the denormalized consolidated record, one row per order_id.
// Overlay field groups (Logistics*, Aditionals*, Cxp*) are contributed by
// their respective source files and are independently nullable: absence means
// that source has not arrived yet, never zero.
type Order struct {
	OrderID      string             `json:"order_id" db:"order_id"`
	PrealertID   *string            `json:"prealert_id,omitempty" db:"prealert_id"`
	SerialNumber *string            `json:"serial_number,omitempty" db:"serial_number"`
	AccountName  accounts.Identity  `json:"account_name" db:"account_name"`
	Assignment   *string            `json:"assignment,omitempty" db:"assignment"`
	PackID       *string            `json:"pack_id,omitempty" db:"pack_id"`
	AmzOrderID   *string            `json:"amz_order_id,omitempty" db:"amz_order_id"`
	DateCreated  *time.Time         `json:"date_created,omitempty" db:"date_created"`
	Quantity     int                `json:"quantity" db:"quantity"`
	Title        *string            `json:"title,omitempty" db:"title"`
	UnitPrice    *float64           `json:"unit_price,omitempty" db:"unit_price"`
	LogisticType *string            `json:"logistic_type,omitempty" db:"logistic_type"`
	OrderStatus  OrderStatus        `json:"order_status" db:"order_status"`
	DeclareValue *float64           `json:"declare_value,omitempty" db:"declare_value"`
	NetReceived  *float64           `json:"net_received_amount,omitempty" db:"net_received_amount"`
	NetReal      *float64           `json:"net_real_amount,omitempty" db:"net_real_amount"`
	WeightLbs    *float64           `json:"logistic_weight_lbs,omitempty" db:"logistic_weight_lbs"`
	RefundedDate *time.Time         `json:"refunded_date,omitempty" db:"refunded_date"`

	// Carrier logistics overlay.
	LogisticsGuideNumber *string    `json:"logistics_guide_number,omitempty" db:"logistics_guide_number"`
	LogisticsOrderNumber *string    `json:"logistics_order_number,omitempty" db:"logistics_order_number"`
	LogisticsReference   *string    `json:"logistics_reference,omitempty" db:"logistics_reference"`
	LogisticsStatus      *string    `json:"logistics_status,omitempty" db:"logistics_status"`
	LogisticsWeight      *float64   `json:"logistics_weight,omitempty" db:"logistics_weight"`
	LogisticsTotal       *float64   `json:"logistics_total,omitempty" db:"logistics_total"`
	LogisticsDate        *time.Time `json:"logistics_date,omitempty" db:"logistics_date"`

	// Additional-charges overlay.
	AditionalsOrderID     *string  `json:"aditionals_order_id,omitempty" db:"aditionals_order_id"`
	AditionalsDescription *string  `json:"aditionals_description,omitempty" db:"aditionals_description"`
	AditionalsQuantity    *float64 `json:"aditionals_quantity,omitempty" db:"aditionals_quantity"`
	AditionalsUnitPrice   *float64 `json:"aditionals_unitprice,omitempty" db:"aditionals_unitprice"`
	AditionalsTotal       *float64 `json:"aditionals_total,omitempty" db:"aditionals_total"`

	// Customs / accounts-payable overlay.
	CxpOTNumber     *string    `json:"cxp_ot_number,omitempty" db:"cxp_ot_number"`
	CxpDate         *time.Time `json:"cxp_date,omitempty" db:"cxp_date"`
	CxpRefNumber    *string    `json:"cxp_ref_number,omitempty" db:"cxp_ref_number"`
	CxpConsignee    *string    `json:"cxp_consignee,omitempty" db:"cxp_consignee"`
	CxpCoAereo      *float64   `json:"cxp_co_aereo,omitempty" db:"cxp_co_aereo"`
	CxpArancel      *float64   `json:"cxp_arancel,omitempty" db:"cxp_arancel"`
	CxpIVA          *float64   `json:"cxp_iva,omitempty" db:"cxp_iva"`
	CxpHandling     *float64   `json:"cxp_handling,omitempty" db:"cxp_handling"`
	CxpDestDelivery *float64   `json:"cxp_dest_delivery,omitempty" db:"cxp_dest_delivery"`
	CxpAmtDue       *float64   `json:"cxp_amt_due,omitempty" db:"cxp_amt_due"`
	CxpGoodsValue   *float64   `json:"cxp_goods_value,omitempty" db:"cxp_goods_value"`

	// Derived fields, recomputable from the rest; persisted for reporting.
	ProfitTotal         *float64   `json:"profit_total,omitempty" db:"profit_total"`
	ProfitPartnerShare  *float64   `json:"profit_partner_share,omitempty" db:"profit_partner_share"`
	ProfitOperatorShare *float64   `json:"profit_operator_share,omitempty" db:"profit_operator_share"`
	WeightKgRounded     *float64   `json:"weight_kg_rounded,omitempty" db:"weight_kg_rounded"`
	BillingTax          *float64   `json:"billing_tax,omitempty" db:"billing_tax"`
	CalculatedAt        *time.Time `json:"calculated_at,omitempty" db:"calculated_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsRefunded reports whether the order was voided by the marketplace.
func (o Order) IsRefunded() bool { return o.OrderStatus == OrderStatusRefunded }

// IsDropOff reports whether the drop-off warehouse surcharge applies.
func (o Order) IsDropOff() bool {
	return o.LogisticType != nil && *o.LogisticType == LogisticTypeDropOff
}

// FieldUpdate is a partial, field-level update for one stored order. Only the
// listed columns are written; everything else on the row is left untouched.
type FieldUpdate struct {
	OrderID string
	Fields  map[string]any
}

// DuplicateGroup reports an order_id stored more than once, which violates
// the uniqueness invariant and should only ever appear after manual edits.
type DuplicateGroup struct {
	OrderID string `json:"order_id" db:"order_id"`
	Count   int    `json:"count" db:"count"`
}

// ListRequest filters reporting reads.
type ListRequest struct {
	Accounts  []accounts.Identity
	DateField string // "logistics_date" or "cxp_date"
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}
