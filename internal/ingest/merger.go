package ingest

import (
	"strings"
	"time"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/normalize"
	"github.com/jordymora1978/GSS-Utilidad/internal/orders"
)

// Fixed headers of the primary order feed.
const (
	colBaseOrderID      = "order_id"
	colBasePrealertID   = "prealert_id"
	colBaseSerial       = "Serial#"
	colBaseAccountName  = "account_name"
	colBasePackID       = "pack_id"
	colBaseAmzOrderID   = "amz_order_id"
	colBaseDateCreated  = "date_created"
	colBaseQuantity     = "quantity"
	colBaseTitle        = "title"
	colBaseUnitPrice    = "unit_price"
	colBaseLogisticType = "logistic_type"
	colBaseOrderStatus  = "order_status_meli"
	colBaseDeclareValue = "Declare Value"
	colBaseNetReceived  = "net_received_amount"
	colBaseNetReal      = "net_real_amount"
	colBaseWeightLbs    = "logistic_weight_lbs"
	colBaseRefundedDate = "refunded_date"
)

// UpsertPlan is the write set of one run, partitioned by whether the
// order_id already exists in storage.
type UpsertPlan struct {
	Inserts []orders.Order
	Updates []orders.FieldUpdate
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func numPtr(raw string) *float64 {
	v, ok := normalize.Number(raw)
	if !ok {
		return nil
	}
	return &v
}

// parseDate accepts the two spreadsheet date shapes the exports produce:
// ISO (optionally with a time suffix) and month/day/year.
func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return time.Time{}, false
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	for _, layout := range []string{"2006-01-02", "1/2/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func datePtr(raw string) *time.Time {
	t, ok := parseDate(raw)
	if !ok {
		return nil
	}
	return &t
}

// ParseBaseRow maps one primary-feed row onto an order record. The second
// return is false when the row has no usable order_id.
func ParseBaseRow(row Row) (orders.Order, bool) {
	orderID, ok := normalize.ID(row.Get(colBaseOrderID), normalize.Moderate)
	if !ok {
		return orders.Order{}, false
	}

	o := orders.Order{
		OrderID:      orderID,
		AccountName:  accounts.Identity(row.Get(colBaseAccountName)),
		PackID:       strPtr(row.Get(colBasePackID)),
		AmzOrderID:   strPtr(row.Get(colBaseAmzOrderID)),
		DateCreated:  datePtr(row.Get(colBaseDateCreated)),
		Title:        strPtr(row.Get(colBaseTitle)),
		LogisticType: strPtr(row.Get(colBaseLogisticType)),
		OrderStatus:  orders.OrderStatus(strings.ToLower(row.Get(colBaseOrderStatus))),
		UnitPrice:    numPtr(row.Get(colBaseUnitPrice)),
		DeclareValue: numPtr(row.Get(colBaseDeclareValue)),
		NetReceived:  numPtr(row.Get(colBaseNetReceived)),
		NetReal:      numPtr(row.Get(colBaseNetReal)),
		WeightLbs:    numPtr(row.Get(colBaseWeightLbs)),
		RefundedDate: datePtr(row.Get(colBaseRefundedDate)),
	}
	if prealert, ok := normalize.ID(row.Get(colBasePrealertID), normalize.Moderate); ok {
		o.PrealertID = &prealert
	}
	if serial, ok := normalize.ID(row.Get(colBaseSerial), normalize.Moderate); ok {
		o.SerialNumber = &serial
	}
	if qty, ok := normalize.Number(row.Get(colBaseQuantity)); ok {
		o.Quantity = int(qty)
	}
	// Assignment is always recomputed, never trusted from input.
	if asg, ok := accounts.Assignment(string(o.AccountName), row.Get(colBaseSerial)); ok {
		o.Assignment = &asg
	}
	return o, true
}

// ParseBaseRows parses the whole primary feed and dedupes it by order_id,
// keeping the first occurrence in file order. warnings counts rows with an
// unrecognized account identity.
func ParseBaseRows(rows []Row) (recs []orders.Order, duplicateIDs []string, warnings int) {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		o, ok := ParseBaseRow(row)
		if !ok {
			warnings++
			continue
		}
		if _, dup := seen[o.OrderID]; dup {
			duplicateIDs = append(duplicateIDs, o.OrderID)
			continue
		}
		seen[o.OrderID] = struct{}{}
		if _, known := accounts.Parse(string(o.AccountName)); !known {
			warnings++
		}
		recs = append(recs, o)
	}
	return recs, duplicateIDs, warnings
}

// baseFields is the update payload the primary feed is responsible for.
func baseFields(o orders.Order) map[string]any {
	return map[string]any{
		"prealert_id":         o.PrealertID,
		"serial_number":       o.SerialNumber,
		"account_name":        string(o.AccountName),
		"assignment":          o.Assignment,
		"pack_id":             o.PackID,
		"amz_order_id":        o.AmzOrderID,
		"date_created":        o.DateCreated,
		"quantity":            o.Quantity,
		"title":               o.Title,
		"unit_price":          o.UnitPrice,
		"logistic_type":       o.LogisticType,
		"order_status":        string(o.OrderStatus),
		"declare_value":       o.DeclareValue,
		"net_received_amount": o.NetReceived,
		"net_real_amount":     o.NetReal,
		"logistic_weight_lbs": o.WeightLbs,
		"refunded_date":       o.RefundedDate,
	}
}

// logisticsOverlay carries the fields one carrier row contributes. runDate,
// when the operator supplies one, stamps every matched record with the
// report's cutoff date.
type logisticsOverlay struct {
	GuideNumber *string
	OrderNumber *string
	Reference   *string
	Status      *string
	Weight      *float64
	Total       *float64
	Date        *time.Time
}

func newLogisticsOverlay(row Row, runDate *time.Time) logisticsOverlay {
	return logisticsOverlay{
		GuideNumber: strPtr(row.Get(colGuideNumber)),
		OrderNumber: strPtr(row.Get(colOrderNumber)),
		Reference:   strPtr(row.Get(colReference)),
		Status:      strPtr(row.Get(colStatus)),
		Weight:      numPtr(row.Get(colWeight)),
		Total:       numPtr(row.Get(colTotal)),
		Date:        runDate,
	}
}

func (ov logisticsOverlay) apply(o *orders.Order) {
	o.LogisticsGuideNumber = ov.GuideNumber
	o.LogisticsOrderNumber = ov.OrderNumber
	o.LogisticsReference = ov.Reference
	o.LogisticsStatus = ov.Status
	o.LogisticsWeight = ov.Weight
	o.LogisticsTotal = ov.Total
	o.LogisticsDate = ov.Date
}

func (ov logisticsOverlay) fields() map[string]any {
	f := map[string]any{}
	putStr(f, "logistics_guide_number", ov.GuideNumber)
	putStr(f, "logistics_order_number", ov.OrderNumber)
	putStr(f, "logistics_reference", ov.Reference)
	putStr(f, "logistics_status", ov.Status)
	putNum(f, "logistics_weight", ov.Weight)
	putNum(f, "logistics_total", ov.Total)
	if ov.Date != nil {
		f["logistics_date"] = ov.Date
	}
	return f
}

// aditionalsOverlay carries the fields one additional-charges row contributes.
type aditionalsOverlay struct {
	OrderID     *string
	Description *string
	Quantity    *float64
	UnitPrice   *float64
	Total       *float64
}

func newAditionalsOverlay(row Row) aditionalsOverlay {
	return aditionalsOverlay{
		OrderID:     strPtr(row.Get(colAditionalsOrderID)),
		Description: strPtr(row.Get(colAditionalsDescription)),
		Quantity:    numPtr(row.Get(colAditionalsQuantity)),
		UnitPrice:   numPtr(row.Get(colAditionalsUnitPrice)),
		Total:       numPtr(row.Get(colAditionalsTotal)),
	}
}

func (ov aditionalsOverlay) apply(o *orders.Order) {
	o.AditionalsOrderID = ov.OrderID
	o.AditionalsDescription = ov.Description
	o.AditionalsQuantity = ov.Quantity
	o.AditionalsUnitPrice = ov.UnitPrice
	o.AditionalsTotal = ov.Total
}

func (ov aditionalsOverlay) fields() map[string]any {
	f := map[string]any{}
	putStr(f, "aditionals_order_id", ov.OrderID)
	putStr(f, "aditionals_description", ov.Description)
	putNum(f, "aditionals_quantity", ov.Quantity)
	putNum(f, "aditionals_unitprice", ov.UnitPrice)
	putNum(f, "aditionals_total", ov.Total)
	return f
}

// customsOverlay carries the fields one customs row contributes, read
// through the file's resolved column mapping.
type customsOverlay struct {
	OTNumber     *string
	Date         *time.Time
	RefNumber    *string
	Consignee    *string
	CoAereo      *float64
	Arancel      *float64
	IVA          *float64
	Handling     *float64
	DestDelivery *float64
	AmtDue       *float64
	GoodsValue   *float64
}

func newCustomsOverlay(row Row, columns ColumnMap) customsOverlay {
	str := func(field CustomsField) *string {
		v, ok := columns.Value(row, field)
		if !ok {
			return nil
		}
		return &v
	}
	num := func(field CustomsField) *float64 {
		v, ok := columns.Value(row, field)
		if !ok {
			return nil
		}
		return numPtr(v)
	}
	ov := customsOverlay{
		OTNumber:     str(CustomsOTNumber),
		RefNumber:    str(CustomsRefNumber),
		Consignee:    str(CustomsConsignee),
		CoAereo:      num(CustomsCoAereo),
		Arancel:      num(CustomsArancel),
		IVA:          num(CustomsIVA),
		Handling:     num(CustomsHandling),
		DestDelivery: num(CustomsDestDelivery),
		AmtDue:       num(CustomsAmtDue),
		GoodsValue:   num(CustomsGoodsValue),
	}
	if raw, ok := columns.Value(row, CustomsDate); ok {
		ov.Date = datePtr(raw)
	}
	return ov
}

func (ov customsOverlay) apply(o *orders.Order) {
	o.CxpOTNumber = ov.OTNumber
	o.CxpDate = ov.Date
	o.CxpRefNumber = ov.RefNumber
	o.CxpConsignee = ov.Consignee
	o.CxpCoAereo = ov.CoAereo
	o.CxpArancel = ov.Arancel
	o.CxpIVA = ov.IVA
	o.CxpHandling = ov.Handling
	o.CxpDestDelivery = ov.DestDelivery
	o.CxpAmtDue = ov.AmtDue
	o.CxpGoodsValue = ov.GoodsValue
}

func (ov customsOverlay) fields() map[string]any {
	f := map[string]any{}
	putStr(f, "cxp_ot_number", ov.OTNumber)
	putStr(f, "cxp_ref_number", ov.RefNumber)
	putStr(f, "cxp_consignee", ov.Consignee)
	putNum(f, "cxp_co_aereo", ov.CoAereo)
	putNum(f, "cxp_arancel", ov.Arancel)
	putNum(f, "cxp_iva", ov.IVA)
	putNum(f, "cxp_handling", ov.Handling)
	putNum(f, "cxp_dest_delivery", ov.DestDelivery)
	putNum(f, "cxp_amt_due", ov.AmtDue)
	putNum(f, "cxp_goods_value", ov.GoodsValue)
	if ov.Date != nil {
		f["cxp_date"] = ov.Date
	}
	return f
}

// putStr and putNum include a column in an update payload only when the
// source actually supplied a value, so a sparse file never blanks out
// previously stored fields.
func putStr(f map[string]any, col string, v *string) {
	if v != nil {
		f[col] = v
	}
}

func putNum(f map[string]any, col string, v *float64) {
	if v != nil {
		f[col] = v
	}
}
