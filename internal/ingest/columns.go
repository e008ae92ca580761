// Package ingest links external spreadsheet exports onto the consolidated
// order table: it resolves loosely-named columns, indexes the external rows
// by their join keys, matches them onto base records with ordered fallback
// strategies and plans idempotent batched writes.
package ingest

import "strings"

// Row is one tabular record keyed by header name. Values arrive exactly as
// the export produced them; all cleaning happens downstream.
type Row map[string]string

// Get returns the trimmed cell value for a header, empty when absent.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// CustomsField names a logical column of the customs/accounts-payable file.
// The file's actual headers vary by provider export, so every read goes
// through a resolved ColumnMap.
type CustomsField string

const (
	CustomsOTNumber     CustomsField = "ot_number"
	CustomsDate         CustomsField = "date"
	CustomsRefNumber    CustomsField = "ref_number"
	CustomsConsignee    CustomsField = "consignee"
	CustomsCoAereo      CustomsField = "co_aereo"
	CustomsArancel      CustomsField = "arancel"
	CustomsIVA          CustomsField = "iva"
	CustomsHandling     CustomsField = "handling"
	CustomsDestDelivery CustomsField = "dest_delivery"
	CustomsAmtDue       CustomsField = "amt_due"
	CustomsGoodsValue   CustomsField = "goods_value"
)

// AllCustomsFields lists every logical field a customs file can contribute.
var AllCustomsFields = []CustomsField{
	CustomsOTNumber, CustomsDate, CustomsRefNumber, CustomsConsignee,
	CustomsCoAereo, CustomsArancel, CustomsIVA, CustomsHandling,
	CustomsDestDelivery, CustomsAmtDue, CustomsGoodsValue,
}

// customsPatterns holds the accepted header spellings per logical field,
// in priority order. Kept as data so new provider spellings are a one-line
// change covered by the resolver tests.
var customsPatterns = map[CustomsField][]string{
	CustomsOTNumber:     {"OT Number", "OT_Number", "ot number", "OT#", "OT #", "Order Transfer"},
	CustomsDate:         {"Date", "DATE", "Fecha", "date", "Creation Date"},
	CustomsRefNumber:    {"Ref #", "Ref#", "REF #", "Reference", "ref_number", "Referencia", "REF#"},
	CustomsConsignee:    {"Consignee", "CONSIGNEE", "Destinatario", "Recipient"},
	CustomsCoAereo:      {"CO Aereo", "CO_Aereo", "co aereo", "CO AEREO", "Aereo", "Air Cost", "Costo Aereo"},
	CustomsArancel:      {"Arancel", "ARANCEL", "Tariff", "Duty", "Customs Duty", "Impuesto"},
	CustomsIVA:          {"IVA", "iva", "I.V.A.", "Tax", "VAT", "Value Added Tax"},
	CustomsHandling:     {"Handling", "HANDLING", "Manejo", "Handle", "Processing"},
	CustomsDestDelivery: {"Dest. Delivery", "Dest Delivery", "Destination Delivery", "Delivery", "Entrega Destino"},
	CustomsAmtDue:       {"Amt. Due", "Amt Due", "Amount Due", "Total Due", "Monto Adeudado", "Total"},
	CustomsGoodsValue:   {"Goods Value", "GOODS VALUE", "Valor Mercancia", "Value", "Merchandise Value"},
}

// ColumnMap is the resolved logical-to-actual header mapping for one file.
// It is computed once per file and reused for every row.
type ColumnMap map[CustomsField]string

// ResolveColumn finds the actual header for one logical field. Exact matches
// against the pattern list win; otherwise the first header related to any
// pattern by case-insensitive containment, in either direction, is taken.
func ResolveColumn(headers []string, field CustomsField) (string, bool) {
	patterns := customsPatterns[field]

	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}
	for _, p := range patterns {
		if _, ok := present[p]; ok {
			return p, true
		}
	}

	for _, h := range headers {
		hl := strings.ToLower(strings.TrimSpace(h))
		for _, p := range patterns {
			pl := strings.ToLower(strings.TrimSpace(p))
			if strings.Contains(hl, pl) || strings.Contains(pl, hl) {
				return h, true
			}
		}
	}
	return "", false
}

// ResolveColumns resolves every logical customs field against the file's
// headers. Unresolvable fields are simply absent from the map; the caller
// decides which ones are mandatory.
func ResolveColumns(headers []string) ColumnMap {
	m := make(ColumnMap, len(AllCustomsFields))
	for _, field := range AllCustomsFields {
		if col, ok := ResolveColumn(headers, field); ok {
			m[field] = col
		}
	}
	return m
}

// Value reads the cell for a logical field out of a row via the resolved
// mapping. Returns false when the field did not resolve or the cell is empty.
func (m ColumnMap) Value(row Row, field CustomsField) (string, bool) {
	col, ok := m[field]
	if !ok {
		return "", false
	}
	v := row.Get(col)
	if v == "" {
		return "", false
	}
	return v, true
}
