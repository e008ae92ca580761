package ingest

import "github.com/jordymora1978/GSS-Utilidad/internal/normalize"

// StrategyTag labels which join strategy produced a match. Diagnostic only;
// never consulted by the calculation layer.
type StrategyTag string

const (
	// Logistics strategies, in attempt order.
	StrategyOrderIDReference   StrategyTag = "order_id->reference"
	StrategyOrderIDOrderNumber StrategyTag = "order_id->order_number"
	StrategyPrealertOrderNum   StrategyTag = "prealert_id->order_number"

	// Additional charges join on prealert_id alone. The base order_id is
	// intentionally never tried against this file.
	StrategyPrealertAditionals StrategyTag = "prealert_id->aditionals_order_id"

	// Customs join on the derived assignment key.
	StrategyAssignmentRef StrategyTag = "assignment->ref_number"
)

// Hit is one successful join: the external row, the strategy that found it,
// the normalized index key the strategy hit and the row's file position.
type Hit struct {
	Row      Row
	Strategy StrategyTag
	Key      string
	RowID    int
}

// Match tries the logistics strategies in declared order and returns the
// first hit: Reference by order_id, then Order number by order_id, then
// Order number by prealert_id.
func (ix *LogisticsIndex) Match(orderID, prealertID string) (Hit, bool) {
	if key, ok := normalize.ID(orderID, normalize.Moderate); ok {
		if e, found := ix.byReference[key]; found {
			return Hit{Row: e.row, Strategy: StrategyOrderIDReference, Key: key, RowID: e.id}, true
		}
		if e, found := ix.byOrderNumber[key]; found {
			return Hit{Row: e.row, Strategy: StrategyOrderIDOrderNumber, Key: key, RowID: e.id}, true
		}
	}
	if key, ok := normalize.ID(prealertID, normalize.Moderate); ok {
		if e, found := ix.byOrderNumber[key]; found {
			return Hit{Row: e.row, Strategy: StrategyPrealertOrderNum, Key: key, RowID: e.id}, true
		}
	}
	return Hit{}, false
}

// Match joins by prealert_id only.
func (ix *AditionalsIndex) Match(prealertID string) (Hit, bool) {
	key, ok := normalize.ID(prealertID, normalize.Moderate)
	if !ok {
		return Hit{}, false
	}
	e, found := ix.byOrderID[key]
	if !found {
		return Hit{}, false
	}
	return Hit{Row: e.row, Strategy: StrategyPrealertAditionals, Key: key, RowID: e.id}, true
}

// Match joins by the aggressively normalized assignment key.
func (ix *CustomsIndex) Match(assignment string) (Hit, bool) {
	key, ok := normalize.ID(assignment, normalize.Aggressive)
	if !ok {
		return Hit{}, false
	}
	e, found := ix.byRef[key]
	if !found {
		return Hit{}, false
	}
	return Hit{Row: e.row, Strategy: StrategyAssignmentRef, Key: key, RowID: e.id}, true
}
