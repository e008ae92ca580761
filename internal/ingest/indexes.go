package ingest

import (
	"errors"
	"strings"

	"github.com/jordymora1978/GSS-Utilidad/internal/normalize"
)

// ErrNoRefColumn means the customs file has no recognizable reference
// column, so nothing in it can be joined.
var ErrNoRefColumn = errors.New("customs file has no resolvable reference column")

// recallSentinel marks carrier rows for recalled or voided shipments. Their
// reference values are free text, never join keys.
const recallSentinel = "PACKAGE"

// Fixed headers of the logistics export.
const (
	colGuideNumber = "Guide Number"
	colOrderNumber = "Order number"
	colReference   = "Reference"
	colStatus      = "Status"
	colWeight      = "Weight"
	colTotal       = "Total"
)

// Fixed headers of the additional-charges export.
const (
	colAditionalsOrderID     = "Order Id"
	colAditionalsDescription = "Description"
	colAditionalsQuantity    = "Quantity"
	colAditionalsUnitPrice   = "UnitPrice"
	colAditionalsTotal       = "Total"
)

// indexedRow pairs an external row with its position in the file, so a run
// can tell when two records resolve to the same row through different keys.
type indexedRow struct {
	row Row
	id  int
}

// LogisticsIndex holds the carrier rows keyed two ways: by their Reference
// value and by their Order number, both moderately normalized. A duplicate
// key keeps the first row seen in file order.
type LogisticsIndex struct {
	byReference   map[string]indexedRow
	byOrderNumber map[string]indexedRow
	duplicates    int
}

// NewLogisticsIndex builds the index, excluding recalled-shipment rows.
func NewLogisticsIndex(rows []Row) *LogisticsIndex {
	ix := &LogisticsIndex{
		byReference:   make(map[string]indexedRow, len(rows)),
		byOrderNumber: make(map[string]indexedRow, len(rows)),
	}
	for i, row := range rows {
		entry := indexedRow{row: row, id: i}
		if ref, ok := normalize.ID(row.Get(colReference), normalize.Moderate); ok {
			if strings.Contains(strings.ToUpper(ref), recallSentinel) {
				continue
			}
			if _, seen := ix.byReference[ref]; seen {
				ix.duplicates++
			} else {
				ix.byReference[ref] = entry
			}
		}
		if num, ok := normalize.ID(row.Get(colOrderNumber), normalize.Moderate); ok {
			if _, seen := ix.byOrderNumber[num]; seen {
				ix.duplicates++
			} else {
				ix.byOrderNumber[num] = entry
			}
		}
	}
	return ix
}

// Duplicates reports how many rows were dropped for repeating a key.
func (ix *LogisticsIndex) Duplicates() int { return ix.duplicates }

// Size reports how many distinct keys the index can answer for.
func (ix *LogisticsIndex) Size() int {
	return len(ix.byReference) + len(ix.byOrderNumber)
}

// Keys returns the distinct keys across both mappings. The update-only
// logistics run uses them to scope its storage read.
func (ix *LogisticsIndex) Keys() []string {
	seen := make(map[string]struct{}, len(ix.byReference)+len(ix.byOrderNumber))
	var keys []string
	for k := range ix.byReference {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range ix.byOrderNumber {
		if _, dup := seen[k]; !dup {
			keys = append(keys, k)
		}
	}
	return keys
}

// AditionalsIndex holds the additional-charges rows keyed by their Order Id
// column, moderately normalized. First row per key wins.
type AditionalsIndex struct {
	byOrderID  map[string]indexedRow
	duplicates int
}

// NewAditionalsIndex builds the index.
func NewAditionalsIndex(rows []Row) *AditionalsIndex {
	ix := &AditionalsIndex{byOrderID: make(map[string]indexedRow, len(rows))}
	for i, row := range rows {
		id, ok := normalize.ID(row.Get(colAditionalsOrderID), normalize.Moderate)
		if !ok {
			continue
		}
		if _, seen := ix.byOrderID[id]; seen {
			ix.duplicates++
			continue
		}
		ix.byOrderID[id] = indexedRow{row: row, id: i}
	}
	return ix
}

// Duplicates reports how many rows were dropped for repeating a key.
func (ix *AditionalsIndex) Duplicates() int { return ix.duplicates }

// Size reports how many distinct keys the index holds.
func (ix *AditionalsIndex) Size() int { return len(ix.byOrderID) }

// Keys returns the distinct normalized keys in the index.
func (ix *AditionalsIndex) Keys() []string {
	keys := make([]string, 0, len(ix.byOrderID))
	for k := range ix.byOrderID {
		keys = append(keys, k)
	}
	return keys
}

// CustomsIndex holds the customs rows keyed by their resolved reference
// column, aggressively normalized on both sides of the join. First row per
// key wins.
type CustomsIndex struct {
	columns    ColumnMap
	byRef      map[string]indexedRow
	duplicates int
}

// NewCustomsIndex resolves the file's columns and builds the index. Fails
// only when no reference column resolves; any other missing column just
// limits which fields the overlay can contribute.
func NewCustomsIndex(headers []string, rows []Row) (*CustomsIndex, error) {
	columns := ResolveColumns(headers)
	if _, ok := columns[CustomsRefNumber]; !ok {
		return nil, ErrNoRefColumn
	}
	ix := &CustomsIndex{columns: columns, byRef: make(map[string]indexedRow, len(rows))}
	for i, row := range rows {
		raw, ok := columns.Value(row, CustomsRefNumber)
		if !ok {
			continue
		}
		ref, ok := normalize.ID(raw, normalize.Aggressive)
		if !ok {
			continue
		}
		if _, seen := ix.byRef[ref]; seen {
			ix.duplicates++
			continue
		}
		ix.byRef[ref] = indexedRow{row: row, id: i}
	}
	return ix, nil
}

// Columns exposes the resolved mapping for overlay extraction.
func (ix *CustomsIndex) Columns() ColumnMap { return ix.columns }

// Duplicates reports how many rows were dropped for repeating a key.
func (ix *CustomsIndex) Duplicates() int { return ix.duplicates }

// Size reports how many distinct keys the index holds.
func (ix *CustomsIndex) Size() int { return len(ix.byRef) }

// Keys returns the distinct normalized reference keys in the index. The
// update-only customs run uses them to scope its storage read.
func (ix *CustomsIndex) Keys() []string {
	keys := make([]string, 0, len(ix.byRef))
	for k := range ix.byRef {
		keys = append(keys, k)
	}
	return keys
}
