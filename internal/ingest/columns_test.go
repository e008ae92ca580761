package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveColumnExactWinsOverSubstring(t *testing.T) {
	headers := []string{"Some Ref # Col", "Ref #", "Date"}
	col, ok := ResolveColumn(headers, CustomsRefNumber)
	require.True(t, ok)
	require.Equal(t, "Ref #", col)
}

func TestResolveColumnSubstringPatternInHeader(t *testing.T) {
	headers := []string{"OT Number ", "TOTAL AMT. DUE USD"}
	col, ok := ResolveColumn(headers, CustomsAmtDue)
	require.True(t, ok)
	require.Equal(t, "TOTAL AMT. DUE USD", col)
}

func TestResolveColumnSubstringHeaderInPattern(t *testing.T) {
	// "Duty" header is contained in the "Customs Duty" pattern.
	headers := []string{"Duty", "IVA"}
	col, ok := ResolveColumn(headers, CustomsArancel)
	require.True(t, ok)
	require.Equal(t, "Duty", col)
}

func TestResolveColumnMiss(t *testing.T) {
	_, ok := ResolveColumn([]string{"Totally Unrelated"}, CustomsConsignee)
	require.False(t, ok)
}

func TestResolveColumnsPartialFile(t *testing.T) {
	headers := []string{"Ref#", "Arancel", "IVA"}
	m := ResolveColumns(headers)
	require.Equal(t, "Ref#", m[CustomsRefNumber])
	require.Equal(t, "Arancel", m[CustomsArancel])
	require.Equal(t, "IVA", m[CustomsIVA])
	_, ok := m[CustomsConsignee]
	require.False(t, ok)
}

func TestColumnMapValue(t *testing.T) {
	m := ColumnMap{CustomsRefNumber: "Ref#"}
	row := Row{"Ref#": " VEEN5390 "}

	v, ok := m.Value(row, CustomsRefNumber)
	require.True(t, ok)
	require.Equal(t, "VEEN5390", v)

	_, ok = m.Value(Row{"Ref#": "  "}, CustomsRefNumber)
	require.False(t, ok)
	_, ok = m.Value(row, CustomsAmtDue)
	require.False(t, ok)
}
