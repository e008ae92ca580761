// Package accounts models the closed set of seller accounts the platform
// operates. Every account maps to exactly one country, one assignment-key
// prefix and one profit formula family; the set is fixed, so dispatch over it
// is exhaustive rather than string matching scattered around call sites.
package accounts

import "github.com/jordymora1978/GSS-Utilidad/internal/normalize"

// Identity is one of the eight known seller accounts. The literal values are
// the account names as they appear in every source file.
type Identity string

const (
	TodoencargoCO       Identity = "1-TODOENCARGO-CO"
	MegatiendaSPA       Identity = "2-MEGATIENDA SPA"
	Veendelo            Identity = "3-VEENDELO"
	MegaTiendasPeruanas Identity = "4-MEGA TIENDAS PERUANAS"
	Detodoparatodos     Identity = "5-DETODOPARATODOS"
	Comprafacil         Identity = "6-COMPRAFACIL"
	CompraYa            Identity = "7-COMPRA-YA"
	Faborcargo          Identity = "8-FABORCARGO"
)

// All lists every known identity in stable order.
var All = []Identity{
	TodoencargoCO,
	MegatiendaSPA,
	Veendelo,
	MegaTiendasPeruanas,
	Detodoparatodos,
	Comprafacil,
	CompraYa,
	Faborcargo,
}

// Country is the market an account settles in.
type Country string

const (
	Colombia Country = "colombia"
	Peru     Country = "peru"
	Chile    Country = "chile"
)

// Family identifies which profit formula applies to an account.
type Family int

const (
	// FamilyUnknown is returned for unrecognized identities.
	FamilyUnknown Family = iota
	// FamilySimple: net USD minus cost of goods and logistics charges.
	FamilySimple
	// FamilyPartnerFee: FamilySimple plus a fixed per-order partner fee on
	// approved orders.
	FamilyPartnerFee
	// FamilyRevenueSplit: billing tax plus the 7.5 USD partner/operator
	// threshold split.
	FamilyRevenueSplit
	// FamilyCarrierNet: weight-table handling fee netted against the
	// carrier's amount due; no e-commerce revenue term.
	FamilyCarrierNet
	// FamilyDropOff: Chile-market formula with drop-off warehouse surcharge
	// and per-order partner fee.
	FamilyDropOff
)

var prefixes = map[Identity]string{
	TodoencargoCO:       "TDC",
	MegatiendaSPA:       "MEGA",
	Veendelo:            "VEEN",
	MegaTiendasPeruanas: "MGA-PE",
	Detodoparatodos:     "DTPT",
	Comprafacil:         "CFA",
	CompraYa:            "CPYA",
	Faborcargo:          "FBC",
}

// Parse returns the identity for a raw account name.
func Parse(raw string) (Identity, bool) {
	id := Identity(raw)
	_, ok := prefixes[id]
	return id, ok
}

// Prefix returns the assignment-key prefix, empty for unknown identities.
func (i Identity) Prefix() string {
	return prefixes[i]
}

// Country reports the market the account settles in.
func (i Identity) Country() Country {
	switch i {
	case TodoencargoCO, Detodoparatodos, Comprafacil, CompraYa:
		return Colombia
	case MegaTiendasPeruanas:
		return Peru
	case MegatiendaSPA, Veendelo, Faborcargo:
		return Chile
	}
	return ""
}

// Family reports which profit formula applies.
func (i Identity) Family() Family {
	switch i {
	case TodoencargoCO:
		return FamilySimple
	case MegaTiendasPeruanas:
		return FamilyPartnerFee
	case Detodoparatodos, Comprafacil, CompraYa:
		return FamilyRevenueSplit
	case Faborcargo:
		return FamilyCarrierNet
	case MegatiendaSPA, Veendelo:
		return FamilyDropOff
	}
	return FamilyUnknown
}

// Assignment derives the synthetic cross-file join key: account prefix plus
// the normalized serial number. An unrecognized account degrades to the bare
// normalized serial rather than failing; a missing serial yields no key.
func Assignment(accountName, serialNumber string) (string, bool) {
	serial, ok := normalize.ID(serialNumber, normalize.Moderate)
	if !ok {
		return "", false
	}
	id, known := Parse(accountName)
	if !known {
		return serial, true
	}
	return id.Prefix() + serial, true
}
