// Package rates manages the per-country currency rates (TRM) the profit
// calculation converts with: one current value per country, a history of
// every change and a short-lived cache in front of storage.
package rates

import (
	"time"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
)

// Rate is the current conversion rate for one country.
type Rate struct {
	Country       accounts.Country `db:"country" json:"country"`
	Value         float64          `db:"value" json:"value"`
	PreviousValue *float64         `db:"previous_value" json:"previous_value,omitempty"`
	UpdatedBy     string           `db:"updated_by" json:"updated_by"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// HistoryEntry is one recorded rate change.
type HistoryEntry struct {
	ID            int64            `db:"id" json:"id"`
	Country       accounts.Country `db:"country" json:"country"`
	PreviousValue float64          `db:"previous_value" json:"previous_value"`
	NewValue      float64          `db:"new_value" json:"new_value"`
	ChangePct     float64          `db:"change_pct" json:"change_pct"`
	Actor         string           `db:"actor" json:"actor"`
	Reason        string           `db:"reason" json:"reason"`
	OccurredAt    time.Time        `db:"occurred_at" json:"occurred_at"`
}

// RateChange is the outcome of one update: the history entry plus whether
// the change is large enough to recommend recalculating stored profits.
type RateChange struct {
	Entry       HistoryEntry `json:"entry"`
	Significant bool         `json:"significant"`
}
