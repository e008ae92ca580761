package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityLog represents a record stored in activity_logs. Ingestion and
// rate-change operations record one entry per run.
type ActivityLog struct {
	Actor       string
	Action      string
	Description string
	Source      string
	RecordCount int
	Status      string
	Counts      map[string]int
	At          time.Time
}

// ActivityLogger writes records into activity_logs.
type ActivityLogger struct {
	pool *pgxpool.Pool
}

// NewActivityLogger returns a new ActivityLogger.
func NewActivityLogger(pool *pgxpool.Pool) *ActivityLogger {
	return &ActivityLogger{pool: pool}
}

// Record persists the log entry.
func (l *ActivityLogger) Record(ctx context.Context, log ActivityLog) error {
	if l == nil {
		return errors.New("activity logger not initialised")
	}
	if log.Action == "" {
		return errors.New("activity log requires an action")
	}
	if log.Status == "" {
		log.Status = "success"
	}
	countsJSON, err := json.Marshal(log.Counts)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO activity_logs (actor, action, description, source, records_count, status, counts, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE(NULLIF($8, '0001-01-01'::timestamptz), NOW()))`,
		log.Actor, log.Action, log.Description, log.Source, log.RecordCount, log.Status, countsJSON, log.At)
	return err
}
