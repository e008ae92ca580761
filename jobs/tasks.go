// Package jobs owns the background work of the platform: profit
// recalculation after a rate change or nightly, scheduled and processed
// over asynq.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeProfitRecalc recomputes stored derived columns for every
	// order of the listed countries.
	TaskTypeProfitRecalc = "profit:recalc"
)

// ProfitRecalcPayload scopes one recalculation run.
type ProfitRecalcPayload struct {
	Countries []accounts.Country `json:"countries"`
	Reason    string             `json:"reason,omitempty"`
}

// NewProfitRecalcTask constructs the asynq task. An empty country list
// means all countries.
func NewProfitRecalcTask(payload ProfitRecalcPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeProfitRecalc, data), nil
}

// Client submits jobs to the queue. It satisfies the Recalculator hooks of
// the ingestion and rate services.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueRecalc schedules a profit recalculation for the given countries.
func (c *Client) EnqueueRecalc(ctx context.Context, countries []accounts.Country) error {
	task, err := NewProfitRecalcTask(ProfitRecalcPayload{Countries: countries})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
