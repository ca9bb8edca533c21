// Package runstatus stores the last batch-run outcome so the admin UI can
// show per-job status without querying job history tables.
package runstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nutricoach_backend/platform/apperr"

	"github.com/redis/go-redis/v9"
)

const (
	lastRunKey = "lifecycle:batch:last_run"
	// retention keeps a stale status visible long enough to notice a dead
	// scheduler before the key quietly disappears.
	retention = 14 * 24 * time.Hour
)

// Outcome is the success/failure flag of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Status is the recorded result of the most recent batch run.
type Status struct {
	Outcome          Outcome   `json:"outcome"`
	Timestamp        time.Time `json:"timestamp"`
	Manual           bool      `json:"manual"`
	ClientsChecked   int       `json:"clients_checked"`
	FollowUpsCreated int       `json:"follow_ups_created"`
	MessagesSent     int       `json:"messages_sent"`
	ClientsFailed    int       `json:"clients_failed"`
	Error            string    `json:"error,omitempty"`
}

// Store persists the last run status in Redis.
type Store struct {
	client redis.UniversalClient
}

// New creates a run-status store on the given Redis client.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Record overwrites the last-run status.
func (s *Store) Record(ctx context.Context, status Status) error {
	if s == nil || s.client == nil {
		return nil
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal run status: %w", err)
	}
	if err := s.client.Set(ctx, lastRunKey, raw, retention).Err(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "record run status failed", err)
	}
	return nil
}

// Last returns the most recent run status, or NotFound when no run has been
// recorded yet.
func (s *Store) Last(ctx context.Context) (Status, error) {
	if s == nil || s.client == nil {
		return Status{}, apperr.NotFound("no batch run recorded")
	}

	raw, err := s.client.Get(ctx, lastRunKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, apperr.NotFound("no batch run recorded")
	}
	if err != nil {
		return Status{}, apperr.Wrap(apperr.KindUnavailable, "read run status failed", err)
	}

	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return Status{}, fmt.Errorf("parse run status: %w", err)
	}
	return status, nil
}
