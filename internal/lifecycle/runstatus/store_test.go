package runstatus

import (
	"context"
	"testing"
	"time"

	"nutricoach_backend/platform/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestLastWithoutRecordReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Last(context.Background())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordThenLastRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := Status{
		Outcome:          OutcomeSuccess,
		Timestamp:        time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC),
		Manual:           true,
		ClientsChecked:   12,
		FollowUpsCreated: 3,
		MessagesSent:     4,
	}
	if err := store.Record(ctx, want); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := store.Last(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestRecordOverwritesPreviousRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Status{Outcome: OutcomeFailed, Error: "cannot load client list"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(ctx, Status{Outcome: OutcomeSuccess, ClientsChecked: 2}); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := store.Last(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if got.Outcome != OutcomeSuccess || got.Error != "" {
		t.Fatalf("expected latest status to win, got %+v", got)
	}
}
