package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus := NewBus(zerolog.Nop())
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestPublishDeliversBeforeReturning(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []domain.VoteChange
	)
	err := bus.SubscribeVoteChanges(ctx, func(_ context.Context, change domain.VoteChange) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, change)
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeVoteChanges() error = %v", err)
	}

	changes := []domain.VoteChange{
		{After: &domain.VoteKey{Round: 9, MatchID: "X"}},
		{Before: &domain.VoteKey{Round: 9, MatchID: "X"}, After: &domain.VoteKey{Round: 9, MatchID: "Y"}},
		{Before: &domain.VoteKey{Round: 9, MatchID: "Y"}},
	}
	for i, c := range changes {
		if err := bus.PublishVoteChange(ctx, c); err != nil {
			t.Fatalf("PublishVoteChange() error = %v", err)
		}
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n != i+1 {
			t.Fatalf("after publish %d handler saw %d events", i+1, n)
		}
	}

	if got[1].Before.MatchID != "X" || got[1].After.MatchID != "Y" || got[2].After != nil {
		t.Errorf("decoded changes = %+v", got)
	}
}

func TestFailingHandlerIsCalledOnce(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int
	err := bus.SubscribeVoteChanges(ctx, func(context.Context, domain.VoteChange) error {
		attempts++
		return errors.New("database is locked")
	})
	if err != nil {
		t.Fatalf("SubscribeVoteChanges() error = %v", err)
	}

	if err := bus.PublishVoteChange(ctx, domain.VoteChange{After: &domain.VoteKey{Round: 1, MatchID: "X"}}); err != nil {
		t.Fatalf("PublishVoteChange() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestPublishWithoutSubscriber(t *testing.T) {
	bus := newTestBus(t)
	if err := bus.PublishVoteChange(context.Background(), domain.VoteChange{}); err != nil {
		t.Errorf("PublishVoteChange() error = %v", err)
	}
}
