package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/testutil"
)

func TestGetRoundCaching(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.source.Rounds[9] = []domain.Fixture{testutil.Fixture(9, "CB Vic", "CB Igualada", saturday(env.loc, 18))}

	first, err := env.schedule.GetRound(ctx, "", 9, false)
	if err != nil {
		t.Fatalf("GetRound() error = %v", err)
	}
	if first.FromCache || len(first.Schedule.Fixtures) != 1 || first.Schedule.CompetitionID != "19795" {
		t.Errorf("first = %+v", first)
	}

	second, err := env.schedule.GetRound(ctx, "", 9, false)
	if err != nil || !second.FromCache || second.Stale {
		t.Errorf("second = %+v, %v", second, err)
	}
	if calls := len(env.source.Calls()); calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}

	if _, err := env.schedule.GetRound(ctx, "", 9, true); err != nil {
		t.Fatalf("GetRound(force) error = %v", err)
	}
	env.clock.Set(env.clock.Now().Add(2 * time.Hour))
	if view, err := env.schedule.GetRound(ctx, "", 9, false); err != nil || view.FromCache {
		t.Errorf("expired = %+v, %v", view, err)
	}
	if calls := len(env.source.Calls()); calls != 3 {
		t.Errorf("upstream calls = %d, want 3", calls)
	}
}

func TestGetRoundStaleFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.source.Rounds[9] = []domain.Fixture{testutil.Fixture(9, "CB Vic", "CB Igualada", saturday(env.loc, 18))}

	if _, err := env.schedule.GetRound(ctx, "", 9, false); err != nil {
		t.Fatalf("GetRound() error = %v", err)
	}
	env.source.Errors[9] = domain.ErrUnavailable
	env.clock.Set(env.clock.Now().Add(2 * time.Hour))

	view, err := env.schedule.GetRound(ctx, "", 9, false)
	if err != nil {
		t.Fatalf("GetRound() error = %v", err)
	}
	if !view.Stale || !view.FromCache || len(view.Schedule.Fixtures) != 1 {
		t.Errorf("view = %+v", view)
	}

	if _, err := env.schedule.GetRound(ctx, "", 10, false); err != nil {
		t.Fatalf("GetRound(10) error = %v", err)
	}
	env.source.Errors[11] = errors.New("timeout")
	if _, err := env.schedule.GetRound(ctx, "", 11, false); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("uncached failure error = %v", err)
	}
}

func TestGetRoundOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	for _, round := range []int{0, 31} {
		if _, err := env.schedule.GetRound(context.Background(), "", round, false); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("GetRound(%d) error = %v", round, err)
		}
	}
}
