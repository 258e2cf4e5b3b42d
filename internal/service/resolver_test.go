package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/testutil"
)

func resolve(t *testing.T, env *testEnv) (*Resolution, error) {
	t.Helper()
	now := env.clock.Now()
	return env.resolver.Resolve(context.Background(), domain.NextWeekend(now, env.loc), env.cfg.CompetitionID, now)
}

func TestResolveDuplicateSignatures(t *testing.T) {
	env := newTestEnv(t)
	loc := env.loc

	s1 := testutil.Fixture(0, "CB Tàrrega", "UE Mataró", saturday(loc, 17))
	s2 := testutil.Fixture(0, "CB Granollers", "CB Igualada", sunday(loc, 12))
	s3 := testutil.Fixture(0, "CB Vic", "AE Badalonès", saturday(loc, 19))
	env.source.Rounds[7] = []domain.Fixture{s1, s2}
	env.source.Rounds[8] = []domain.Fixture{s2, s3}

	res, err := resolve(t, env)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Round != 8 {
		t.Fatalf("round = %d, want 8", res.Round)
	}
	if res.EffectiveCount != 2 {
		t.Errorf("effective count = %d, want 2", res.EffectiveCount)
	}
	if len(res.Fixtures) != 2 {
		t.Errorf("fixtures = %d, want 2", len(res.Fixtures))
	}
	if !strings.HasPrefix(res.Reason, "duplicate-signature recovery: 1 fixtures") {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestResolveSharedSignaturePrefersHigherRound(t *testing.T) {
	env := newTestEnv(t)
	shared := testutil.Fixture(0, "FC Martinenc Bàsquet A", "CB Vic", saturday(env.loc, 18))
	republished := testutil.Fixture(0, "FC MARTINENC BASQUET A", "CB VIC", saturday(env.loc, 18))
	env.source.Rounds[13] = []domain.Fixture{shared}
	env.source.Rounds[14] = []domain.Fixture{republished}

	res, err := resolve(t, env)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Round != 14 {
		t.Errorf("round = %d, want 14", res.Round)
	}
}

func TestResolveSingleCandidateStopsAtProbe(t *testing.T) {
	env := newTestEnv(t)
	env.source.Rounds[15] = []domain.Fixture{
		testutil.Fixture(0, "CB Tàrrega", "UE Mataró", saturday(env.loc, 17)),
		testutil.Fixture(0, "CB Vic", "CB Igualada", time.Date(2026, 1, 17, 17, 0, 0, 0, env.loc)),
	}

	res, err := resolve(t, env)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Round != 15 || len(res.Fixtures) != 1 {
		t.Errorf("resolution = round %d with %d fixtures, want round 15 with 1", res.Round, len(res.Fixtures))
	}
	if res.Reason != "single candidate with weekend fixtures" {
		t.Errorf("reason = %q", res.Reason)
	}

	want := []int{14, 15, 16, 17, 18, 19, 13, 12, 11}
	if got := env.source.Calls(); !slices.Equal(got, want) {
		t.Errorf("scanned %v, want %v", got, want)
	}
}

func TestResolveFullScanFallback(t *testing.T) {
	env := newTestEnv(t)
	env.source.Rounds[3] = []domain.Fixture{testutil.Fixture(0, "CB Vic", "CB Igualada", sunday(env.loc, 18))}

	res, err := resolve(t, env)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Round != 3 {
		t.Errorf("round = %d, want 3", res.Round)
	}

	calls := env.source.Calls()
	if len(calls) != 30 {
		t.Errorf("calls = %d, want every jornada once", len(calls))
	}
	seen := make(map[int]bool)
	for _, c := range calls {
		if seen[c] {
			t.Errorf("jornada %d fetched twice", c)
		}
		seen[c] = true
	}
}

func TestResolveNoGames(t *testing.T) {
	env := newTestEnv(t)
	env.source.Rounds[14] = []domain.Fixture{
		testutil.Fixture(0, "CB Vic", "CB Igualada", time.Date(2026, 1, 9, 21, 0, 0, 0, env.loc)),
		testutil.Fixture(0, "CB Tàrrega", "UE Mataró", time.Date(2026, 1, 12, 0, 0, 0, 0, env.loc)),
	}
	env.source.Errors[20] = domain.ErrUnavailable

	res, err := resolve(t, env)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res != nil {
		t.Errorf("resolution = %+v, want none", res)
	}
}

func TestResolveAllFetchesFail(t *testing.T) {
	env := newTestEnv(t)
	env.source.FailAll(30, domain.ErrUnavailable)

	_, err := resolve(t, env)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("error = %v, want unavailable", err)
	}
	if calls := len(env.source.Calls()); calls != 30 {
		t.Errorf("calls = %d, want 30", calls)
	}
}

func TestResolveSkipsFailingCandidate(t *testing.T) {
	env := newTestEnv(t)
	env.source.Errors[15] = errors.New("connection reset")
	env.source.Rounds[16] = []domain.Fixture{testutil.Fixture(0, "CB Vic", "CB Igualada", saturday(env.loc, 12))}

	res, err := resolve(t, env)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Round != 16 {
		t.Errorf("round = %d, want 16", res.Round)
	}
}

func TestResolveHonoursScanDelay(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.MaxRound = 4
	env.cfg.ScanDelay = 20 * time.Millisecond
	resolver := NewJornadaResolver(env.source, env.cfg, env.resolver.logger)

	now := env.clock.Now()
	if _, err := resolver.Resolve(context.Background(), domain.NextWeekend(now, env.loc), "19795", now); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	times := env.source.CallTimes()
	if len(times) != 4 {
		t.Fatalf("calls = %d, want 4", len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < 20*time.Millisecond {
			t.Errorf("gap between call %d and %d = %v", i-1, i, gap)
		}
	}
}

func TestResolveCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	now := env.clock.Now()
	_, err := env.resolver.Resolve(ctx, domain.NextWeekend(now, env.loc), "19795", now)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if calls := len(env.source.Calls()); calls != 0 {
		t.Errorf("calls = %d after cancellation", calls)
	}
}

func TestSelectRound(t *testing.T) {
	cand := func(round int, sigs ...string) candidate {
		fixtures := make([]domain.Fixture, len(sigs))
		return candidate{round: round, schedule: &domain.RoundSchedule{Round: round}, fixtures: fixtures, signatures: sigs}
	}

	tests := []struct {
		name       string
		candidates []candidate
		wantRound  int
		wantCount  int
	}{
		{"unique beats shared", []candidate{cand(7, "a", "b", "c"), cand(8, "c")}, 7, 2},
		{"higher round takes all duplicates", []candidate{cand(10, "a", "b"), cand(11, "a", "b"), cand(12, "a", "b")}, 12, 2},
		{"equal counts prefer higher round", []candidate{cand(4, "a"), cand(5, "b")}, 5, 1},
		{"lower round keeps its own fixtures", []candidate{cand(5, "a", "b", "c"), cand(6, "a")}, 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := selectRound(tt.candidates)
			if res.Round != tt.wantRound || res.EffectiveCount != tt.wantCount {
				t.Errorf("selectRound() = round %d count %d, want round %d count %d",
					res.Round, res.EffectiveCount, tt.wantRound, tt.wantCount)
			}
		})
	}
}
