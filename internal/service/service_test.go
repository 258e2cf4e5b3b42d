package service

import (
	"context"
	"testing"
	"time"

	"github.com/Annabf7/el-visionat/internal/config"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/repository"
	"github.com/Annabf7/el-visionat/internal/teams"
	"github.com/Annabf7/el-visionat/internal/testutil"
	"github.com/rs/zerolog"
)

// testEnv wires every service over a fresh SQLite store and fake upstream sources.
type testEnv struct {
	cfg     *config.Config
	loc     *time.Location
	clock   *testutil.Clock
	source  *testutil.ScheduleSource
	reports *testutil.ReportSource

	rounds  *repository.RoundRepository
	votes   *repository.VoteRepository
	tallies *repository.TallyRepository
	focus   *repository.FocusRepository
	cache   *repository.ScheduleCacheRepository
	runs    *repository.SyncRunRepository

	resolver *JornadaResolver
	winner   *WinnerResolver
	manager  *VotingPeriodManager
	sync     *SyncService
	trigger  *TallyTrigger
	voting   *VoteService
	schedule *ScheduleService
	closer   *SuggestionCloser
}

// directPublisher applies vote changes to the tally trigger synchronously.
type directPublisher struct {
	trigger *TallyTrigger
}

func (p directPublisher) PublishVoteChange(ctx context.Context, change domain.VoteChange) error {
	return p.trigger.Handle(ctx, change)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	loc := testutil.Madrid(t)
	cfg := &config.Config{
		Location:        loc,
		SeasonStart:     domain.SeasonStart{Month: time.October, Day: 1},
		MaxRound:        30,
		CacheTTL:        time.Hour,
		CompetitionID:   "19795",
		CompetitionName: "Super Copa Masculina",
	}
	db := testutil.SetupTestDB(t)
	logger := zerolog.Nop()

	dir, err := teams.LoadDirectory("", logger)
	if err != nil {
		t.Fatalf("Failed to load team directory: %v", err)
	}

	env := &testEnv{
		cfg:     cfg,
		loc:     loc,
		clock:   testutil.NewClock(monday(loc)),
		source:  testutil.NewScheduleSource(),
		reports: testutil.NewReportSource(),
		rounds:  repository.NewRoundRepository(db, logger),
		votes:   repository.NewVoteRepository(db, logger),
		tallies: repository.NewTallyRepository(db, logger),
		focus:   repository.NewFocusRepository(db, logger),
		cache:   repository.NewScheduleCacheRepository(db, logger),
		runs:    repository.NewSyncRunRepository(db, logger),
	}

	env.resolver = NewJornadaResolver(env.source, cfg, logger)
	env.winner = NewWinnerResolver(env.rounds, env.tallies, env.focus, env.source, env.reports, env.clock, cfg, logger)
	env.manager = NewVotingPeriodManager(env.rounds, env.focus, env.winner, dir, env.clock, cfg, logger)
	env.sync = NewSyncService(env.resolver, env.manager, env.rounds, env.runs, env.clock, cfg, logger)
	env.trigger = NewTallyTrigger(env.tallies, logger)
	env.voting = NewVoteService(env.rounds, env.votes, env.tallies, directPublisher{env.trigger}, env.clock, logger)
	env.schedule = NewScheduleService(env.source, env.cache, env.clock, cfg, logger)
	env.closer = NewSuggestionCloser(env.focus, env.clock, logger)

	t.Cleanup(func() { env.manager.Wait() })
	return env
}

// monday is the Monday 08:00 run that resolves the weekend of 10-11 January 2026.
func monday(loc *time.Location) time.Time {
	return time.Date(2026, time.January, 5, 8, 0, 0, 0, loc)
}

func saturday(loc *time.Location, hour int) time.Time {
	return time.Date(2026, time.January, 10, hour, 0, 0, 0, loc)
}

func sunday(loc *time.Location, hour int) time.Time {
	return time.Date(2026, time.January, 11, hour, 0, 0, 0, loc)
}

// publish resolves the weekend following the env clock and publishes it.
func (e *testEnv) publish(t *testing.T) *domain.RoundPublication {
	t.Helper()
	ctx := context.Background()
	now := e.clock.Now()
	res, err := e.resolver.Resolve(ctx, domain.NextWeekend(now, e.loc), e.cfg.CompetitionID, now)
	if err != nil || res == nil {
		t.Fatalf("Resolve() = %v, %v", res, err)
	}
	pub, err := e.manager.Publish(ctx, res)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	return pub
}

func (e *testEnv) tallyMap(t *testing.T, round int) map[string]int {
	t.Helper()
	tallies, err := e.tallies.ListTallies(context.Background(), round)
	if err != nil {
		t.Fatalf("ListTallies() error = %v", err)
	}
	m := make(map[string]int, len(tallies))
	for _, tl := range tallies {
		if tl.Count < 0 {
			t.Fatalf("negative tally %+v", tl)
		}
		m[tl.MatchID] = tl.Count
	}
	return m
}
