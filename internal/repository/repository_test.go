package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/testutil"
	"github.com/rs/zerolog"
)

func rollover(round int, at time.Time) domain.Rollover {
	weekend := domain.NextWeekend(at, time.UTC)
	return domain.Rollover{
		Publication: domain.RoundPublication{
			Round:           round,
			CompetitionID:   "19795",
			CompetitionName: "Super Copa Masculina",
			Matches: []domain.VotingMatch{
				{MatchID: "m1", Round: round, KickoffAt: weekend.Start.Add(17 * time.Hour)},
			},
			WeekendStart: weekend.Start,
			WeekendEnd:   weekend.End,
			PublishedAt:  at,
			UpdatedAt:    at,
			Source:       "fcbq-scraper",
			Mapping:      domain.MappingStats{Total: 2, Found: 2},
		},
		Pointer: domain.ActiveRound{
			Round:        round,
			WeekendStart: weekend.Start,
			WeekendEnd:   weekend.End,
			PublishedAt:  at,
			MatchCount:   1,
		},
		CloseReason: "Nova jornada publicada",
		At:          at,
	}
}

func openPeriods(t *testing.T, db *sql.DB) []int {
	t.Helper()
	rows, err := db.Query(`SELECT round FROM voting_periods WHERE voting_open = 1 ORDER BY round`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	var open []int
	for rows.Next() {
		var round int
		if err := rows.Scan(&round); err != nil {
			t.Fatal(err)
		}
		open = append(open, round)
	}
	return open
}

func TestRoundRepositoryRollover(t *testing.T) {
	ctx := context.Background()
	repo := NewRoundRepository(testutil.SetupTestDB(t), zerolog.Nop())

	active, err := repo.GetActiveRound(ctx)
	if err != nil || active != nil {
		t.Fatalf("GetActiveRound() on empty store = %v, %v", active, err)
	}

	t0 := time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)
	applied, err := repo.Rollover(ctx, rollover(7, t0))
	if err != nil {
		t.Fatalf("Rollover(7) error = %v", err)
	}
	if applied.Previous != 0 {
		t.Errorf("first rollover closed jornada %d", applied.Previous)
	}

	t1 := t0.AddDate(0, 0, 7)
	applied, err = repo.Rollover(ctx, rollover(8, t1))
	if err != nil {
		t.Fatalf("Rollover(8) error = %v", err)
	}
	if applied.Previous != 7 {
		t.Errorf("Rollover(8) previous = %d, want 7", applied.Previous)
	}

	prev, err := repo.GetVotingPeriod(ctx, 7)
	if err != nil {
		t.Fatalf("GetVotingPeriod(7) error = %v", err)
	}
	if prev.Open || prev.ClosedAt == nil || !prev.ClosedAt.Equal(t1) {
		t.Errorf("jornada 7 period = %+v, want closed at %v", prev, t1)
	}

	next, err := repo.GetVotingPeriod(ctx, 8)
	if err != nil {
		t.Fatalf("GetVotingPeriod(8) error = %v", err)
	}
	if !next.Open || next.ClosedAt != nil {
		t.Errorf("jornada 8 period = %+v, want open", next)
	}

	active, err = repo.GetActiveRound(ctx)
	if err != nil {
		t.Fatalf("GetActiveRound() error = %v", err)
	}
	if active.Round != 8 || active.MatchCount != 1 || active.RestWeek {
		t.Errorf("active = %+v", active)
	}

	pub, err := repo.GetPublication(ctx, 8)
	if err != nil {
		t.Fatalf("GetPublication(8) error = %v", err)
	}
	if len(pub.Matches) != 1 || pub.Match("m1") == nil || pub.Mapping.Found != 2 {
		t.Errorf("publication = %+v", pub)
	}

	if _, err := repo.GetPublication(ctx, 9); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetPublication(9) error = %v, want ErrNotFound", err)
	}
}

func TestRoundRepositoryRepublishKeepsPublishedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewRoundRepository(testutil.SetupTestDB(t), zerolog.Nop())

	t0 := time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)
	if _, err := repo.Rollover(ctx, rollover(7, t0)); err != nil {
		t.Fatal(err)
	}
	applied, err := repo.Rollover(ctx, rollover(7, t0.Add(2*time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if applied.Previous != 0 || !applied.Publication.PublishedAt.Equal(t0) {
		t.Errorf("republish = previous %d, published at %v", applied.Previous, applied.Publication.PublishedAt)
	}
	active, err := repo.GetActiveRound(ctx)
	if err != nil || !active.PublishedAt.Equal(t0) {
		t.Errorf("active = %+v, %v", active, err)
	}
}

func TestRoundRepositoryNeverReopens(t *testing.T) {
	ctx := context.Background()
	repo := NewRoundRepository(testutil.SetupTestDB(t), zerolog.Nop())

	t0 := time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)
	if _, err := repo.Rollover(ctx, rollover(7, t0)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Rollover(ctx, rollover(8, t0.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	// a late rerun publishing 7 again must not reopen it
	if _, err := repo.Rollover(ctx, rollover(7, t0.Add(2*time.Hour))); !errors.Is(err, domain.ErrVotingClosed) {
		t.Fatalf("Rollover(7) again error = %v, want ErrVotingClosed", err)
	}

	period, err := repo.GetVotingPeriod(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if period.Open {
		t.Error("closed jornada 7 was reopened")
	}
	if !period.ClosedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("close time overwritten: %v", period.ClosedAt)
	}
	active, err := repo.GetActiveRound(ctx)
	if err != nil || active.Round != 8 {
		t.Errorf("active = %+v, %v", active, err)
	}
}

func TestRoundRepositoryConcurrentRollovers(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := NewRoundRepository(db, zerolog.Nop())

	t0 := time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)
	if _, err := repo.Rollover(ctx, rollover(14, t0)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	previous := make([]int, 2)
	errs := make([]error, 2)
	for i, round := range []int{15, 16} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := repo.Rollover(ctx, rollover(round, t0.Add(time.Hour)))
			previous[i], errs[i] = applied.Previous, err
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Rollover #%d error = %v", i, err)
		}
	}

	open := openPeriods(t, db)
	active, err := repo.GetActiveRound(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0] != active.Round {
		t.Fatalf("open periods = %v with pointer at %d, want only the pointer's", open, active.Round)
	}

	// each rollover closed a distinct round, so every retired round reaches winner processing
	closed := map[int]bool{previous[0]: true, previous[1]: true}
	loser := 31 - active.Round
	if !closed[14] || !closed[loser] {
		t.Errorf("closed rounds = %v, want 14 and %d", previous, loser)
	}
}

func TestRoundRepositoryRestWeek(t *testing.T) {
	ctx := context.Background()
	repo := NewRoundRepository(testutil.SetupTestDB(t), zerolog.Nop())

	t0 := time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)
	if _, err := repo.MarkRestWeek(ctx, domain.RestWeek{At: t0, NextVotingDate: t0}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("MarkRestWeek() without pointer error = %v, want ErrNotFound", err)
	}

	if _, err := repo.Rollover(ctx, rollover(7, t0)); err != nil {
		t.Fatal(err)
	}
	next := t0.AddDate(0, 0, 14)
	closed, err := repo.MarkRestWeek(ctx, domain.RestWeek{
		CloseReason:    "Setmana de descans",
		Message:        "no games",
		NextVotingDate: next,
		At:             t0.AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("MarkRestWeek() error = %v", err)
	}
	if closed != 7 {
		t.Errorf("MarkRestWeek() closed jornada %d, want 7", closed)
	}

	active, err := repo.GetActiveRound(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active.Round != 7 || !active.RestWeek || active.NextVotingDate == nil || !active.NextVotingDate.Equal(next) {
		t.Errorf("active = %+v", active)
	}
	period, err := repo.GetVotingPeriod(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if period.Open || period.CloseReason != "Setmana de descans" {
		t.Errorf("period = %+v", period)
	}
}

func tallyCounts(t *testing.T, repo *TallyRepository, round int) map[string]int {
	t.Helper()
	tallies, err := repo.ListTallies(context.Background(), round)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]int{}
	for _, tl := range tallies {
		got[tl.MatchID] = tl.Count
	}
	return got
}

func TestVoteRepositoryChanges(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := NewVoteRepository(db, zerolog.Nop())
	tallies := NewTallyRepository(db, zerolog.Nop())
	now := time.Now()

	if _, err := NewRoundRepository(db, zerolog.Nop()).Rollover(ctx, rollover(7, now)); err != nil {
		t.Fatal(err)
	}

	change, err := repo.PutVote(ctx, domain.Vote{Round: 7, UserID: "u1", MatchID: "A", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatal(err)
	}
	if change.Before != nil || change.After == nil || change.After.MatchID != "A" {
		t.Errorf("create change = %+v", change)
	}
	if got := tallyCounts(t, tallies, 7); got["A"] != 1 {
		t.Errorf("tallies after create = %v, want A=1", got)
	}

	change, err = repo.PutVote(ctx, domain.Vote{Round: 7, UserID: "u1", MatchID: "B", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatal(err)
	}
	if change.Before == nil || change.Before.MatchID != "A" || change.After.MatchID != "B" {
		t.Errorf("switch change = %+v", change)
	}
	if got := tallyCounts(t, tallies, 7); got["A"] != 0 || got["B"] != 1 {
		t.Errorf("tallies after switch = %v, want A=0 B=1", got)
	}

	vote, err := repo.GetVote(ctx, 7, "u1")
	if err != nil || vote.MatchID != "B" {
		t.Errorf("GetVote() = %+v, %v", vote, err)
	}

	change, err = repo.DeleteVote(ctx, 7, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if change.Before == nil || change.Before.MatchID != "B" || change.After != nil {
		t.Errorf("delete change = %+v", change)
	}
	if got := tallyCounts(t, tallies, 7); got["B"] != 0 {
		t.Errorf("tallies after delete = %v, want B=0", got)
	}

	change, err = repo.DeleteVote(ctx, 7, "u1")
	if err != nil || !change.Noop() {
		t.Errorf("second delete = %+v, %v", change, err)
	}

	if _, err := repo.GetVote(ctx, 7, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetVote() after delete error = %v", err)
	}
}

func TestVoteRepositoryRefusesClosedRound(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	rounds := NewRoundRepository(db, zerolog.Nop())
	repo := NewVoteRepository(db, zerolog.Nop())
	now := time.Now()

	vote := domain.Vote{Round: 7, UserID: "u1", MatchID: "A", CreatedAt: now, UpdatedAt: now}
	if _, err := repo.PutVote(ctx, vote); !errors.Is(err, domain.ErrVotingClosed) {
		t.Errorf("PutVote() on unopened jornada error = %v, want ErrVotingClosed", err)
	}

	if _, err := rounds.Rollover(ctx, rollover(7, now)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.PutVote(ctx, vote); err != nil {
		t.Fatal(err)
	}
	if _, err := rounds.Rollover(ctx, rollover(8, now)); err != nil {
		t.Fatal(err)
	}

	vote.MatchID = "B"
	if _, err := repo.PutVote(ctx, vote); !errors.Is(err, domain.ErrVotingClosed) {
		t.Errorf("PutVote() on closed jornada error = %v, want ErrVotingClosed", err)
	}
	if _, err := repo.DeleteVote(ctx, 7, "u1"); !errors.Is(err, domain.ErrVotingClosed) {
		t.Errorf("DeleteVote() on closed jornada error = %v, want ErrVotingClosed", err)
	}

	got := tallyCounts(t, NewTallyRepository(db, zerolog.Nop()), 7)
	if got["A"] != 1 || got["B"] != 0 {
		t.Errorf("tallies = %v, want A=1 B=0", got)
	}
	if stored, err := repo.GetVote(ctx, 7, "u1"); err != nil || stored.MatchID != "A" {
		t.Errorf("GetVote() = %+v, %v", stored, err)
	}
}

func TestApplyVoteChangeFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := NewTallyRepository(db, zerolog.Nop())

	a := &domain.VoteKey{Round: 7, MatchID: "A"}
	b := &domain.VoteKey{Round: 7, MatchID: "B"}

	steps := []domain.VoteChange{
		{After: a},
		{After: a},
		{Before: a, After: b},
		{Before: b},
		{Before: b},
		{Before: &domain.VoteKey{Round: 7, MatchID: "C"}},
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range steps {
		if err := applyVoteChange(ctx, tx, c, time.Now()); err != nil {
			t.Fatalf("applyVoteChange(%+v) error = %v", c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	got := tallyCounts(t, repo, 7)
	if got["A"] != 1 || got["B"] != 0 {
		t.Errorf("tallies = %v, want A=1 B=0", got)
	}
	if _, ok := got["C"]; ok {
		t.Error("decrement of a missing tally must not create it")
	}

	top, err := repo.TopTally(ctx, 7)
	if err != nil || top == nil || top.MatchID != "A" {
		t.Errorf("TopTally() = %+v, %v", top, err)
	}
	if top, err := repo.TopTally(ctx, 8); err != nil || top != nil {
		t.Errorf("TopTally(8) = %+v, %v", top, err)
	}
}

func TestRecountTallies(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	votes := NewVoteRepository(db, zerolog.Nop())
	repo := NewTallyRepository(db, zerolog.Nop())
	now := time.Now()

	if _, err := NewRoundRepository(db, zerolog.Nop()).Rollover(ctx, rollover(7, now)); err != nil {
		t.Fatal(err)
	}
	for _, user := range []string{"u1", "u2"} {
		if _, err := votes.PutVote(ctx, domain.Vote{Round: 7, UserID: user, MatchID: "A", CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatal(err)
		}
	}
	// drift the stored tally away from the votes
	if _, err := db.Exec(`UPDATE vote_counts SET count = 9 WHERE round = 7 AND match_id = 'A'`); err != nil {
		t.Fatal(err)
	}

	keys := []domain.VoteKey{{Round: 7, MatchID: "A"}, {Round: 7, MatchID: "B"}}
	if err := repo.RecountTallies(ctx, keys); err != nil {
		t.Fatalf("RecountTallies() error = %v", err)
	}
	got := tallyCounts(t, repo, 7)
	if got["A"] != 2 || got["B"] != 0 {
		t.Errorf("tallies = %v, want A=2 B=0", got)
	}
}

func TestFocusRepositoryCloseSuggestions(t *testing.T) {
	ctx := context.Background()
	repo := NewFocusRepository(testutil.SetupTestDB(t), zerolog.Nop())
	now := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)

	if focus, changed, err := repo.CloseSuggestions(ctx, now); err != nil || changed || focus != nil {
		t.Fatalf("CloseSuggestions() on empty store = %v, %v, %v", focus, changed, err)
	}

	if err := repo.SaveFocus(ctx, domain.WeeklyFocus{
		Round:              7,
		WinningMatch:       domain.VotingMatch{MatchID: "A", Round: 7},
		TotalVotes:         3,
		VotingClosedAt:     now,
		SuggestionsOpen:    true,
		SuggestionsCloseAt: now.Add(56 * time.Hour),
		Status:             domain.FocusMinutatge,
	}); err != nil {
		t.Fatalf("SaveFocus() error = %v", err)
	}

	closedAt := now.Add(56 * time.Hour)
	focus, changed, err := repo.CloseSuggestions(ctx, closedAt)
	if err != nil || !changed {
		t.Fatalf("CloseSuggestions() = %v, %v", changed, err)
	}
	if focus.SuggestionsOpen || focus.Status != domain.FocusEntrevistaPendent {
		t.Errorf("focus = %+v", focus)
	}

	_, changed, err = repo.CloseSuggestions(ctx, closedAt.Add(time.Hour))
	if err != nil || changed {
		t.Errorf("second CloseSuggestions() changed = %v, err = %v", changed, err)
	}

	history, err := repo.GetFocus(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if history.SuggestionsOpen || history.SuggestionsClosedAt == nil || !history.SuggestionsClosedAt.Equal(closedAt) {
		t.Errorf("history copy = %+v", history)
	}
	if history.Officials != nil {
		t.Errorf("officials = %+v, want nil", history.Officials)
	}
}

func TestSyncRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRunRepository(testutil.SetupTestDB(t), zerolog.Nop())
	base := time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := repo.RecordSyncRun(ctx, domain.SyncRun{
			ID:        id,
			Trigger:   domain.TriggerSchedule,
			StartedAt: base.AddDate(0, 0, 7*i),
			Published: i != 1,
			Round:     7 + i,
		}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := repo.ListSyncRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" || runs[1].Published {
		t.Errorf("runs = %+v", runs)
	}
}
