package service

import (
	"context"
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
)

// ScheduleSource fetches one round of a competition from the federation.
// Failures wrap domain.ErrUnavailable, or domain.ErrInvalidArgument for an
// out-of-range round.
type ScheduleSource interface {
	FetchRound(ctx context.Context, competitionID string, round int) (*domain.RoundSchedule, error)
}

// ReportSource fetches the officiating report behind a report link. A report
// that does not exist or yields nothing usable wraps domain.ErrNotFound.
type ReportSource interface {
	FetchReport(ctx context.Context, url string) (*domain.OfficialsInfo, error)
}

// RoundStore lookups return domain.ErrNotFound for missing records, except
// GetActiveRound which returns nil when no round was ever published.
type RoundStore interface {
	GetActiveRound(ctx context.Context) (*domain.ActiveRound, error)
	GetPublication(ctx context.Context, round int) (*domain.RoundPublication, error)
	GetVotingPeriod(ctx context.Context, round int) (*domain.VotingPeriod, error)
	// Rollover reads the pointer in the same transaction that moves it and
	// returns the applied rollover with Previous set to the round it closed.
	// A round whose voting was ever closed is refused with
	// domain.ErrVotingClosed.
	Rollover(ctx context.Context, r domain.Rollover) (domain.Rollover, error)
	// MarkRestWeek returns the round it closed, or domain.ErrNotFound when
	// no round was ever published.
	MarkRestWeek(ctx context.Context, r domain.RestWeek) (int, error)
}

// VoteStore writes move the affected tallies in the same transaction as the
// vote, and fail with domain.ErrVotingClosed unless the round's period is open
// inside that transaction.
type VoteStore interface {
	PutVote(ctx context.Context, vote domain.Vote) (domain.VoteChange, error)
	DeleteVote(ctx context.Context, round int, userID string) (domain.VoteChange, error)
	GetVote(ctx context.Context, round int, userID string) (*domain.Vote, error)
	CountVotes(ctx context.Context, round int, matchID string) (int, error)
}

type TallyStore interface {
	// RecountTallies sets each tally to the number of votes pointing at its
	// match, counting and writing in one transaction.
	RecountTallies(ctx context.Context, keys []domain.VoteKey) error
	// TopTally returns the highest tally of the round, ties broken by match id,
	// or nil when the round has no tallies.
	TopTally(ctx context.Context, round int) (*domain.Tally, error)
	ListTallies(ctx context.Context, round int) ([]domain.Tally, error)
}

type FocusStore interface {
	// GetCurrentFocus returns nil when no focus was ever written.
	GetCurrentFocus(ctx context.Context) (*domain.WeeklyFocus, error)
	GetFocus(ctx context.Context, round int) (*domain.WeeklyFocus, error)
	// SaveFocus writes the current pointer and the round's history copy atomically.
	SaveFocus(ctx context.Context, focus domain.WeeklyFocus) error
	// CloseSuggestions closes the current focus' suggestion window if open.
	// It reports whether anything changed.
	CloseSuggestions(ctx context.Context, at time.Time) (*domain.WeeklyFocus, bool, error)
}

type ScheduleCache interface {
	// GetCachedRound returns nil on a miss. Expired entries are still returned;
	// callers compare ExpiresAt themselves.
	GetCachedRound(ctx context.Context, competitionID string, round int) (*domain.CachedRound, error)
	PutCachedRound(ctx context.Context, entry domain.CachedRound) error
}

type SyncRunStore interface {
	RecordSyncRun(ctx context.Context, run domain.SyncRun) error
	ListSyncRuns(ctx context.Context, limit int) ([]domain.SyncRun, error)
}

// VotePublisher emits a vote-written event for every persisted vote change.
type VotePublisher interface {
	PublishVoteChange(ctx context.Context, change domain.VoteChange) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func NewClock() Clock { return SystemClock{} }
