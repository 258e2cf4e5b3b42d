package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Annabf7/el-visionat/internal/database"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

// SetupTestDB opens a migrated SQLite database in a per-test temp dir.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "visionat.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func Madrid(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("Failed to load Europe/Madrid: %v", err)
	}
	return loc
}

type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Fixture builds a scheduled fixture between two teams.
func Fixture(round int, home, away string, kickoff time.Time) domain.Fixture {
	return domain.Fixture{
		Round:     round,
		Home:      domain.TeamRef{Name: home},
		Away:      domain.TeamRef{Name: away},
		KickoffAt: kickoff,
		Status:    domain.MatchScheduled,
	}
}

// ScheduleSource serves canned rounds. Rounds without an entry return an
// empty schedule; rounds listed in Errors fail.
type ScheduleSource struct {
	mu     sync.Mutex
	Rounds map[int][]domain.Fixture
	Links  map[int][]domain.ReportLink
	Errors map[int]error
	calls  []int
	times  []time.Time
}

func NewScheduleSource() *ScheduleSource {
	return &ScheduleSource{
		Rounds: make(map[int][]domain.Fixture),
		Links:  make(map[int][]domain.ReportLink),
		Errors: make(map[int]error),
	}
}

func (s *ScheduleSource) FetchRound(ctx context.Context, competitionID string, round int) (*domain.RoundSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, round)
	s.times = append(s.times, time.Now())
	if err := s.Errors[round]; err != nil {
		return nil, err
	}
	fixtures := append([]domain.Fixture(nil), s.Rounds[round]...)
	return &domain.RoundSchedule{
		CompetitionID: competitionID,
		Round:         round,
		Fixtures:      fixtures,
		ReportLinks:   s.Links[round],
		FetchedAt:     time.Now(),
	}, nil
}

func (s *ScheduleSource) Calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

func (s *ScheduleSource) CallTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.times...)
}

// FailAll makes every round in [1, maxRound] fail with err.
func (s *ScheduleSource) FailAll(maxRound int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for r := 1; r <= maxRound; r++ {
		s.Errors[r] = err
	}
}

type ReportSource struct {
	mu      sync.Mutex
	Reports map[string]*domain.OfficialsInfo
	calls   []string
}

func NewReportSource() *ReportSource {
	return &ReportSource{Reports: make(map[string]*domain.OfficialsInfo)}
}

func (r *ReportSource) FetchReport(ctx context.Context, url string) (*domain.OfficialsInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, url)
	info, ok := r.Reports[url]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", url, domain.ErrNotFound)
	}
	copied := *info
	return &copied, nil
}

func (r *ReportSource) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
