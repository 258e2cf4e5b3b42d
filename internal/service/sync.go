package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Annabf7/el-visionat/internal/config"
	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const reasonNoGames = "no games"

type SyncResult struct {
	RunID        string    `json:"runId"`
	Published    bool      `json:"published"`
	Round        int       `json:"jornada,omitempty"`
	MatchCount   int       `json:"matchCount"`
	Reason       string    `json:"reason"`
	RestWeek     bool      `json:"restWeek"`
	WeekendStart time.Time `json:"weekendStart"`
	WeekendEnd   time.Time `json:"weekendEnd"`
}

// ActiveRoundView is the active pointer with its publication and voting period.
type ActiveRoundView struct {
	Pointer     domain.ActiveRound       `json:"pointer"`
	Publication *domain.RoundPublication `json:"publication,omitempty"`
	Period      *domain.VotingPeriod     `json:"votingPeriod,omitempty"`
}

// SyncService is the weekly resolve-and-publish entry point shared by the
// scheduler, the RPC surface and the CLI.
type SyncService struct {
	resolver      *JornadaResolver
	manager       *VotingPeriodManager
	rounds        RoundStore
	runs          SyncRunStore
	clock         Clock
	loc           *time.Location
	competitionID string
	logger        zerolog.Logger
}

func NewSyncService(resolver *JornadaResolver, manager *VotingPeriodManager, rounds RoundStore, runs SyncRunStore, clock Clock, cfg *config.Config, logger zerolog.Logger) *SyncService {
	return &SyncService{
		resolver:      resolver,
		manager:       manager,
		rounds:        rounds,
		runs:          runs,
		clock:         clock,
		loc:           cfg.Location,
		competitionID: cfg.CompetitionID,
		logger:        logger,
	}
}

// ParseTargetDate accepts an RFC 3339 instant or a plain YYYY-MM-DD day in loc.
func ParseTargetDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("target date %q is not an ISO date: %w", s, domain.ErrInvalidArgument)
}

// ResolveAndPublish resolves the weekend following targetDate (now when empty)
// and publishes its round. "No games" is a result, not an error. Without a
// target date a weekend with no games closes the active round as a rest week.
// Errors are always one of the domain taxonomy sentinels.
func (s *SyncService) ResolveAndPublish(ctx context.Context, trigger domain.SyncTrigger, targetDate string) (*SyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.SyncTimeout)
	defer cancel()

	now := s.clock.Now()
	run := domain.SyncRun{Trigger: trigger, StartedAt: now}
	if id, err := gonanoid.New(); err == nil {
		run.ID = id
	} else {
		run.ID = fmt.Sprintf("run-%d", now.UnixNano())
	}

	reference := now
	if targetDate != "" {
		t, err := ParseTargetDate(targetDate, s.loc)
		if err != nil {
			s.finish(ctx, &run, err)
			return nil, err
		}
		reference = t
		run.TargetDate = &t
	}

	result, err := s.resolveAndPublish(ctx, reference, targetDate == "")
	if err != nil {
		err = domain.Canonical(err)
		s.logger.Error().Err(err).Str("run_id", run.ID).Str("trigger", string(trigger)).Msg("sync failed")
		s.finish(ctx, &run, err)
		return nil, err
	}

	result.RunID = run.ID
	run.Published = result.Published
	run.Round = result.Round
	run.MatchCount = result.MatchCount
	run.Reason = result.Reason
	run.WeekendStart = result.WeekendStart
	run.WeekendEnd = result.WeekendEnd
	s.finish(ctx, &run, nil)

	s.logger.Info().
		Str("run_id", run.ID).
		Str("trigger", string(trigger)).
		Bool("published", result.Published).
		Int("jornada", result.Round).
		Str("reason", result.Reason).
		Msg("sync finished")
	return result, nil
}

func (s *SyncService) resolveAndPublish(ctx context.Context, reference time.Time, current bool) (*SyncResult, error) {
	window := domain.NextWeekend(reference, s.loc)
	result := &SyncResult{WeekendStart: window.Start, WeekendEnd: window.End}

	res, err := s.resolver.Resolve(ctx, window, s.competitionID, reference)
	if err != nil {
		return nil, err
	}

	if res == nil {
		result.Reason = reasonNoGames
		if current {
			pointer, err := s.manager.RestWeek(ctx)
			if err != nil {
				return nil, err
			}
			if pointer != nil {
				result.RestWeek = true
				result.Round = pointer.Round
			}
		}
		return result, nil
	}

	pub, err := s.manager.Publish(ctx, res)
	if errors.Is(err, domain.ErrVotingClosed) {
		s.logger.Warn().Int("jornada", res.Round).Msg("resolved jornada already closed, not reopening")
		result.Round = res.Round
		result.Reason = fmt.Sprintf("jornada %d already closed", res.Round)
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Published = true
	result.Round = pub.Round
	result.MatchCount = len(pub.Matches)
	result.Reason = res.Reason
	return result, nil
}

// finish records the run; a failure to record never fails the sync itself.
func (s *SyncService) finish(ctx context.Context, run *domain.SyncRun, runErr error) {
	run.FinishedAt = s.clock.Now()
	if runErr != nil {
		run.Error = runErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DatabaseTimeout)
	defer cancel()
	if err := s.runs.RecordSyncRun(ctx, *run); err != nil {
		s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record sync run")
	}
}

// GetActiveRound returns nil when no round was ever published.
func (s *SyncService) GetActiveRound(ctx context.Context) (*ActiveRoundView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	pointer, err := s.rounds.GetActiveRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read active jornada: %w", err)
	}
	if pointer == nil {
		return nil, nil
	}

	view := &ActiveRoundView{Pointer: *pointer}
	pub, err := s.rounds.GetPublication(ctx, pointer.Round)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Warn().Int("jornada", pointer.Round).Msg("active jornada has no publication")
	case err != nil:
		return nil, fmt.Errorf("failed to load jornada publication: %w", err)
	default:
		view.Publication = pub
	}

	period, err := s.rounds.GetVotingPeriod(ctx, pointer.Round)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load voting period: %w", err)
	default:
		view.Period = period
	}
	return view, nil
}

func (s *SyncService) ListSyncRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = constants.SyncRunsLimit
	}
	runs, err := s.runs.ListSyncRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}

// Wait drains background winner processing started by earlier syncs.
func (s *SyncService) Wait() error {
	return s.manager.Wait()
}
