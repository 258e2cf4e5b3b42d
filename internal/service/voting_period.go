package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Annabf7/el-visionat/internal/config"
	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/teams"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// VotingPeriodManager owns the active round pointer. Publishing a round and
// retiring the previous one is a single store transaction; electing the
// retired round's winner runs afterwards in the background.
type VotingPeriodManager struct {
	rounds          RoundStore
	focus           FocusStore
	winner          *WinnerResolver
	directory       *teams.Directory
	clock           Clock
	loc             *time.Location
	competitionName string
	background      *errgroup.Group
	logger          zerolog.Logger
}

func NewVotingPeriodManager(rounds RoundStore, focus FocusStore, winner *WinnerResolver, directory *teams.Directory, clock Clock, cfg *config.Config, logger zerolog.Logger) *VotingPeriodManager {
	return &VotingPeriodManager{
		rounds:          rounds,
		focus:           focus,
		winner:          winner,
		directory:       directory,
		clock:           clock,
		loc:             cfg.Location,
		competitionName: cfg.CompetitionName,
		background:      new(errgroup.Group),
		logger:          logger,
	}
}

// Publish opens voting on res and closes the previously active round, if it
// differs. The store decides the previous round inside the rollover
// transaction. A round whose voting was ever closed is refused with
// domain.ErrVotingClosed.
func (m *VotingPeriodManager) Publish(ctx context.Context, res *Resolution) (*domain.RoundPublication, error) {
	now := m.clock.Now()
	pub := BuildPublication(res, m.competitionName, m.directory, m.loc, now)

	applied, err := m.rounds.Rollover(ctx, domain.Rollover{
		Publication: pub,
		Pointer: domain.ActiveRound{
			Round:        pub.Round,
			WeekendStart: pub.WeekendStart,
			WeekendEnd:   pub.WeekendEnd,
			PublishedAt:  pub.PublishedAt,
			MatchCount:   len(pub.Matches),
		},
		CloseReason: fmt.Sprintf(constants.CloseReasonNewRound, pub.Round),
		At:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish jornada %d: %w", pub.Round, err)
	}
	pub = applied.Publication

	m.logger.Info().
		Int("jornada", pub.Round).
		Int("previous", applied.Previous).
		Int("matches", len(pub.Matches)).
		Int("teams_not_found", pub.Mapping.NotFound).
		Msg("jornada published")

	if applied.Previous > 0 {
		m.processWinnerAsync(ctx, applied.Previous)
	}
	return &pub, nil
}

// RestWeek closes the active round without opening another one and records
// when the next resolution is expected. It is a no-op before the first
// publication.
func (m *VotingPeriodManager) RestWeek(ctx context.Context) (*domain.ActiveRound, error) {
	now := m.clock.Now()
	rw := domain.RestWeek{
		CloseReason:    constants.CloseReasonRestWeek,
		Message:        constants.RestWeekMessage,
		NextVotingDate: domain.NextVotingDate(now, m.loc),
		At:             now,
	}
	closed, err := m.rounds.MarkRestWeek(ctx, rw)
	if errors.Is(err, domain.ErrNotFound) {
		m.logger.Info().Msg("rest week before any published jornada, nothing to close")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark rest week: %w", err)
	}

	m.logger.Info().
		Int("jornada", closed).
		Time("next_voting_date", rw.NextVotingDate).
		Msg("rest week recorded")

	m.processWinnerAsync(ctx, closed)

	pointer, err := m.rounds.GetActiveRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read active jornada: %w", err)
	}
	return pointer, nil
}

// processWinnerAsync runs outside the caller's transaction and deadline;
// failures are logged and never reach the caller.
func (m *VotingPeriodManager) processWinnerAsync(ctx context.Context, round int) {
	bg := context.WithoutCancel(ctx)
	m.background.Go(func() error {
		if err := m.ProcessWinnerIfNeeded(bg, round); err != nil {
			m.logger.Error().Err(err).Int("jornada", round).Msg("winner processing failed")
		}
		return nil
	})
}

// ProcessWinnerIfNeeded elects round's winner unless the current weekly focus
// already refers to it.
func (m *VotingPeriodManager) ProcessWinnerIfNeeded(ctx context.Context, round int) error {
	current, err := m.focus.GetCurrentFocus(ctx)
	if err != nil {
		return fmt.Errorf("failed to read current weekly focus: %w", err)
	}
	if current != nil && current.Round == round {
		m.logger.Info().Int("jornada", round).Msg("winner already processed, skipping")
		return nil
	}
	_, err = m.winner.Process(ctx, round)
	return err
}

// Wait blocks until all background winner processing has finished.
func (m *VotingPeriodManager) Wait() error {
	return m.background.Wait()
}
