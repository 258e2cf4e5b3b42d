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
)

// WinnerResolver elects the most voted match of a closed round and stores it,
// with its officiating crew when the report can be found, as the weekly focus.
type WinnerResolver struct {
	rounds          RoundStore
	tallies         TallyStore
	focus           FocusStore
	schedule        ScheduleSource
	reports         ReportSource
	clock           Clock
	loc             *time.Location
	competitionName string
	logger          zerolog.Logger
}

func NewWinnerResolver(rounds RoundStore, tallies TallyStore, focus FocusStore, schedule ScheduleSource, reports ReportSource, clock Clock, cfg *config.Config, logger zerolog.Logger) *WinnerResolver {
	return &WinnerResolver{
		rounds:          rounds,
		tallies:         tallies,
		focus:           focus,
		schedule:        schedule,
		reports:         reports,
		clock:           clock,
		loc:             cfg.Location,
		competitionName: cfg.CompetitionName,
		logger:          logger,
	}
}

// Process writes the weekly focus for round. It returns nil without touching
// the store when the round has no votes.
func (w *WinnerResolver) Process(ctx context.Context, round int) (*domain.WeeklyFocus, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.WinnerTimeout)
	defer cancel()

	top, err := w.tallies.TopTally(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("failed to read top tally: %w", err)
	}
	if top == nil || top.Count == 0 {
		w.logger.Info().Int("jornada", round).Msg("no votes for jornada, skipping weekly focus")
		return nil, nil
	}

	pub, err := w.rounds.GetPublication(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("failed to load jornada %d publication: %w", round, err)
	}
	match := pub.Match(top.MatchID)
	if match == nil {
		return nil, fmt.Errorf("winning match %s not published in jornada %d: %w", top.MatchID, round, domain.ErrNotFound)
	}

	w.logger.Info().
		Int("jornada", round).
		Str("match_id", match.MatchID).
		Int("votes", top.Count).
		Msg("winning match elected")

	officials := w.findOfficials(ctx, pub.CompetitionID, round, *match)

	now := w.clock.Now()
	focus := domain.WeeklyFocus{
		Round:              round,
		CompetitionName:    pub.CompetitionName,
		WinningMatch:       *match,
		TotalVotes:         top.Count,
		Officials:          officials,
		VotingClosedAt:     now,
		SuggestionsOpen:    true,
		SuggestionsCloseAt: domain.SuggestionsDeadline(now, w.loc),
		Status:             domain.FocusMinutatge,
	}
	if err := w.focus.SaveFocus(ctx, focus); err != nil {
		return nil, fmt.Errorf("failed to save weekly focus: %w", err)
	}

	w.logger.Info().
		Int("jornada", round).
		Str("match_id", match.MatchID).
		Bool("officials", officials != nil).
		Time("suggestions_close_at", focus.SuggestionsCloseAt).
		Msg("weekly focus saved")
	return &focus, nil
}

// findOfficials is best effort: any failure leaves the focus without a crew.
func (w *WinnerResolver) findOfficials(ctx context.Context, competitionID string, round int, match domain.VotingMatch) *domain.OfficialsInfo {
	schedule, err := w.schedule.FetchRound(ctx, competitionID, round)
	if err != nil {
		w.logger.Warn().Err(err).Int("jornada", round).Msg("failed to refetch jornada for report lookup")
		return nil
	}

	url := reportURLFor(schedule, match)
	if url == "" {
		w.logger.Warn().Int("jornada", round).Str("match_id", match.MatchID).Msg("no report link for winning match")
		return nil
	}

	info, err := w.reports.FetchReport(ctx, url)
	if err != nil {
		event := w.logger.Warn()
		if errors.Is(err, domain.ErrNotFound) {
			event = w.logger.Info()
		}
		event.Err(err).Str("url", url).Msg("report unavailable, keeping focus without officials")
		return nil
	}
	return info
}

// reportURLFor tries the exact fixture, then the same pairing in either
// orientation, then any report link listed next to one of the two teams.
func reportURLFor(schedule *domain.RoundSchedule, match domain.VotingMatch) string {
	home, away := teams.Normalize(match.Home.NameRaw), teams.Normalize(match.Away.NameRaw)

	for _, f := range schedule.Fixtures {
		if f.ReportURL != "" && teams.Normalize(f.Home.Name) == home &&
			teams.Normalize(f.Away.Name) == away && f.KickoffAt.Equal(match.KickoffAt) {
			return f.ReportURL
		}
	}
	for _, f := range schedule.Fixtures {
		if f.ReportURL == "" {
			continue
		}
		fh, fa := teams.Normalize(f.Home.Name), teams.Normalize(f.Away.Name)
		if (fh == home && fa == away) || (fh == away && fa == home) {
			return f.ReportURL
		}
	}
	for _, l := range schedule.ReportLinks {
		for _, t := range l.Teams {
			if n := teams.Normalize(t); n == home || n == away {
				return l.URL
			}
		}
	}
	return ""
}

// Focus returns the weekly focus of round, or the current one when round is 0.
// A missing current focus is nil, not an error.
func (w *WinnerResolver) Focus(ctx context.Context, round int) (*domain.WeeklyFocus, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if round < 0 {
		return nil, fmt.Errorf("jornada must not be negative: %w", domain.ErrInvalidArgument)
	}
	if round == 0 {
		focus, err := w.focus.GetCurrentFocus(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read current weekly focus: %w", err)
		}
		return focus, nil
	}
	focus, err := w.focus.GetFocus(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("failed to read weekly focus: %w", err)
	}
	return focus, nil
}

type FocusSetup struct {
	Round        int
	MatchID      string
	WinningMatch *domain.VotingMatch
	TotalVotes   int
	Officials    *domain.OfficialsInfo
}

// Setup writes a weekly focus from operator supplied data. The winning match
// is taken from the request or, by id, from the round's publication.
func (w *WinnerResolver) Setup(ctx context.Context, in FocusSetup) (*domain.WeeklyFocus, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if in.Round < 1 {
		return nil, fmt.Errorf("jornada must be positive: %w", domain.ErrInvalidArgument)
	}

	competitionName := w.competitionName
	match := in.WinningMatch
	if match == nil {
		if in.MatchID == "" {
			return nil, fmt.Errorf("winning match or match id required: %w", domain.ErrInvalidArgument)
		}
		pub, err := w.rounds.GetPublication(ctx, in.Round)
		if err != nil {
			return nil, fmt.Errorf("failed to load jornada %d publication: %w", in.Round, err)
		}
		if match = pub.Match(in.MatchID); match == nil {
			return nil, fmt.Errorf("match %s in jornada %d: %w", in.MatchID, in.Round, domain.ErrUnknownMatch)
		}
		competitionName = pub.CompetitionName
	}

	votes := in.TotalVotes
	if votes <= 0 {
		tallies, err := w.tallies.ListTallies(ctx, in.Round)
		if err != nil {
			return nil, fmt.Errorf("failed to list tallies: %w", err)
		}
		for _, t := range tallies {
			if t.MatchID == match.MatchID {
				votes = t.Count
			}
		}
	}

	now := w.clock.Now()
	focus := domain.WeeklyFocus{
		Round:              in.Round,
		CompetitionName:    competitionName,
		WinningMatch:       *match,
		TotalVotes:         votes,
		Officials:          in.Officials,
		VotingClosedAt:     now,
		SuggestionsOpen:    true,
		SuggestionsCloseAt: domain.SuggestionsDeadline(now, w.loc),
		Status:             domain.FocusMinutatge,
	}
	if in.Officials != nil {
		focus.Status = domain.FocusCompletat
	}
	if err := w.focus.SaveFocus(ctx, focus); err != nil {
		return nil, fmt.Errorf("failed to save weekly focus: %w", err)
	}

	w.logger.Info().
		Int("jornada", in.Round).
		Str("match_id", match.MatchID).
		Str("status", string(focus.Status)).
		Msg("weekly focus set up manually")
	return &focus, nil
}
