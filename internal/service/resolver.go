package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/Annabf7/el-visionat/internal/config"
	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/teams"
	"github.com/rs/zerolog"
)

// Resolution is the round chosen as authoritative for a weekend.
type Resolution struct {
	Round          int
	CompetitionID  string
	Weekend        domain.Weekend
	Fixtures       []domain.Fixture
	Standings      []domain.Standing
	ReportLinks    []domain.ReportLink
	EffectiveCount int
	Reason         string
}

type candidate struct {
	round      int
	schedule   *domain.RoundSchedule
	fixtures   []domain.Fixture
	signatures []string
}

type scanState struct {
	tried      map[int]bool
	candidates []candidate
	attempts   int
	failures   int
	lastCall   time.Time
}

// JornadaResolver picks the round whose fixtures belong to a given weekend
// out of a source that republishes games under several round numbers.
type JornadaResolver struct {
	source    ScheduleSource
	loc       *time.Location
	season    domain.SeasonStart
	maxRound  int
	scanDelay time.Duration
	logger    zerolog.Logger
}

func NewJornadaResolver(source ScheduleSource, cfg *config.Config, logger zerolog.Logger) *JornadaResolver {
	return &JornadaResolver{
		source:    source,
		loc:       cfg.Location,
		season:    cfg.SeasonStart,
		maxRound:  cfg.MaxRound,
		scanDelay: cfg.ScanDelay,
		logger:    logger,
	}
}

// Resolve returns the authoritative round for window, or nil when no round
// has fixtures inside it. It fails with domain.ErrUnavailable only when every
// fetch of the scan failed.
func (r *JornadaResolver) Resolve(ctx context.Context, window domain.Weekend, competitionID string, reference time.Time) (*Resolution, error) {
	estimate := domain.EstimateRound(reference, r.loc, r.season, r.maxRound)
	r.logger.Info().
		Int("estimate", estimate).
		Time("weekend_start", window.Start).
		Time("weekend_end", window.End).
		Msg("resolving jornada")

	st := &scanState{tried: make(map[int]bool)}
	if err := r.scan(ctx, r.candidateRounds(estimate), competitionID, window, st); err != nil {
		return nil, err
	}

	if len(st.candidates) == 0 {
		r.logger.Info().Int("tried", len(st.tried)).Msg("bounded scan found no weekend fixtures, scanning all jornades")
		if err := r.scan(ctx, r.remainingRounds(st.tried), competitionID, window, st); err != nil {
			return nil, err
		}
	}

	if len(st.candidates) == 0 {
		if st.attempts > 0 && st.failures == st.attempts {
			return nil, fmt.Errorf("all %d jornada fetches failed: %w", st.attempts, domain.ErrUnavailable)
		}
		r.logger.Info().Int("tried", st.attempts).Int("failed", st.failures).Msg("no games this weekend")
		return nil, nil
	}

	res := selectRound(st.candidates)
	res.CompetitionID = competitionID
	res.Weekend = window

	r.logger.Info().
		Int("jornada", res.Round).
		Int("fixtures", len(res.Fixtures)).
		Int("effective_count", res.EffectiveCount).
		Int("candidates", len(st.candidates)).
		Str("reason", res.Reason).
		Msg("jornada resolved")
	return res, nil
}

// candidateRounds yields the estimate, the rounds after it and then the rounds
// before it, all inside 1..maxRound.
func (r *JornadaResolver) candidateRounds(estimate int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for round := estimate; round <= estimate+constants.ProbeRoundsAhead && round <= r.maxRound; round++ {
			if !yield(round) {
				return
			}
		}
		for round := estimate - 1; round >= estimate-constants.ProbeRoundsBack && round >= 1; round-- {
			if !yield(round) {
				return
			}
		}
	}
}

func (r *JornadaResolver) remainingRounds(tried map[int]bool) iter.Seq[int] {
	return func(yield func(int) bool) {
		for round := 1; round <= r.maxRound; round++ {
			if tried[round] {
				continue
			}
			if !yield(round) {
				return
			}
		}
	}
}

func (r *JornadaResolver) scan(ctx context.Context, rounds iter.Seq[int], competitionID string, window domain.Weekend, st *scanState) error {
	for round := range rounds {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("jornada scan interrupted: %w", err)
		}
		if err := r.pause(ctx, st); err != nil {
			return fmt.Errorf("jornada scan interrupted: %w", err)
		}

		st.tried[round] = true
		st.attempts++
		st.lastCall = time.Now()

		schedule, err := r.source.FetchRound(ctx, competitionID, round)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("jornada scan interrupted: %w", err)
			}
			st.failures++
			r.logger.Warn().Err(err).Int("jornada", round).Msg("skipping jornada, fetch failed")
			continue
		}

		c := candidate{round: round, schedule: schedule}
		seen := make(map[string]bool)
		for _, f := range schedule.Fixtures {
			if f.KickoffAt.IsZero() || !window.Contains(f.KickoffAt) {
				continue
			}
			c.fixtures = append(c.fixtures, f)
			sig := teams.Signature(f.Home.Name, f.Away.Name, f.KickoffAt)
			if !seen[sig] {
				seen[sig] = true
				c.signatures = append(c.signatures, sig)
			}
		}

		r.logger.Debug().
			Int("jornada", round).
			Int("fixtures", len(schedule.Fixtures)).
			Int("in_window", len(c.fixtures)).
			Msg("jornada scanned")
		if len(c.fixtures) > 0 {
			st.candidates = append(st.candidates, c)
		}
	}
	return nil
}

// pause keeps at least scanDelay between consecutive upstream calls.
func (r *JornadaResolver) pause(ctx context.Context, st *scanState) error {
	if r.scanDelay <= 0 || st.lastCall.IsZero() {
		return nil
	}
	wait := r.scanDelay - time.Since(st.lastCall)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// selectRound credits every signature to the highest round listing it, then
// ranks rounds by credited signatures and round number, both descending.
func selectRound(candidates []candidate) *Resolution {
	owner := make(map[string]int)
	shared := make(map[string]int)
	for _, c := range candidates {
		for _, sig := range c.signatures {
			shared[sig]++
			if c.round > owner[sig] {
				owner[sig] = c.round
			}
		}
	}

	type score struct {
		c         candidate
		effective int
		reclaimed int
	}
	scores := make([]score, 0, len(candidates))
	for _, c := range candidates {
		s := score{c: c}
		for _, sig := range c.signatures {
			if owner[sig] != c.round {
				continue
			}
			s.effective++
			if shared[sig] > 1 {
				s.reclaimed++
			}
		}
		scores = append(scores, s)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].effective != scores[j].effective {
			return scores[i].effective > scores[j].effective
		}
		return scores[i].c.round > scores[j].c.round
	})

	best := scores[0]
	var reason string
	switch {
	case len(candidates) == 1:
		reason = "single candidate with weekend fixtures"
	case best.reclaimed > 0:
		reason = fmt.Sprintf("duplicate-signature recovery: %d fixtures reclaimed from earlier rounds", best.reclaimed)
	default:
		reason = fmt.Sprintf("most unique weekend fixtures (%d)", best.effective)
	}

	return &Resolution{
		Round:          best.c.round,
		Fixtures:       best.c.fixtures,
		Standings:      best.c.schedule.Standings,
		ReportLinks:    best.c.schedule.ReportLinks,
		EffectiveCount: best.effective,
		Reason:         reason,
	}
}
