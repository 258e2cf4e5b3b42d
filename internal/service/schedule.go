package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Annabf7/el-visionat/internal/config"
	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

type RoundView struct {
	Schedule        domain.RoundSchedule `json:"schedule"`
	CompetitionName string               `json:"competitionName"`
	FetchedAt       time.Time            `json:"fetchedAt"`
	FromCache       bool                 `json:"fromCache"`
	Stale           bool                 `json:"stale"`
}

// ScheduleService serves round pages on demand through a TTL cache kept in
// the store. A stale copy is served when the federation cannot be reached.
type ScheduleService struct {
	source          ScheduleSource
	cache           ScheduleCache
	clock           Clock
	ttl             time.Duration
	maxRound        int
	competitionID   string
	competitionName string
	logger          zerolog.Logger
}

func NewScheduleService(source ScheduleSource, cache ScheduleCache, clock Clock, cfg *config.Config, logger zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		source:          source,
		cache:           cache,
		clock:           clock,
		ttl:             cfg.CacheTTL,
		maxRound:        cfg.MaxRound,
		competitionID:   cfg.CompetitionID,
		competitionName: cfg.CompetitionName,
		logger:          logger,
	}
}

func (s *ScheduleService) GetRound(ctx context.Context, competitionID string, round int, forceRefresh bool) (*RoundView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if round < 1 || round > s.maxRound {
		return nil, fmt.Errorf("jornada %d outside 1..%d: %w", round, s.maxRound, domain.ErrInvalidArgument)
	}
	if competitionID == "" {
		competitionID = s.competitionID
	}

	now := s.clock.Now()
	cached, err := s.cache.GetCachedRound(ctx, competitionID, round)
	if err != nil {
		s.logger.Warn().Err(err).Int("jornada", round).Msg("failed to read schedule cache")
		cached = nil
	}

	if cached != nil && !forceRefresh && now.Before(cached.ExpiresAt) {
		s.logger.Debug().Int("jornada", round).Msg("returning cached jornada")
		return &RoundView{
			Schedule:        cached.Schedule,
			CompetitionName: cached.CompetitionName,
			FetchedAt:       cached.FetchedAt,
			FromCache:       true,
		}, nil
	}

	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	schedule, err := s.source.FetchRound(apiCtx, competitionID, round)
	if err != nil {
		if cached != nil {
			s.logger.Warn().Err(err).Int("jornada", round).Time("fetched_at", cached.FetchedAt).Msg("upstream failed, serving stale jornada")
			return &RoundView{
				Schedule:        cached.Schedule,
				CompetitionName: cached.CompetitionName,
				FetchedAt:       cached.FetchedAt,
				FromCache:       true,
				Stale:           true,
			}, nil
		}
		if errors.Is(err, domain.ErrInvalidArgument) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch jornada %d: %w: %w", round, domain.ErrUnavailable, err)
	}

	entry := domain.CachedRound{
		Schedule:        *schedule,
		CompetitionName: s.competitionName,
		FetchedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}
	entry.Schedule.CompetitionID = competitionID
	if err := s.cache.PutCachedRound(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Int("jornada", round).Msg("failed to cache jornada")
	}

	s.logger.Info().Int("jornada", round).Int("fixtures", len(schedule.Fixtures)).Msg("jornada fetched")
	return &RoundView{
		Schedule:        entry.Schedule,
		CompetitionName: entry.CompetitionName,
		FetchedAt:       now,
	}, nil
}
