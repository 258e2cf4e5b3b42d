package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Annabf7/el-visionat/internal/api"
	"github.com/Annabf7/el-visionat/internal/config"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

type PageFetcher interface {
	BaseURL() string
	GetRoundPage(ctx context.Context, competitionID string, round int) ([]byte, error)
	GetPage(ctx context.Context, url string) ([]byte, error)
}

// Source serves round schedules and game reports scraped from the federation site.
type Source struct {
	pages    PageFetcher
	loc      *time.Location
	maxRound int
	logger   zerolog.Logger
}

func NewSource(client *api.FCBQClient, cfg *config.Config, logger zerolog.Logger) *Source {
	return NewSourceWithFetcher(client, cfg.Location, cfg.MaxRound, logger)
}

func NewSourceWithFetcher(pages PageFetcher, loc *time.Location, maxRound int, logger zerolog.Logger) *Source {
	return &Source{pages: pages, loc: loc, maxRound: maxRound, logger: logger}
}

func (s *Source) FetchRound(ctx context.Context, competitionID string, round int) (*domain.RoundSchedule, error) {
	if round < 1 || round > s.maxRound {
		return nil, fmt.Errorf("jornada %d outside 1..%d: %w", round, s.maxRound, domain.ErrInvalidArgument)
	}

	body, err := s.pages.GetRoundPage(ctx, competitionID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jornada %d: %w: %w", round, domain.ErrUnavailable, err)
	}

	schedule, err := ParseRound(bytes.NewReader(body), round, s.pages.BaseURL(), s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jornada %d: %w: %w", round, domain.ErrUnavailable, err)
	}
	schedule.CompetitionID = competitionID
	schedule.FetchedAt = time.Now()

	s.logger.Debug().
		Int("jornada", round).
		Int("fixtures", len(schedule.Fixtures)).
		Int("standings", len(schedule.Standings)).
		Int("report_links", len(schedule.ReportLinks)).
		Msg("jornada scraped")
	return schedule, nil
}

func (s *Source) FetchReport(ctx context.Context, url string) (*domain.OfficialsInfo, error) {
	body, err := s.pages.GetPage(ctx, url)
	if errors.Is(err, api.ErrPageNotFound) {
		return nil, fmt.Errorf("report %s: %w", url, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report %s: %w: %w", url, domain.ErrUnavailable, err)
	}

	info, err := ParseReport(bytes.NewReader(body), url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w: %w", url, domain.ErrUnavailable, err)
	}
	if info.Empty() {
		return nil, fmt.Errorf("report %s has no officials: %w", url, domain.ErrNotFound)
	}

	s.logger.Debug().
		Str("url", url).
		Str("principal", info.Principal).
		Str("auxiliar", info.Auxiliary).
		Str("venue", info.Venue).
		Msg("report scraped")
	return info, nil
}
