package scheduler

import (
	"context"
	"fmt"

	"github.com/Annabf7/el-visionat/internal/config"
	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the weekly sync and the suggestion-window closer on cron
// expressions evaluated in the competition's time zone.
type Scheduler struct {
	cron   *cron.Cron
	sync   *service.SyncService
	closer *service.SuggestionCloser
	logger zerolog.Logger
}

func NewScheduler(sync *service.SyncService, closer *service.SuggestionCloser, cfg *config.Config, logger zerolog.Logger) (*Scheduler, error) {
	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sync:   sync,
		closer: closer,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(cfg.SyncSchedule, s.runSync); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", cfg.SyncSchedule, err)
	}
	if _, err := s.cron.AddFunc(cfg.CloseSuggestionsSchedule, s.runCloseSuggestions); err != nil {
		return nil, fmt.Errorf("invalid close suggestions schedule %q: %w", cfg.CloseSuggestionsSchedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info().Int("entry", int(e.ID)).Time("next", e.Next).Msg("job scheduled")
	}
}

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.SyncTimeout)
	defer cancel()

	s.logger.Info().Msg("scheduled sync started")
	result, err := s.sync.ResolveAndPublish(ctx, domain.TriggerSchedule, "")
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled sync failed")
		return
	}
	s.logger.Info().
		Bool("published", result.Published).
		Int("jornada", result.Round).
		Str("reason", result.Reason).
		Msg("scheduled sync completed")
}

func (s *Scheduler) runCloseSuggestions() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.SuggestionsTimeout)
	defer cancel()

	if _, _, err := s.closer.Close(ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduled suggestions close failed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
