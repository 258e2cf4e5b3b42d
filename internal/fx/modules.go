package fx

import (
	"context"

	"github.com/Annabf7/el-visionat/internal/api"
	"github.com/Annabf7/el-visionat/internal/config"
	"github.com/Annabf7/el-visionat/internal/database"
	"github.com/Annabf7/el-visionat/internal/events"
	"github.com/Annabf7/el-visionat/internal/logger"
	"github.com/Annabf7/el-visionat/internal/repository"
	"github.com/Annabf7/el-visionat/internal/repository/firestore"
	"github.com/Annabf7/el-visionat/internal/scheduler"
	"github.com/Annabf7/el-visionat/internal/scraper"
	"github.com/Annabf7/el-visionat/internal/server"
	"github.com/Annabf7/el-visionat/internal/service"
	"github.com/Annabf7/el-visionat/internal/teams"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Stores exposes one backend under every store port.
type Stores struct {
	fx.Out

	Rounds   service.RoundStore
	Votes    service.VoteStore
	Tallies  service.TallyStore
	Focus    service.FocusStore
	Cache    service.ScheduleCache
	SyncRuns service.SyncRunStore
}

func ProvideStores(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (Stores, error) {
	if cfg.StoreDriver == config.StoreFirestore {
		store, err := firestore.NewStore(context.Background(), cfg.FirestoreProjectID, logger)
		if err != nil {
			return Stores{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return store.Close()
			},
		})
		return Stores{
			Rounds:   store,
			Votes:    store,
			Tallies:  store,
			Focus:    store,
			Cache:    store,
			SyncRuns: store,
		}, nil
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		return Stores{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})
	return Stores{
		Rounds:   repository.NewRoundRepository(db, logger),
		Votes:    repository.NewVoteRepository(db, logger),
		Tallies:  repository.NewTallyRepository(db, logger),
		Focus:    repository.NewFocusRepository(db, logger),
		Cache:    repository.NewScheduleCacheRepository(db, logger),
		SyncRuns: repository.NewSyncRunRepository(db, logger),
	}, nil
}

func ProvideDirectory(cfg *config.Config, logger zerolog.Logger) (*teams.Directory, error) {
	return teams.LoadDirectory(cfg.TeamsFile, logger)
}

func ProvidePublisher(bus *events.Bus) service.VotePublisher {
	return bus
}

// registerEvents feeds vote-written events to the tally trigger and drains
// background winner processing before the bus goes away.
func registerEvents(lc fx.Lifecycle, bus *events.Bus, trigger *service.TallyTrigger, manager *service.VotingPeriodManager, logger zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return bus.SubscribeVoteChanges(ctx, trigger.Handle)
		},
		OnStop: func(context.Context) error {
			if err := manager.Wait(); err != nil {
				logger.Warn().Err(err).Msg("background winner processing failed")
			}
			cancel()
			return bus.Close()
		},
	})
}

func registerScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
}

func applyLogLevel(cfg *config.Config) {
	logger.SetLevel(cfg.LogLevel)
}

// CoreModule is everything but the outer surfaces; the CLI runs on it alone.
var CoreModule = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Invoke(applyLogLevel),
	// stores
	fx.Provide(ProvideStores),
	// upstream
	fx.Provide(api.NewFCBQClient),
	fx.Provide(fx.Annotate(
		scraper.NewSource,
		fx.As(new(service.ScheduleSource), new(service.ReportSource)),
	)),
	fx.Provide(ProvideDirectory),
	// events
	fx.Provide(events.NewBus),
	fx.Provide(ProvidePublisher),
	// svc
	fx.Provide(service.NewClock),
	fx.Provide(service.NewJornadaResolver),
	fx.Provide(service.NewWinnerResolver),
	fx.Provide(service.NewVotingPeriodManager),
	fx.Provide(service.NewSyncService),
	fx.Provide(service.NewTallyTrigger),
	fx.Provide(service.NewVoteService),
	fx.Provide(service.NewScheduleService),
	fx.Provide(service.NewSuggestionCloser),
	fx.Invoke(registerEvents),
)

var Module = fx.Options(
	CoreModule,
	// server
	fx.Provide(server.NewVotingServer),
	// cron
	fx.Provide(scheduler.NewScheduler),
	fx.Invoke(registerScheduler),
)
