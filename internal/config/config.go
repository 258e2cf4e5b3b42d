package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	StoreSQLite    = "sqlite"
	StoreFirestore = "firestore"
)

type Config struct {
	DBPath             string
	ServerPort         string
	LogLevel           string
	StoreDriver        string
	FirestoreProjectID string

	FCBQBaseURL     string
	CompetitionID   string
	CompetitionName string
	Timezone        string
	Location        *time.Location
	SeasonStart     domain.SeasonStart
	MaxRound        int
	ScanDelay       time.Duration
	CacheTTL        time.Duration

	SyncSchedule             string
	CloseSuggestionsSchedule string
	TeamsFile                string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:                   getEnv("DB_PATH", "visionat.db"),
		ServerPort:               getEnv("SERVER_PORT", "8080"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		StoreDriver:              getEnv("STORE_DRIVER", StoreSQLite),
		FirestoreProjectID:       getEnv("FIRESTORE_PROJECT_ID", ""),
		FCBQBaseURL:              getEnv("FCBQ_BASE_URL", constants.FCBQBaseURL),
		CompetitionID:            getEnv("FCBQ_COMPETITION_ID", constants.CompetitionID),
		CompetitionName:          getEnv("COMPETITION_NAME", constants.CompetitionName),
		Timezone:                 getEnv("TIMEZONE", "Europe/Madrid"),
		SyncSchedule:             getEnv("SYNC_SCHEDULE", "0 8 * * 1"),
		CloseSuggestionsSchedule: getEnv("CLOSE_SUGGESTIONS_SCHEDULE", "0 15 * * 3"),
		TeamsFile:                getEnv("TEAMS_FILE", ""),
	}

	var err error
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.SeasonStart, err = domain.ParseSeasonStart(getEnv("SEASON_START", "10-01")); err != nil {
		return nil, fmt.Errorf("invalid SEASON_START: %w", err)
	}
	if cfg.MaxRound, err = getEnvInt("MAX_JORNADA", constants.MaxRound); err != nil {
		return nil, err
	}
	if cfg.MaxRound < 1 {
		return nil, fmt.Errorf("MAX_JORNADA must be positive, got %d", cfg.MaxRound)
	}
	if cfg.ScanDelay, err = getEnvDuration("SCAN_DELAY", constants.ScanDelay); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("SCHEDULE_CACHE_TTL", constants.ScheduleCacheTTL); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case StoreSQLite:
	case StoreFirestore:
		if cfg.FirestoreProjectID == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT_ID is required when STORE_DRIVER=firestore")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	logger.Info().
		Str("store_driver", cfg.StoreDriver).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("competition_id", cfg.CompetitionID).
		Str("timezone", cfg.Timezone).
		Int("max_jornada", cfg.MaxRound).
		Dur("scan_delay", cfg.ScanDelay).
		Dur("cache_ttl", cfg.CacheTTL).
		Str("sync_schedule", cfg.SyncSchedule).
		Str("close_suggestions_schedule", cfg.CloseSuggestionsSchedule).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

var Module = fx.Provide(Load)
