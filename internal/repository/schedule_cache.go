package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

type ScheduleCacheRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewScheduleCacheRepository(db *sql.DB, logger zerolog.Logger) *ScheduleCacheRepository {
	return &ScheduleCacheRepository{db: db, logger: logger}
}

func (r *ScheduleCacheRepository) GetCachedRound(ctx context.Context, competitionID string, round int) (*domain.CachedRound, error) {
	var (
		entry                       domain.CachedRound
		payload, fetched, expiresAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT competition_name, payload, fetched_at, expires_at
		FROM schedule_cache WHERE competition_id = ? AND round = ?`,
		competitionID, round).Scan(&entry.CompetitionName, &payload, &fetched, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached jornada %d: %w", round, err)
	}

	if err := json.Unmarshal([]byte(payload), &entry.Schedule); err != nil {
		r.logger.Warn().Err(err).Int("jornada", round).Msg("dropping undecodable cache entry")
		return nil, nil
	}
	if entry.FetchedAt, err = parseTime(fetched); err != nil {
		return nil, err
	}
	if entry.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ScheduleCacheRepository) PutCachedRound(ctx context.Context, entry domain.CachedRound) error {
	payload, err := marshalJSON(entry.Schedule)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_cache (competition_id, round, competition_name, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(competition_id, round) DO UPDATE SET
			competition_name = excluded.competition_name,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		entry.Schedule.CompetitionID, entry.Schedule.Round, entry.CompetitionName, payload,
		formatTime(entry.FetchedAt), formatTime(entry.ExpiresAt)); err != nil {
		return fmt.Errorf("failed to cache jornada %d: %w", entry.Schedule.Round, err)
	}
	return nil
}
