package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

type SyncRunRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSyncRunRepository(db *sql.DB, logger zerolog.Logger) *SyncRunRepository {
	return &SyncRunRepository{db: db, logger: logger}
}

func (r *SyncRunRepository) RecordSyncRun(ctx context.Context, run domain.SyncRun) error {
	var round sql.NullInt64
	if run.Round > 0 {
		round = sql.NullInt64{Int64: int64(run.Round), Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, trigger_source, started_at, finished_at, target_date, published,
			round, match_count, reason, error, weekend_start, weekend_end
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Trigger), formatTime(run.StartedAt), formatTime(run.FinishedAt),
		nullTime(run.TargetDate), run.Published, round, run.MatchCount, run.Reason, run.Error,
		formatTime(run.WeekendStart), formatTime(run.WeekendEnd)); err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

func (r *SyncRunRepository) ListSyncRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trigger_source, started_at, finished_at, target_date, published,
		       round, match_count, reason, error, weekend_start, weekend_end
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var (
			run                                      domain.SyncRun
			trigger, started, finished, wStart, wEnd string
			target                                   sql.NullString
			round                                    sql.NullInt64
		)
		if err := rows.Scan(&run.ID, &trigger, &started, &finished, &target, &run.Published,
			&round, &run.MatchCount, &run.Reason, &run.Error, &wStart, &wEnd); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.Trigger = domain.SyncTrigger(trigger)
		run.Round = int(round.Int64)
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		if run.WeekendStart, err = parseTime(wStart); err != nil {
			return nil, err
		}
		if run.WeekendEnd, err = parseTime(wEnd); err != nil {
			return nil, err
		}
		if run.TargetDate, err = parseNullTime(target); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
