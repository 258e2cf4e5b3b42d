package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

type TallyRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewTallyRepository(db *sql.DB, logger zerolog.Logger) *TallyRepository {
	return &TallyRepository{db: db, logger: logger}
}

// applyVoteChange moves one vote from the before tally to the after tally
// inside the caller's transaction. Both tallies are read before anything is
// written.
func applyVoteChange(ctx context.Context, tx *sql.Tx, change domain.VoteChange, at time.Time) error {
	if change.Noop() {
		return nil
	}

	var (
		beforeCount, afterCount   int
		beforeExists, afterExists bool
		err                       error
	)
	if change.Before != nil {
		if beforeCount, beforeExists, err = readTally(ctx, tx, *change.Before); err != nil {
			return err
		}
	}
	if change.After != nil {
		if afterCount, afterExists, err = readTally(ctx, tx, *change.After); err != nil {
			return err
		}
	}

	now := formatTime(at)
	if beforeExists {
		if _, err := tx.ExecContext(ctx,
			`UPDATE vote_counts SET count = ?, updated_at = ? WHERE round = ? AND match_id = ?`,
			max(beforeCount-1, 0), now, change.Before.Round, change.Before.MatchID); err != nil {
			return fmt.Errorf("failed to decrement tally: %w", err)
		}
	}
	if change.After != nil {
		if afterExists {
			_, err = tx.ExecContext(ctx,
				`UPDATE vote_counts SET count = ?, updated_at = ? WHERE round = ? AND match_id = ?`,
				afterCount+1, now, change.After.Round, change.After.MatchID)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO vote_counts (round, match_id, count, updated_at) VALUES (?, ?, 1, ?)`,
				change.After.Round, change.After.MatchID, now)
		}
		if err != nil {
			return fmt.Errorf("failed to increment tally: %w", err)
		}
	}
	return nil
}

// RecountTallies sets each tally to the number of votes currently pointing at
// its match. Each statement counts and writes in one step.
func (r *TallyRepository) RecountTallies(ctx context.Context, keys []domain.VoteKey) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin recount transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO vote_counts (round, match_id, count, updated_at)
			VALUES (?, ?, (SELECT COUNT(*) FROM votes WHERE round = ? AND match_id = ?), ?)
			ON CONFLICT(round, match_id) DO UPDATE SET
				count = excluded.count,
				updated_at = excluded.updated_at`,
			key.Round, key.MatchID, key.Round, key.MatchID, now); err != nil {
			return fmt.Errorf("failed to recount tally %d/%s: %w", key.Round, key.MatchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recount: %w", err)
	}
	return nil
}

func readTally(ctx context.Context, tx *sql.Tx, key domain.VoteKey) (int, bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT count FROM vote_counts WHERE round = ? AND match_id = ?`,
		key.Round, key.MatchID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read tally %d/%s: %w", key.Round, key.MatchID, err)
	}
	return count, true, nil
}

func (r *TallyRepository) TopTally(ctx context.Context, round int) (*domain.Tally, error) {
	var t domain.Tally
	err := r.db.QueryRowContext(ctx, `
		SELECT round, match_id, count FROM vote_counts
		WHERE round = ?
		ORDER BY count DESC, match_id ASC
		LIMIT 1`, round).Scan(&t.Round, &t.MatchID, &t.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get top tally: %w", err)
	}
	return &t, nil
}

func (r *TallyRepository) ListTallies(ctx context.Context, round int) ([]domain.Tally, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT round, match_id, count FROM vote_counts
		WHERE round = ?
		ORDER BY count DESC, match_id ASC`, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list tallies: %w", err)
	}
	defer rows.Close()

	var tallies []domain.Tally
	for rows.Next() {
		var t domain.Tally
		if err := rows.Scan(&t.Round, &t.MatchID, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tally: %w", err)
		}
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}
