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

type VoteRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewVoteRepository(db *sql.DB, logger zerolog.Logger) *VoteRepository {
	return &VoteRepository{db: db, logger: logger}
}

// PutVote creates or replaces the user's vote and moves the tallies in the
// same transaction. It fails with domain.ErrVotingClosed unless the round's
// period is open when the write lock is taken.
func (r *VoteRepository) PutVote(ctx context.Context, vote domain.Vote) (domain.VoteChange, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.VoteChange{}, fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireOpen(ctx, tx, vote.Round); err != nil {
		return domain.VoteChange{}, err
	}

	var change domain.VoteChange
	var previous string
	err = tx.QueryRowContext(ctx,
		`SELECT match_id FROM votes WHERE round = ? AND user_id = ?`,
		vote.Round, vote.UserID).Scan(&previous)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.VoteChange{}, fmt.Errorf("failed to read previous vote: %w", err)
	default:
		change.Before = &domain.VoteKey{Round: vote.Round, MatchID: previous}
	}
	change.After = &domain.VoteKey{Round: vote.Round, MatchID: vote.MatchID}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO votes (round, user_id, match_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(round, user_id) DO UPDATE SET
			match_id = excluded.match_id,
			updated_at = excluded.updated_at`,
		vote.Round, vote.UserID, vote.MatchID,
		formatTime(vote.CreatedAt), formatTime(vote.UpdatedAt)); err != nil {
		return domain.VoteChange{}, fmt.Errorf("failed to store vote: %w", err)
	}
	if err := applyVoteChange(ctx, tx, change, vote.UpdatedAt); err != nil {
		return domain.VoteChange{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.VoteChange{}, fmt.Errorf("failed to commit vote: %w", err)
	}
	return change, nil
}

// DeleteVote removes the user's vote and decrements its tally in the same
// transaction. A missing vote is a no-op change.
func (r *VoteRepository) DeleteVote(ctx context.Context, round int, userID string) (domain.VoteChange, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.VoteChange{}, fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireOpen(ctx, tx, round); err != nil {
		return domain.VoteChange{}, err
	}

	var previous string
	err = tx.QueryRowContext(ctx,
		`SELECT match_id FROM votes WHERE round = ? AND user_id = ?`,
		round, userID).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.VoteChange{}, nil
	}
	if err != nil {
		return domain.VoteChange{}, fmt.Errorf("failed to read vote: %w", err)
	}
	change := domain.VoteChange{Before: &domain.VoteKey{Round: round, MatchID: previous}}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM votes WHERE round = ? AND user_id = ?`, round, userID); err != nil {
		return domain.VoteChange{}, fmt.Errorf("failed to delete vote: %w", err)
	}
	if err := applyVoteChange(ctx, tx, change, time.Now()); err != nil {
		return domain.VoteChange{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.VoteChange{}, fmt.Errorf("failed to commit vote deletion: %w", err)
	}
	return change, nil
}

func requireOpen(ctx context.Context, tx *sql.Tx, round int) error {
	var open bool
	err := tx.QueryRowContext(ctx,
		`SELECT voting_open FROM voting_periods WHERE round = ?`, round).Scan(&open)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("jornada %d was never opened: %w", round, domain.ErrVotingClosed)
	}
	if err != nil {
		return fmt.Errorf("failed to read voting period: %w", err)
	}
	if !open {
		return fmt.Errorf("jornada %d: %w", round, domain.ErrVotingClosed)
	}
	return nil
}

func (r *VoteRepository) GetVote(ctx context.Context, round int, userID string) (*domain.Vote, error) {
	var (
		vote             domain.Vote
		created, updated string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT round, user_id, match_id, created_at, updated_at
		FROM votes WHERE round = ? AND user_id = ?`, round, userID).
		Scan(&vote.Round, &vote.UserID, &vote.MatchID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vote of %s in jornada %d: %w", userID, round, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	if vote.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if vote.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *VoteRepository) CountVotes(ctx context.Context, round int, matchID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE round = ? AND match_id = ?`,
		round, matchID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}
