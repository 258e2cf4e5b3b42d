package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

type RoundRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRoundRepository(db *sql.DB, logger zerolog.Logger) *RoundRepository {
	return &RoundRepository{db: db, logger: logger}
}

func (r *RoundRepository) GetActiveRound(ctx context.Context) (*domain.ActiveRound, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT round, weekend_start, weekend_end, published_at, match_count,
		       rest_week, rest_week_message, next_voting_date
		FROM active_round WHERE id = 1`)

	var (
		active                domain.ActiveRound
		start, end, published string
		nextVoting            sql.NullString
	)
	err := row.Scan(&active.Round, &start, &end, &published, &active.MatchCount,
		&active.RestWeek, &active.RestWeekMessage, &nextVoting)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active jornada: %w", err)
	}

	if active.WeekendStart, err = parseTime(start); err != nil {
		return nil, err
	}
	if active.WeekendEnd, err = parseTime(end); err != nil {
		return nil, err
	}
	if active.PublishedAt, err = parseTime(published); err != nil {
		return nil, err
	}
	if active.NextVotingDate, err = parseNullTime(nextVoting); err != nil {
		return nil, err
	}
	return &active, nil
}

func (r *RoundRepository) GetPublication(ctx context.Context, round int) (*domain.RoundPublication, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT round, competition_id, competition_name, matches, standings,
		       weekend_start, weekend_end, published_at, updated_at, source,
		       mapping_total, mapping_found, mapping_not_found
		FROM round_publications WHERE round = ?`, round)

	var (
		pub                            domain.RoundPublication
		matches, standings             string
		start, end, published, updated string
	)
	err := row.Scan(&pub.Round, &pub.CompetitionID, &pub.CompetitionName, &matches, &standings,
		&start, &end, &published, &updated, &pub.Source,
		&pub.Mapping.Total, &pub.Mapping.Found, &pub.Mapping.NotFound)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("jornada %d publication: %w", round, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jornada %d publication: %w", round, err)
	}

	if err := json.Unmarshal([]byte(matches), &pub.Matches); err != nil {
		return nil, fmt.Errorf("failed to decode jornada %d matches: %w", round, err)
	}
	if err := json.Unmarshal([]byte(standings), &pub.Standings); err != nil {
		return nil, fmt.Errorf("failed to decode jornada %d standings: %w", round, err)
	}
	if pub.WeekendStart, err = parseTime(start); err != nil {
		return nil, err
	}
	if pub.WeekendEnd, err = parseTime(end); err != nil {
		return nil, err
	}
	if pub.PublishedAt, err = parseTime(published); err != nil {
		return nil, err
	}
	if pub.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &pub, nil
}

func (r *RoundRepository) GetVotingPeriod(ctx context.Context, round int) (*domain.VotingPeriod, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT round, voting_open, opened_at, closed_at, closed_reason
		FROM voting_periods WHERE round = ?`, round)

	var (
		period         domain.VotingPeriod
		opened, closed sql.NullString
		reason         sql.NullString
	)
	err := row.Scan(&period.Round, &period.Open, &opened, &closed, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("jornada %d voting period: %w", round, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jornada %d voting period: %w", round, err)
	}

	if period.OpenedAt, err = parseNullTime(opened); err != nil {
		return nil, err
	}
	if period.ClosedAt, err = parseNullTime(closed); err != nil {
		return nil, err
	}
	period.CloseReason = reason.String
	return &period, nil
}

// Rollover closes the period the pointer refers to, opens the new one, stores
// the publication and moves the pointer in a single transaction. BeginTx takes
// the write lock up front, so the pointer read here cannot go stale before the
// commit. A period that was ever closed stays closed.
func (r *RoundRepository) Rollover(ctx context.Context, ro domain.Rollover) (domain.Rollover, error) {
	matches, err := marshalJSON(ro.Publication.Matches)
	if err != nil {
		return ro, err
	}
	standings, err := marshalJSON(nonNil(ro.Publication.Standings))
	if err != nil {
		return ro, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ro, fmt.Errorf("failed to begin rollover transaction: %w", err)
	}
	defer tx.Rollback()

	pub := &ro.Publication
	closed, err := periodClosed(ctx, tx, pub.Round)
	if err != nil {
		return ro, err
	}
	if closed {
		return ro, fmt.Errorf("jornada %d: %w", pub.Round, domain.ErrVotingClosed)
	}

	current, publishedAt, err := pointerRound(ctx, tx)
	if err != nil {
		return ro, err
	}
	ro.Previous = 0
	switch {
	case current == pub.Round:
		pub.PublishedAt = publishedAt
		ro.Pointer.PublishedAt = publishedAt
	case current > 0:
		ro.Previous = current
		if err := closePeriod(ctx, tx, current, ro.CloseReason, ro.At); err != nil {
			return ro, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO voting_periods (round, voting_open, opened_at)
		VALUES (?, 1, ?)
		ON CONFLICT(round) DO UPDATE SET
			voting_open = 1,
			opened_at = COALESCE(voting_periods.opened_at, excluded.opened_at)`,
		pub.Round, formatTime(ro.At)); err != nil {
		return ro, fmt.Errorf("failed to open jornada %d: %w", pub.Round, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO round_publications (
			round, competition_id, competition_name, matches, standings,
			weekend_start, weekend_end, published_at, updated_at, source,
			mapping_total, mapping_found, mapping_not_found
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(round) DO UPDATE SET
			competition_id = excluded.competition_id,
			competition_name = excluded.competition_name,
			matches = excluded.matches,
			standings = excluded.standings,
			weekend_start = excluded.weekend_start,
			weekend_end = excluded.weekend_end,
			published_at = excluded.published_at,
			updated_at = excluded.updated_at,
			source = excluded.source,
			mapping_total = excluded.mapping_total,
			mapping_found = excluded.mapping_found,
			mapping_not_found = excluded.mapping_not_found`,
		pub.Round, pub.CompetitionID, pub.CompetitionName, matches, standings,
		formatTime(pub.WeekendStart), formatTime(pub.WeekendEnd),
		formatTime(pub.PublishedAt), formatTime(pub.UpdatedAt), pub.Source,
		pub.Mapping.Total, pub.Mapping.Found, pub.Mapping.NotFound); err != nil {
		return ro, fmt.Errorf("failed to store jornada %d publication: %w", pub.Round, err)
	}

	ptr := ro.Pointer
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO active_round (
			id, round, weekend_start, weekend_end, published_at, match_count,
			rest_week, rest_week_message, next_voting_date
		) VALUES (1, ?, ?, ?, ?, ?, 0, '', NULL)
		ON CONFLICT(id) DO UPDATE SET
			round = excluded.round,
			weekend_start = excluded.weekend_start,
			weekend_end = excluded.weekend_end,
			published_at = excluded.published_at,
			match_count = excluded.match_count,
			rest_week = 0,
			rest_week_message = '',
			next_voting_date = NULL`,
		ptr.Round, formatTime(ptr.WeekendStart), formatTime(ptr.WeekendEnd),
		formatTime(ptr.PublishedAt), ptr.MatchCount); err != nil {
		return ro, fmt.Errorf("failed to move active jornada pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ro, fmt.Errorf("failed to commit rollover: %w", err)
	}

	r.logger.Debug().
		Int("jornada", pub.Round).
		Int("previous", ro.Previous).
		Int("matches", len(pub.Matches)).
		Msg("rollover committed")
	return ro, nil
}

// MarkRestWeek closes the period the pointer refers to and flags the pointer
// without moving it to another round.
func (r *RoundRepository) MarkRestWeek(ctx context.Context, rw domain.RestWeek) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin rest week transaction: %w", err)
	}
	defer tx.Rollback()

	current, _, err := pointerRound(ctx, tx)
	if err != nil {
		return 0, err
	}
	if current == 0 {
		return 0, fmt.Errorf("rest week without active jornada: %w", domain.ErrNotFound)
	}
	if err := closePeriod(ctx, tx, current, rw.CloseReason, rw.At); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE active_round
		SET rest_week = 1, rest_week_message = ?, next_voting_date = ?
		WHERE id = 1`,
		rw.Message, formatTime(rw.NextVotingDate)); err != nil {
		return 0, fmt.Errorf("failed to mark rest week: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rest week: %w", err)
	}
	return current, nil
}

// pointerRound returns 0 when no round was ever published.
func pointerRound(ctx context.Context, tx *sql.Tx) (int, time.Time, error) {
	var (
		round     int
		published string
	)
	err := tx.QueryRowContext(ctx, `SELECT round, published_at FROM active_round WHERE id = 1`).Scan(&round, &published)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to read active jornada: %w", err)
	}
	t, err := parseTime(published)
	if err != nil {
		return 0, time.Time{}, err
	}
	return round, t, nil
}

func periodClosed(ctx context.Context, tx *sql.Tx, round int) (bool, error) {
	var closedAt sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT closed_at FROM voting_periods WHERE round = ?`, round).Scan(&closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read jornada %d voting period: %w", round, err)
	}
	return closedAt.Valid, nil
}

func closePeriod(ctx context.Context, tx *sql.Tx, round int, reason string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO voting_periods (round, voting_open, closed_at, closed_reason)
		VALUES (?, 0, ?, ?)
		ON CONFLICT(round) DO UPDATE SET
			voting_open = 0,
			closed_at = COALESCE(voting_periods.closed_at, excluded.closed_at),
			closed_reason = COALESCE(voting_periods.closed_reason, excluded.closed_reason)`,
		round, formatTime(at), nullString(reason))
	if err != nil {
		return fmt.Errorf("failed to close jornada %d: %w", round, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
