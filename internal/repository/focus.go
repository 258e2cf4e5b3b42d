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

const currentFocusID = "current"

func historyFocusID(round int) string {
	return fmt.Sprintf("jornada_%d", round)
}

type FocusRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewFocusRepository(db *sql.DB, logger zerolog.Logger) *FocusRepository {
	return &FocusRepository{db: db, logger: logger}
}

const focusColumns = `round, competition_name, winning_match, total_votes, officials,
	voting_closed_at, suggestions_open, suggestions_close_at, suggestions_closed_at, status`

func (r *FocusRepository) GetCurrentFocus(ctx context.Context) (*domain.WeeklyFocus, error) {
	focus, err := scanFocus(r.db.QueryRowContext(ctx,
		`SELECT `+focusColumns+` FROM weekly_focus WHERE doc_id = ?`, currentFocusID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current weekly focus: %w", err)
	}
	return focus, nil
}

func (r *FocusRepository) GetFocus(ctx context.Context, round int) (*domain.WeeklyFocus, error) {
	focus, err := scanFocus(r.db.QueryRowContext(ctx,
		`SELECT `+focusColumns+` FROM weekly_focus WHERE doc_id = ?`, historyFocusID(round)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("weekly focus of jornada %d: %w", round, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly focus of jornada %d: %w", round, err)
	}
	return focus, nil
}

func (r *FocusRepository) SaveFocus(ctx context.Context, focus domain.WeeklyFocus) error {
	match, err := marshalJSON(focus.WinningMatch)
	if err != nil {
		return err
	}
	var officials sql.NullString
	if focus.Officials != nil {
		if officials.String, err = marshalJSON(focus.Officials); err != nil {
			return err
		}
		officials.Valid = true
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin weekly focus transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range []string{currentFocusID, historyFocusID(focus.Round)} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO weekly_focus (doc_id, `+focusColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(doc_id) DO UPDATE SET
				round = excluded.round,
				competition_name = excluded.competition_name,
				winning_match = excluded.winning_match,
				total_votes = excluded.total_votes,
				officials = excluded.officials,
				voting_closed_at = excluded.voting_closed_at,
				suggestions_open = excluded.suggestions_open,
				suggestions_close_at = excluded.suggestions_close_at,
				suggestions_closed_at = excluded.suggestions_closed_at,
				status = excluded.status`,
			id, focus.Round, focus.CompetitionName, match, focus.TotalVotes, officials,
			formatTime(focus.VotingClosedAt), focus.SuggestionsOpen,
			formatTime(focus.SuggestionsCloseAt), nullTime(focus.SuggestionsClosedAt),
			string(focus.Status)); err != nil {
			return fmt.Errorf("failed to write weekly focus %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit weekly focus: %w", err)
	}
	return nil
}

func (r *FocusRepository) CloseSuggestions(ctx context.Context, at time.Time) (*domain.WeeklyFocus, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin suggestions transaction: %w", err)
	}
	defer tx.Rollback()

	focus, err := scanFocus(tx.QueryRowContext(ctx,
		`SELECT `+focusColumns+` FROM weekly_focus WHERE doc_id = ?`, currentFocusID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read current weekly focus: %w", err)
	}
	if !focus.SuggestionsOpen {
		return focus, false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE weekly_focus
		SET suggestions_open = 0, suggestions_closed_at = ?, status = ?
		WHERE doc_id IN (?, ?)`,
		formatTime(at), string(domain.FocusEntrevistaPendent),
		currentFocusID, historyFocusID(focus.Round)); err != nil {
		return nil, false, fmt.Errorf("failed to close suggestions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit suggestions close: %w", err)
	}

	closedAt := at
	focus.SuggestionsOpen = false
	focus.SuggestionsClosedAt = &closedAt
	focus.Status = domain.FocusEntrevistaPendent
	return focus, true, nil
}

func scanFocus(row scanner) (*domain.WeeklyFocus, error) {
	var (
		focus                 domain.WeeklyFocus
		match                 string
		officials             sql.NullString
		votingClosed, closeAt string
		suggestionsClosed     sql.NullString
		status                string
	)
	if err := row.Scan(&focus.Round, &focus.CompetitionName, &match, &focus.TotalVotes, &officials,
		&votingClosed, &focus.SuggestionsOpen, &closeAt, &suggestionsClosed, &status); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(match), &focus.WinningMatch); err != nil {
		return nil, fmt.Errorf("failed to decode winning match: %w", err)
	}
	if officials.Valid {
		focus.Officials = &domain.OfficialsInfo{}
		if err := json.Unmarshal([]byte(officials.String), focus.Officials); err != nil {
			return nil, fmt.Errorf("failed to decode officials: %w", err)
		}
	}

	var err error
	if focus.VotingClosedAt, err = parseTime(votingClosed); err != nil {
		return nil, err
	}
	if focus.SuggestionsCloseAt, err = parseTime(closeAt); err != nil {
		return nil, err
	}
	if focus.SuggestionsClosedAt, err = parseNullTime(suggestionsClosed); err != nil {
		return nil, err
	}
	focus.Status = domain.FocusStatus(status)
	return &focus, nil
}
