package service

import (
	"context"
	"fmt"

	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

type SuggestionCloser struct {
	focus  FocusStore
	clock  Clock
	logger zerolog.Logger
}

func NewSuggestionCloser(focus FocusStore, clock Clock, logger zerolog.Logger) *SuggestionCloser {
	return &SuggestionCloser{focus: focus, clock: clock, logger: logger}
}

// Close ends the suggestion window of the current weekly focus. The bool
// reports whether the window was open; closing twice is a no-op.
func (s *SuggestionCloser) Close(ctx context.Context) (*domain.WeeklyFocus, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.SuggestionsTimeout)
	defer cancel()

	focus, changed, err := s.focus.CloseSuggestions(ctx, s.clock.Now())
	if err != nil {
		return nil, false, fmt.Errorf("failed to close suggestions: %w", err)
	}

	switch {
	case focus == nil:
		s.logger.Info().Msg("no weekly focus, nothing to close")
	case !changed:
		s.logger.Info().Int("jornada", focus.Round).Msg("suggestions already closed")
	default:
		s.logger.Info().Int("jornada", focus.Round).Msg("suggestions closed, interview pending")
	}
	return focus, changed, nil
}
