package service

import (
	"context"
	"fmt"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

// TallyTrigger reacts to vote-written events. Vote stores already move the
// tallies with the vote; the trigger recounts the touched matches from the
// votes themselves so any tally that drifted converges back to its count.
type TallyTrigger struct {
	tallies TallyStore
	logger  zerolog.Logger
}

func NewTallyTrigger(tallies TallyStore, logger zerolog.Logger) *TallyTrigger {
	return &TallyTrigger{tallies: tallies, logger: logger}
}

func (t *TallyTrigger) Handle(ctx context.Context, change domain.VoteChange) error {
	if change.Noop() {
		return nil
	}

	var keys []domain.VoteKey
	event := t.logger.Debug()
	if change.Before != nil {
		keys = append(keys, *change.Before)
		event = event.Str("from", change.Before.MatchID)
	}
	if change.After != nil {
		keys = append(keys, *change.After)
		event = event.Str("to", change.After.MatchID)
	}
	if err := t.tallies.RecountTallies(ctx, keys); err != nil {
		return fmt.Errorf("failed to recount tallies: %w", err)
	}
	event.Msg("tallies recounted")
	return nil
}
