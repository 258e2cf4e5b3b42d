package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

const TopicVoteWritten = "votes.written"

type VoteChangeHandler func(ctx context.Context, change domain.VoteChange) error

// Bus carries vote-written events from the vote writers to the tally trigger.
// Publishing blocks until the subscriber has acknowledged the event, so the
// tallies have been updated once PublishVoteChange returns.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, newZerologAdapter(logger))
	return &Bus{pubsub: pubsub, logger: logger}
}

func (b *Bus) PublishVoteChange(ctx context.Context, change domain.VoteChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode vote change: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(TopicVoteWritten, msg); err != nil {
		return fmt.Errorf("failed to publish vote change: %w", err)
	}

	b.logger.Debug().Str("message_id", msg.UUID).RawJSON("change", payload).Msg("vote change published")
	return nil
}

// SubscribeVoteChanges feeds every vote-written event to handler until ctx is
// done. Events are notifications of committed writes, so a failing handler is
// logged and the event acknowledged.
func (b *Bus) SubscribeVoteChanges(ctx context.Context, handler VoteChangeHandler) error {
	messages, err := b.pubsub.Subscribe(ctx, TopicVoteWritten)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TopicVoteWritten, err)
	}

	go func() {
		for msg := range messages {
			b.handle(msg, handler)
		}
		b.logger.Debug().Msg("vote change subscription closed")
	}()
	return nil
}

func (b *Bus) handle(msg *message.Message, handler VoteChangeHandler) {
	defer msg.Ack()

	var change domain.VoteChange
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		b.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable vote change")
		return
	}

	if err := handler(msg.Context(), change); err != nil {
		b.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("vote change handler failed")
	}
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
