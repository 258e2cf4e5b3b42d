package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

// VoteService stores end-user votes. The store moves the tallies with each
// vote; a vote-written event follows every committed change.
type VoteService struct {
	rounds    RoundStore
	votes     VoteStore
	tallies   TallyStore
	publisher VotePublisher
	clock     Clock
	logger    zerolog.Logger
}

func NewVoteService(rounds RoundStore, votes VoteStore, tallies TallyStore, publisher VotePublisher, clock Clock, logger zerolog.Logger) *VoteService {
	return &VoteService{
		rounds:    rounds,
		votes:     votes,
		tallies:   tallies,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// CastVote creates or moves the user's vote for round. The round must be open
// and the match part of its publication.
func (s *VoteService) CastVote(ctx context.Context, round int, userID, matchID string) (*domain.Vote, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	userID, matchID = strings.TrimSpace(userID), strings.TrimSpace(matchID)
	if userID == "" || matchID == "" {
		return nil, fmt.Errorf("user id and match id are required: %w", domain.ErrInvalidArgument)
	}
	pub, err := s.rounds.GetPublication(ctx, round)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("jornada %d was never opened: %w", round, domain.ErrVotingClosed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load jornada %d: %w", round, err)
	}
	if pub.Match(matchID) == nil {
		return nil, fmt.Errorf("match %s in jornada %d: %w", matchID, round, domain.ErrUnknownMatch)
	}

	now := s.clock.Now()
	vote := domain.Vote{Round: round, UserID: userID, MatchID: matchID, CreatedAt: now, UpdatedAt: now}

	change, err := s.votes.PutVote(ctx, vote)
	if err != nil {
		return nil, fmt.Errorf("failed to store vote: %w", err)
	}
	s.emit(ctx, change)

	s.logger.Info().Int("jornada", round).Str("user_id", userID).Str("match_id", matchID).Msg("vote cast")
	stored, err := s.votes.GetVote(ctx, round, userID)
	if err != nil {
		return &vote, nil
	}
	return stored, nil
}

// WithdrawVote deletes the user's vote for round and reports whether one existed.
func (s *VoteService) WithdrawVote(ctx context.Context, round int, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if strings.TrimSpace(userID) == "" {
		return false, fmt.Errorf("user id is required: %w", domain.ErrInvalidArgument)
	}
	change, err := s.votes.DeleteVote(ctx, round, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete vote: %w", err)
	}
	if change.Before == nil {
		return false, nil
	}
	s.emit(ctx, change)

	s.logger.Info().Int("jornada", round).Str("user_id", userID).Msg("vote withdrawn")
	return true, nil
}

func (s *VoteService) GetTallies(ctx context.Context, round int) ([]domain.Tally, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	tallies, err := s.tallies.ListTallies(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list tallies: %w", err)
	}
	return tallies, nil
}

// emit never fails the write: the vote and its tallies are already committed.
func (s *VoteService) emit(ctx context.Context, change domain.VoteChange) {
	if change.Noop() {
		return
	}
	if err := s.publisher.PublishVoteChange(ctx, change); err != nil {
		s.logger.Warn().Err(err).Msg("vote stored but event not published")
	}
}
