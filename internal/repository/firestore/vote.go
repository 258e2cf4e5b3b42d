package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Annabf7/el-visionat/internal/domain"
)

type voteDoc struct {
	Round     int       `firestore:"jornada"`
	UserID    string    `firestore:"userId"`
	MatchID   string    `firestore:"matchId"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (s *Store) voteRef(round int, userID string) *firestore.DocumentRef {
	return s.client.Collection(votesCollection).Doc(voteDocID(round, userID))
}

// readVote returns nil when the user has not voted.
func readVote(tx *firestore.Transaction, ref *firestore.DocumentRef) (*voteDoc, error) {
	snap, err := tx.Get(ref)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vote: %w", err)
	}
	var doc voteDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode vote: %w", err)
	}
	return &doc, nil
}

// requireOpen reads the round's period inside tx, so a rollover committed
// before the vote forces a retry that sees the closed period.
func (s *Store) requireOpen(tx *firestore.Transaction, round int) error {
	period, err := readPeriod(tx, s.periodRef(round))
	if err != nil {
		return err
	}
	if period == nil {
		return fmt.Errorf("jornada %d was never opened: %w", round, domain.ErrVotingClosed)
	}
	if !period.Open {
		return fmt.Errorf("jornada %d: %w", round, domain.ErrVotingClosed)
	}
	return nil
}

// PutVote writes the vote and moves both tallies in one transaction.
func (s *Store) PutVote(ctx context.Context, vote domain.Vote) (domain.VoteChange, error) {
	var change domain.VoteChange
	ref := s.voteRef(vote.Round, vote.UserID)

	err := s.runTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		change = domain.VoteChange{After: &domain.VoteKey{Round: vote.Round, MatchID: vote.MatchID}}
		if err := s.requireOpen(tx, vote.Round); err != nil {
			return err
		}
		previous, err := readVote(tx, ref)
		if err != nil {
			return err
		}

		doc := voteDoc(vote)
		if previous != nil {
			change.Before = &domain.VoteKey{Round: vote.Round, MatchID: previous.MatchID}
			doc.CreatedAt = previous.CreatedAt
		}

		apply, err := s.prepareVoteChange(tx, change)
		if err != nil {
			return err
		}
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		return apply()
	})
	if err != nil {
		return domain.VoteChange{}, fmt.Errorf("failed to store vote: %w", err)
	}
	return change, nil
}

func (s *Store) DeleteVote(ctx context.Context, round int, userID string) (domain.VoteChange, error) {
	var change domain.VoteChange
	ref := s.voteRef(round, userID)

	err := s.runTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		change = domain.VoteChange{}
		if err := s.requireOpen(tx, round); err != nil {
			return err
		}
		previous, err := readVote(tx, ref)
		if err != nil || previous == nil {
			return err
		}
		change.Before = &domain.VoteKey{Round: round, MatchID: previous.MatchID}

		apply, err := s.prepareVoteChange(tx, change)
		if err != nil {
			return err
		}
		if err := tx.Delete(ref); err != nil {
			return err
		}
		return apply()
	})
	if err != nil {
		return domain.VoteChange{}, fmt.Errorf("failed to delete vote: %w", err)
	}
	return change, nil
}

func (s *Store) GetVote(ctx context.Context, round int, userID string) (*domain.Vote, error) {
	snap, err := s.voteRef(round, userID).Get(ctx)
	if isNotFound(err) {
		return nil, fmt.Errorf("vote of %s in jornada %d: %w", userID, round, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	var doc voteDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode vote: %w", err)
	}
	vote := domain.Vote(doc)
	return &vote, nil
}

func (s *Store) CountVotes(ctx context.Context, round int, matchID string) (int, error) {
	docs, err := s.client.Collection(votesCollection).
		Where("jornada", "==", round).
		Where("matchId", "==", matchID).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return len(docs), nil
}
