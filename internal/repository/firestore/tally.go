package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Annabf7/el-visionat/internal/domain"
)

type tallyDoc struct {
	Round     int       `firestore:"jornada"`
	MatchID   string    `firestore:"matchId"`
	Count     int       `firestore:"count"`
	UpdatedAt time.Time `firestore:"updatedAt,serverTimestamp"`
}

func (s *Store) tallyRef(key domain.VoteKey) *firestore.DocumentRef {
	return s.client.Collection(talliesCollection).Doc(tallyDocID(key.Round, key.MatchID))
}

func readTally(tx *firestore.Transaction, ref *firestore.DocumentRef) (*tallyDoc, error) {
	snap, err := tx.Get(ref)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tally %s: %w", ref.ID, err)
	}
	var doc tallyDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode tally %s: %w", ref.ID, err)
	}
	return &doc, nil
}

// prepareVoteChange reads both tallies touched by change and returns the
// function that writes them back. Firestore transactions need every read
// before the first write, so callers run it after their own reads.
func (s *Store) prepareVoteChange(tx *firestore.Transaction, change domain.VoteChange) (func() error, error) {
	if change.Noop() {
		return func() error { return nil }, nil
	}

	var before, after *tallyDoc
	var err error
	if change.Before != nil {
		if before, err = readTally(tx, s.tallyRef(*change.Before)); err != nil {
			return nil, err
		}
	}
	if change.After != nil {
		if after, err = readTally(tx, s.tallyRef(*change.After)); err != nil {
			return nil, err
		}
	}

	return func() error {
		if before != nil {
			before.Count = max(before.Count-1, 0)
			before.UpdatedAt = time.Time{}
			if err := tx.Set(s.tallyRef(*change.Before), *before); err != nil {
				return err
			}
		}
		if change.After != nil {
			if after == nil {
				after = &tallyDoc{Round: change.After.Round, MatchID: change.After.MatchID}
			}
			after.Count++
			after.UpdatedAt = time.Time{}
			if err := tx.Set(s.tallyRef(*change.After), *after); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// RecountTallies counts the votes of each key inside a transaction and
// overwrites the tally with the result.
func (s *Store) RecountTallies(ctx context.Context, keys []domain.VoteKey) error {
	if len(keys) == 0 {
		return nil
	}

	err := s.runTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		counts := make([]int, len(keys))
		for i, key := range keys {
			q := s.client.Collection(votesCollection).
				Where("jornada", "==", key.Round).
				Where("matchId", "==", key.MatchID)
			docs, err := tx.Documents(q).GetAll()
			if err != nil {
				return fmt.Errorf("failed to count votes of %s: %w", key.MatchID, err)
			}
			counts[i] = len(docs)
		}
		for i, key := range keys {
			doc := tallyDoc{Round: key.Round, MatchID: key.MatchID, Count: counts[i]}
			if err := tx.Set(s.tallyRef(key), doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to recount tallies: %w", err)
	}
	return nil
}

func (s *Store) TopTally(ctx context.Context, round int) (*domain.Tally, error) {
	tallies, err := s.queryTallies(ctx, round, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get top tally: %w", err)
	}
	if len(tallies) == 0 {
		return nil, nil
	}
	return &tallies[0], nil
}

func (s *Store) ListTallies(ctx context.Context, round int) ([]domain.Tally, error) {
	tallies, err := s.queryTallies(ctx, round, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list tallies: %w", err)
	}
	return tallies, nil
}

func (s *Store) queryTallies(ctx context.Context, round, limit int) ([]domain.Tally, error) {
	q := s.client.Collection(talliesCollection).
		Where("jornada", "==", round).
		OrderBy("count", firestore.Desc).
		OrderBy("matchId", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	tallies := make([]domain.Tally, 0, len(docs))
	for _, snap := range docs {
		var doc tallyDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode tally %s: %w", snap.Ref.ID, err)
		}
		tallies = append(tallies, domain.Tally{Round: doc.Round, MatchID: doc.MatchID, Count: doc.Count})
	}
	return tallies, nil
}
