package firestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Annabf7/el-visionat/internal/domain"
)

// cacheDoc keeps the scraped schedule as its JSON encoding; it is only ever
// read back whole.
type cacheDoc struct {
	Schedule        string    `firestore:"schedule"`
	CompetitionName string    `firestore:"competitionName"`
	FetchedAt       time.Time `firestore:"fetchedAt"`
	ExpiresAt       time.Time `firestore:"expiresAt"`
}

func (s *Store) GetCachedRound(ctx context.Context, competitionID string, round int) (*domain.CachedRound, error) {
	snap, err := s.client.Collection(cacheCollection).Doc(cacheDocID(competitionID, round)).Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached jornada %d: %w", round, err)
	}
	var doc cacheDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode cached jornada %d: %w", round, err)
	}
	entry := domain.CachedRound{
		CompetitionName: doc.CompetitionName,
		FetchedAt:       doc.FetchedAt,
		ExpiresAt:       doc.ExpiresAt,
	}
	if err := json.Unmarshal([]byte(doc.Schedule), &entry.Schedule); err != nil {
		return nil, fmt.Errorf("failed to decode cached jornada %d schedule: %w", round, err)
	}
	return &entry, nil
}

func (s *Store) PutCachedRound(ctx context.Context, entry domain.CachedRound) error {
	schedule, err := json.Marshal(entry.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode jornada %d schedule: %w", entry.Schedule.Round, err)
	}
	doc := cacheDoc{
		Schedule:        string(schedule),
		CompetitionName: entry.CompetitionName,
		FetchedAt:       entry.FetchedAt,
		ExpiresAt:       entry.ExpiresAt,
	}
	id := cacheDocID(entry.Schedule.CompetitionID, entry.Schedule.Round)
	if _, err := s.client.Collection(cacheCollection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to cache jornada %d: %w", entry.Schedule.Round, err)
	}
	return nil
}
