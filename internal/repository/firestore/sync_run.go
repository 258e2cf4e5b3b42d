package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Annabf7/el-visionat/internal/domain"
)

type syncRunDoc struct {
	ID           string             `firestore:"id"`
	Trigger      domain.SyncTrigger `firestore:"trigger"`
	StartedAt    time.Time          `firestore:"startedAt"`
	FinishedAt   time.Time          `firestore:"finishedAt"`
	TargetDate   *time.Time         `firestore:"targetDate"`
	Published    bool               `firestore:"published"`
	Round        int                `firestore:"jornada"`
	MatchCount   int                `firestore:"matchCount"`
	Reason       string             `firestore:"reason"`
	Error        string             `firestore:"error"`
	WeekendStart time.Time          `firestore:"weekendStart"`
	WeekendEnd   time.Time          `firestore:"weekendEnd"`
}

func (s *Store) RecordSyncRun(ctx context.Context, run domain.SyncRun) error {
	if _, err := s.client.Collection(syncRunsCollection).Doc(docSafe(run.ID)).Set(ctx, syncRunDoc(run)); err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	docs, err := s.client.Collection(syncRunsCollection).
		OrderBy("startedAt", firestore.Desc).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}

	runs := make([]domain.SyncRun, 0, len(docs))
	for _, snap := range docs {
		var doc syncRunDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode sync run %s: %w", snap.Ref.ID, err)
		}
		runs = append(runs, domain.SyncRun(doc))
	}
	return runs, nil
}
