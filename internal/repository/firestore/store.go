package firestore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/Annabf7/el-visionat/internal/constants"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	metaCollection     = "voting_meta"
	roundsCollection   = "voting_jornades"
	votesCollection    = "votes"
	talliesCollection  = "vote_counts"
	focusCollection    = "weekly_focus"
	cacheCollection    = "jornades_cache"
	syncRunsCollection = "sync_runs"

	currentDoc = "current"
)

// Store keeps every voting record in Firestore. Multi-document writes go
// through RunTransaction, with all reads issued before the first write.
type Store struct {
	client *firestore.Client
	logger zerolog.Logger
}

func NewStore(ctx context.Context, projectID string, logger zerolog.Logger) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	logger.Info().Str("project_id", projectID).Msg("firestore client ready")
	return &Store{client: client, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) runTransaction(ctx context.Context, fn func(context.Context, *firestore.Transaction) error) error {
	return s.client.RunTransaction(ctx, fn, firestore.MaxAttempts(constants.FirestoreRetries))
}

func roundDocID(round int) string {
	return fmt.Sprintf("jornada_%d", round)
}

func voteDocID(round int, userID string) string {
	return fmt.Sprintf("%d_%s", round, docSafe(userID))
}

func tallyDocID(round int, matchID string) string {
	return fmt.Sprintf("%d_%s", round, docSafe(matchID))
}

func cacheDocID(competitionID string, round int) string {
	return fmt.Sprintf("%s_%d", docSafe(competitionID), round)
}

// docSafe strips the path separator, which Firestore forbids in document ids.
func docSafe(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
