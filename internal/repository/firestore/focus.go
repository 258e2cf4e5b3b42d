package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Annabf7/el-visionat/internal/domain"
)

func (s *Store) focusRef(id string) *firestore.DocumentRef {
	return s.client.Collection(focusCollection).Doc(id)
}

func (s *Store) GetCurrentFocus(ctx context.Context) (*domain.WeeklyFocus, error) {
	focus, err := s.getFocus(ctx, currentDoc)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current weekly focus: %w", err)
	}
	return focus, nil
}

func (s *Store) GetFocus(ctx context.Context, round int) (*domain.WeeklyFocus, error) {
	focus, err := s.getFocus(ctx, roundDocID(round))
	if isNotFound(err) {
		return nil, fmt.Errorf("weekly focus of jornada %d: %w", round, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly focus of jornada %d: %w", round, err)
	}
	return focus, nil
}

func (s *Store) getFocus(ctx context.Context, id string) (*domain.WeeklyFocus, error) {
	snap, err := s.focusRef(id).Get(ctx)
	if err != nil {
		return nil, err
	}
	var doc focusDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode weekly focus %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

// SaveFocus writes the current pointer and the history copy in one transaction.
func (s *Store) SaveFocus(ctx context.Context, focus domain.WeeklyFocus) error {
	err := s.runTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc := newFocusDoc(focus)
		if err := tx.Set(s.focusRef(currentDoc), doc); err != nil {
			return err
		}
		return tx.Set(s.focusRef(roundDocID(focus.Round)), doc)
	})
	if err != nil {
		return fmt.Errorf("failed to save weekly focus: %w", err)
	}
	return nil
}

func (s *Store) CloseSuggestions(ctx context.Context, at time.Time) (*domain.WeeklyFocus, bool, error) {
	var (
		result  *domain.WeeklyFocus
		changed bool
	)
	err := s.runTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result, changed = nil, false

		snap, err := tx.Get(s.focusRef(currentDoc))
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		var doc focusDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("failed to decode current weekly focus: %w", err)
		}
		result = doc.toDomain()
		if !doc.SuggestionsOpen {
			return nil
		}

		doc.SuggestionsOpen = false
		doc.SuggestionsClosedAt = &at
		doc.Status = domain.FocusEntrevistaPendent
		result = doc.toDomain()
		changed = true

		if err := tx.Set(s.focusRef(currentDoc), doc); err != nil {
			return err
		}
		return tx.Set(s.focusRef(roundDocID(doc.Round)), doc)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to close suggestions: %w", err)
	}
	return result, changed, nil
}
