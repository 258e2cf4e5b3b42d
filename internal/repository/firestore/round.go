package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Annabf7/el-visionat/internal/domain"
)

type activeRoundDoc struct {
	Round           int        `firestore:"activeJornada"`
	WeekendStart    time.Time  `firestore:"weekendStart"`
	WeekendEnd      time.Time  `firestore:"weekendEnd"`
	PublishedAt     time.Time  `firestore:"publishedAt"`
	MatchCount      int        `firestore:"matchCount"`
	RestWeek        bool       `firestore:"restWeek"`
	RestWeekMessage string     `firestore:"restWeekMessage"`
	NextVotingDate  *time.Time `firestore:"nextVotingDate"`
}

type periodDoc struct {
	Round       int        `firestore:"jornada"`
	Open        bool       `firestore:"votingOpen"`
	OpenedAt    *time.Time `firestore:"openedAt"`
	ClosedAt    *time.Time `firestore:"closedAt"`
	CloseReason string     `firestore:"closedReason"`
}

func (d periodDoc) toDomain() *domain.VotingPeriod {
	p := domain.VotingPeriod(d)
	return &p
}

func (s *Store) pointerRef() *firestore.DocumentRef {
	return s.client.Collection(metaCollection).Doc(currentDoc)
}

func (s *Store) periodRef(round int) *firestore.DocumentRef {
	return s.client.Collection(metaCollection).Doc(roundDocID(round))
}

func (s *Store) publicationRef(round int) *firestore.DocumentRef {
	return s.client.Collection(roundsCollection).Doc(roundDocID(round))
}

func (s *Store) GetActiveRound(ctx context.Context) (*domain.ActiveRound, error) {
	snap, err := s.pointerRef().Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active jornada: %w", err)
	}
	var doc activeRoundDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode active jornada: %w", err)
	}
	active := domain.ActiveRound(doc)
	return &active, nil
}

func (s *Store) GetPublication(ctx context.Context, round int) (*domain.RoundPublication, error) {
	snap, err := s.publicationRef(round).Get(ctx)
	if isNotFound(err) {
		return nil, fmt.Errorf("jornada %d publication: %w", round, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jornada %d publication: %w", round, err)
	}
	var doc publicationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode jornada %d publication: %w", round, err)
	}
	return doc.toDomain(), nil
}

func (s *Store) GetVotingPeriod(ctx context.Context, round int) (*domain.VotingPeriod, error) {
	snap, err := s.periodRef(round).Get(ctx)
	if isNotFound(err) {
		return nil, fmt.Errorf("jornada %d voting period: %w", round, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jornada %d voting period: %w", round, err)
	}
	var doc periodDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode jornada %d voting period: %w", round, err)
	}
	return doc.toDomain(), nil
}

// readPeriod returns nil when the period document does not exist.
func readPeriod(tx *firestore.Transaction, ref *firestore.DocumentRef) (*periodDoc, error) {
	snap, err := tx.Get(ref)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read voting period %s: %w", ref.ID, err)
	}
	var doc periodDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode voting period %s: %w", ref.ID, err)
	}
	return &doc, nil
}

// closedPeriod keeps the first close time and reason of an already closed period.
func closedPeriod(existing *periodDoc, round int, reason string, at time.Time) periodDoc {
	doc := periodDoc{Round: round, CloseReason: reason, ClosedAt: &at}
	if existing != nil {
		doc.OpenedAt = existing.OpenedAt
		if existing.ClosedAt != nil {
			doc.ClosedAt = existing.ClosedAt
			doc.CloseReason = existing.CloseReason
		}
	}
	return doc
}

// readPointer returns nil when no round was ever published.
func (s *Store) readPointer(tx *firestore.Transaction) (*activeRoundDoc, error) {
	snap, err := tx.Get(s.pointerRef())
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read active jornada: %w", err)
	}
	var doc activeRoundDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode active jornada: %w", err)
	}
	return &doc, nil
}

// Rollover reads the pointer inside the transaction, so a concurrent rollover
// forces a retry instead of leaving two periods open.
func (s *Store) Rollover(ctx context.Context, ro domain.Rollover) (domain.Rollover, error) {
	var applied domain.Rollover
	err := s.runTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		applied = ro
		pub := &applied.Publication

		pointer, err := s.readPointer(tx)
		if err != nil {
			return err
		}
		current, err := readPeriod(tx, s.periodRef(pub.Round))
		if err != nil {
			return err
		}
		if current != nil && current.ClosedAt != nil {
			return fmt.Errorf("jornada %d: %w", pub.Round, domain.ErrVotingClosed)
		}

		var previous *periodDoc
		switch {
		case pointer == nil:
		case pointer.Round == pub.Round:
			pub.PublishedAt = pointer.PublishedAt
			applied.Pointer.PublishedAt = pointer.PublishedAt
		default:
			applied.Previous = pointer.Round
			if previous, err = readPeriod(tx, s.periodRef(pointer.Round)); err != nil {
				return err
			}
		}

		if applied.Previous > 0 {
			closed := closedPeriod(previous, applied.Previous, applied.CloseReason, applied.At)
			if err := tx.Set(s.periodRef(applied.Previous), closed); err != nil {
				return err
			}
		}

		at := applied.At
		opened := periodDoc{Round: pub.Round, Open: true, OpenedAt: &at}
		if current != nil && current.OpenedAt != nil {
			opened.OpenedAt = current.OpenedAt
		}
		if err := tx.Set(s.periodRef(pub.Round), opened); err != nil {
			return err
		}

		if err := tx.Set(s.publicationRef(pub.Round), newPublicationDoc(*pub)); err != nil {
			return err
		}
		return tx.Set(s.pointerRef(), activeRoundDoc(applied.Pointer))
	})
	if err != nil {
		return ro, fmt.Errorf("failed to commit rollover of jornada %d: %w", ro.Publication.Round, err)
	}

	s.logger.Debug().
		Int("jornada", applied.Publication.Round).
		Int("previous", applied.Previous).
		Int("matches", len(applied.Publication.Matches)).
		Msg("rollover committed")
	return applied, nil
}

func (s *Store) MarkRestWeek(ctx context.Context, rw domain.RestWeek) (int, error) {
	var closed int
	err := s.runTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		pointer, err := s.readPointer(tx)
		if err != nil {
			return err
		}
		if pointer == nil {
			return fmt.Errorf("rest week without active jornada: %w", domain.ErrNotFound)
		}
		previous, err := readPeriod(tx, s.periodRef(pointer.Round))
		if err != nil {
			return err
		}

		closed = pointer.Round
		if err := tx.Set(s.periodRef(closed), closedPeriod(previous, closed, rw.CloseReason, rw.At)); err != nil {
			return err
		}

		next := rw.NextVotingDate
		pointer.RestWeek = true
		pointer.RestWeekMessage = rw.Message
		pointer.NextVotingDate = &next
		return tx.Set(s.pointerRef(), *pointer)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark rest week: %w", err)
	}
	return closed, nil
}
