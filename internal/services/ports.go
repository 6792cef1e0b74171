package services

import (
	"context"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
)

// ReservationStore is the authoritative table of reservations. Every method
// returns a value snapshot; callers mutate records only through these
// operations. Unknown ids yield repo.ErrNotFound.
//
// Implementations: repo.MemoryStore (default) and repo.GormStore.
type ReservationStore interface {
	// Create inserts a pending reservation with a fresh id.
	Create(ctx context.Context, query, creatorID string) (domain.Reservation, error)

	// Get looks a reservation up by id.
	Get(ctx context.Context, id string) (domain.Reservation, error)

	// MarkReady sets status=ready and stores answer.
	MarkReady(ctx context.Context, id, answer string) (domain.Reservation, error)

	// MarkFailed sets status=failed and stores the user-safe error text.
	MarkFailed(ctx context.Context, id, errText string) (domain.Reservation, error)

	// AssignSelector overwrites the creator with the selecting identity.
	AssignSelector(ctx context.Context, id, identity string) (domain.Reservation, error)

	// AttachMessage records where the placeholder message lives.
	AttachMessage(ctx context.Context, id string, ref domain.MessageRef) (domain.Reservation, error)
}

// Messenger is the chat transport used for private messages.
type Messenger interface {
	Send(ctx context.Context, to, text string) (domain.MessageRef, error)
	Edit(ctx context.Context, ref domain.MessageRef, text string) error
}

// AnswerProvider turns a question into answer text. Implementations must
// honor ctx cancellation.
type AnswerProvider interface {
	Answer(ctx context.Context, question string) (string, error)
}
