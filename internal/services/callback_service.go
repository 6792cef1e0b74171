package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
	"github.com/tbourn/go-inline-answer-bot/internal/observability"
)

// CallbackService completes reservations whose answer arrives over HTTP
// instead of the provider call path. Delivery goes through the same
// Notifier as selections.
type CallbackService struct {
	Store    ReservationStore
	Notifier *Notifier
	Log      zerolog.Logger
}

// Complete marks reservation id ready with answer and, when a creator is
// recorded, delivers it to them (editing the placeholder if one exists).
// It returns the updated reservation, ErrBadRequest for a blank id, or
// ErrNotFound for an unknown one.
func (s *CallbackService) Complete(ctx context.Context, id, answer string) (domain.Reservation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		observability.Callbacks.WithLabelValues("bad_request").Inc()
		return domain.Reservation{}, ErrBadRequest
	}

	r, err := s.Store.MarkReady(ctx, id, answer)
	if err != nil {
		err = mapStoreErr(err)
		observability.Callbacks.WithLabelValues(outcomeOf(err)).Inc()
		return domain.Reservation{}, err
	}
	observability.Callbacks.WithLabelValues("ok").Inc()

	log := s.Log.With().Str("reservation_id", id).Logger()
	if r.CreatorID == "" {
		log.Debug().Msg("callback stored; no creator to notify")
		return r, nil
	}

	var ref *domain.MessageRef
	if m, ok := r.MessageRef(); ok {
		ref = &m
	}
	// The answer is stored; a caller hanging up must not cut delivery short.
	s.Notifier.DeliverAnswer(context.WithoutCancel(ctx), r.CreatorID, ref, id, answer)
	log.Info().Str("user_id", r.CreatorID).Msg("callback answer delivered")
	return r, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
