package services

import (
	"context"
	"strings"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
)

// StatusService is the read side of the status surface.
type StatusService struct {
	Store ReservationStore
}

// Get returns the reservation for id or ErrNotFound.
func (s *StatusService) Get(ctx context.Context, id string) (domain.Reservation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Reservation{}, ErrNotFound
	}
	r, err := s.Store.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, mapStoreErr(err)
	}
	return r, nil
}
