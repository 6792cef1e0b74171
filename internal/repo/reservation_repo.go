// Package repo implements the reservation stores.
//
// This file provides GormStore, a GORM-backed implementation of the
// reservation store contract. All methods are context-aware and return value
// snapshots; callers never hold a pointer into the backing table.
//
// Error semantics:
//   - Unknown ids yield ErrNotFound (alias of gorm.ErrRecordNotFound).
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
)

// ErrNotFound is returned when a requested reservation does not exist.
// It aliases gorm.ErrRecordNotFound so both stores share one sentinel.
var ErrNotFound = gorm.ErrRecordNotFound

// GormStore persists reservations through GORM.
type GormStore struct {
	DB  *gorm.DB
	now func() time.Time
}

// NewGormStore returns a store over db. The schema must already be migrated
// (see AutoMigrate).
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db, now: time.Now}
}

// Create inserts a pending reservation with a fresh UUID.
func (s *GormStore) Create(ctx context.Context, query, creatorID string) (domain.Reservation, error) {
	r := domain.Reservation{
		ID:        uuid.NewString(),
		Query:     query,
		CreatorID: creatorID,
		Status:    domain.StatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&r).Error; err != nil {
		return domain.Reservation{}, err
	}
	return r, nil
}

// Get fetches a reservation by id.
func (s *GormStore) Get(ctx context.Context, id string) (domain.Reservation, error) {
	var r domain.Reservation
	err := s.DB.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Reservation{}, ErrNotFound
	}
	return r, err
}

// MarkReady sets status=ready and stores answer. Terminal records are
// overwritten.
func (s *GormStore) MarkReady(ctx context.Context, id, answer string) (domain.Reservation, error) {
	return s.update(ctx, id, map[string]any{"status": domain.StatusReady, "answer": answer})
}

// MarkFailed sets status=failed and stores the user-facing error text.
func (s *GormStore) MarkFailed(ctx context.Context, id, errText string) (domain.Reservation, error) {
	return s.update(ctx, id, map[string]any{"status": domain.StatusFailed, "answer": errText})
}

// AssignSelector records identity as the reservation's creator.
func (s *GormStore) AssignSelector(ctx context.Context, id, identity string) (domain.Reservation, error) {
	return s.update(ctx, id, map[string]any{"creator_id": identity})
}

// AttachMessage records the placeholder message location.
func (s *GormStore) AttachMessage(ctx context.Context, id string, ref domain.MessageRef) (domain.Reservation, error) {
	return s.update(ctx, id, map[string]any{
		"channel_chat_id":    ref.ChatID,
		"channel_message_id": ref.MessageID,
	})
}

// Sweep deletes terminal reservations created before cutoff and reports how
// many rows were removed. Pending rows are never swept.
func (s *GormStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	res := s.DB.WithContext(ctx).
		Where("status IN ? AND created_at < ?", []domain.Status{domain.StatusReady, domain.StatusFailed}, cutoff.UTC()).
		Delete(&domain.Reservation{})
	return int(res.RowsAffected), res.Error
}

// update applies cols to the row with id and returns the fresh row.
func (s *GormStore) update(ctx context.Context, id string, cols map[string]any) (domain.Reservation, error) {
	var out domain.Reservation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Reservation{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return out, nil
}
