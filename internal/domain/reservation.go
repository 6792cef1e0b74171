// Package domain defines the reservation model that correlates an inline
// query, the later selection of its result, and the asynchronously computed
// answer. The type is mapped with GORM so the same value can live in the
// in-memory table or in a SQL-backed store.
package domain

import "time"

// Status is the lifecycle state of a Reservation.
//
// Transitions are forward-only: pending → ready or pending → failed.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Terminal reports whether s is ready or failed.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// MessageRef points at a message in a private chat: the chat (identity) it
// was sent to and the platform-assigned message id.
type MessageRef struct {
	ChatID    string
	MessageID int
}

// Reservation represents one question-answer exchange in flight.
//
// Fields:
//   - ID: UUID, the correlation token shared by the inline result, the
//     selection event, and the public status URL.
//   - Query: original question text; never changes after creation.
//   - CreatorID: requesting identity. Set at issuance, overwritten by the
//     identity that selects the result.
//   - ChannelChatID / ChannelMessageID: placeholder message location; zero
//     until a placeholder was sent.
//   - Status: pending|ready|failed.
//   - Answer: nil while pending; result text (ready) or user-safe error
//     text (failed) afterwards.
//   - CreatedAt: creation time, informational only.
type Reservation struct {
	ID               string    `gorm:"type:char(36);primaryKey"`
	Query            string    `gorm:"type:text;not null"`
	CreatorID        string    `gorm:"type:varchar(64);index"`
	ChannelChatID    string    `gorm:"type:varchar(64)"`
	ChannelMessageID int       `gorm:"not null;default:0"`
	Status           Status    `gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','ready','failed')"`
	Answer           *string   `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for Reservation.
func (Reservation) TableName() string { return "reservations" }

// MessageRef returns the recorded placeholder location, if any.
func (r Reservation) MessageRef() (MessageRef, bool) {
	if r.ChannelChatID == "" || r.ChannelMessageID == 0 {
		return MessageRef{}, false
	}
	return MessageRef{ChatID: r.ChannelChatID, MessageID: r.ChannelMessageID}, true
}

// AnswerText returns the answer or "" while none is set.
func (r Reservation) AnswerText() string {
	if r.Answer == nil {
		return ""
	}
	return *r.Answer
}
