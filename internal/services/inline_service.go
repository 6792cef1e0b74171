package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-inline-answer-bot/internal/observability"
	"github.com/tbourn/go-inline-answer-bot/internal/utils"
)

const (
	inlineAcceptedTitle = "Submit question for AI processing"
	inlineAcceptedText  = "✅ Your question has been registered.\n\nQuestion: %s\n\nYou will receive the answer privately from the bot.\n\nLink: %s"
	inlineDeniedTitle   = "You are not allowed to use this bot."
	inlineDeniedDesc    = "User not allowed."

	// DeniedResultPrefix marks inline results that carry no reservation.
	DeniedResultPrefix = "denied-"
)

// InlineQuery is an issued inline query.
type InlineQuery struct {
	Query string
	From  string
}

// InlineResult is one entry offered back to the chat client. ID is the
// correlation token returned with the selection event.
type InlineResult struct {
	ID          string
	Title       string
	Description string
	MessageText string
}

// InlineService handles query issuance. It applies the access policy only;
// quota is charged later, at selection.
type InlineService struct {
	Store   ReservationStore
	Policy  *AccessPolicy
	BaseURL string
	Log     zerolog.Logger
}

// Handle answers q with exactly one result: a denial for identities outside
// the allow-list (no reservation created), or a new pending reservation
// whose id is the result id. Store failures are returned.
func (s *InlineService) Handle(ctx context.Context, q InlineQuery) ([]InlineResult, error) {
	if !s.Policy.Allowed(q.From) {
		observability.InlineQueries.WithLabelValues("denied").Inc()
		s.Log.Info().Str("user_id", q.From).Msg("inline query denied")
		return []InlineResult{{
			ID:          DeniedResultPrefix + uuid.NewString(),
			Title:       inlineDeniedTitle,
			Description: inlineDeniedDesc,
			MessageText: msgDenied,
		}}, nil
	}

	query := utils.NormalizeQuery(q.Query)
	r, err := s.Store.Create(ctx, query, q.From)
	if err != nil {
		observability.InlineQueries.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	observability.InlineQueries.WithLabelValues("accepted").Inc()
	s.Log.Debug().Str("reservation_id", r.ID).Str("user_id", q.From).Msg("reservation created")

	return []InlineResult{{
		ID:          r.ID,
		Title:       inlineAcceptedTitle,
		Description: query,
		MessageText: fmt.Sprintf(inlineAcceptedText, query, StatusURL(s.BaseURL, r.ID)),
	}}, nil
}
