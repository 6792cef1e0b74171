package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
	"github.com/tbourn/go-inline-answer-bot/internal/observability"
	"github.com/tbourn/go-inline-answer-bot/internal/utils"
)

// User-facing texts sent through the private chat.
const (
	msgNotFound    = "Reservation not found. Please try again."
	msgDenied      = "Sorry, you are not allowed to use this service."
	msgRateLimited = "You have reached the maximum of %d requests in the last 24 hours."
	msgPlaceholder = "Processing your question, the answer will follow shortly.\n\n(Question: %s)"
	msgReady       = "Your answer is ready:\n\n%s\n\n(View on the web: %s)"
	msgContinued   = "%s\n\n(%s)"
	msgFailure     = "An error occurred while processing your question. Please try again later."
)

// StatusURL returns the public status page for reservation id.
func StatusURL(baseURL, id string) string {
	return baseURL + "/answer/" + id
}

// Notifier delivers status and results to a user's private chat, editing
// the placeholder when possible and falling back to new messages.
//
// Only Notify reports errors. Every other failure is logged and counted,
// since a lost message must never abort the calling handler.
type Notifier struct {
	Messenger Messenger
	BaseURL   string
	ChunkSize int
	Log       zerolog.Logger
}

// NewNotifier returns a Notifier. chunkSize <= 0 selects utils.DefaultChunkSize.
func NewNotifier(m Messenger, baseURL string, chunkSize int, log zerolog.Logger) *Notifier {
	if chunkSize <= 0 {
		chunkSize = utils.DefaultChunkSize
	}
	return &Notifier{Messenger: m, BaseURL: baseURL, ChunkSize: chunkSize, Log: log}
}

// Notify sends a single best-effort message.
func (n *Notifier) Notify(ctx context.Context, to, text string) error {
	_, err := n.Messenger.Send(ctx, to, text)
	observability.Deliveries.WithLabelValues("notify", observability.OutcomeLabel(err)).Inc()
	if err != nil {
		n.Log.Warn().Err(err).Str("user_id", to).Msg("notify failed")
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

// Placeholder sends the interim message echoing query. ok is false when the
// user could not be reached.
func (n *Notifier) Placeholder(ctx context.Context, to, query string) (ref domain.MessageRef, ok bool) {
	ref, err := n.Messenger.Send(ctx, to, fmt.Sprintf(msgPlaceholder, query))
	observability.Deliveries.WithLabelValues("placeholder", observability.OutcomeLabel(err)).Inc()
	if err != nil {
		n.Log.Warn().Err(err).Str("user_id", to).Msg("placeholder not sent")
		return domain.MessageRef{}, false
	}
	return ref, true
}

// DeliverAnswer sends answer for reservation id to the user. With a
// placeholder ref the first unit replaces it in place; the remaining units
// follow as new messages. If the edit fails, or ref is nil, every unit is
// sent as a new message. Sending stops at the first failed unit so the user
// never sees a gap in the middle of an answer.
func (n *Notifier) DeliverAnswer(ctx context.Context, to string, ref *domain.MessageRef, id, answer string) {
	units := n.answerUnits(id, answer)
	log := n.Log.With().Str("reservation_id", id).Str("user_id", to).Logger()

	rest := units
	if ref != nil {
		err := n.edit(ctx, *ref, units[0])
		if err == nil {
			rest = units[1:]
		} else {
			log.Warn().Err(err).Msg("placeholder edit failed; sending as new messages")
		}
	}

	for i, u := range rest {
		if err := n.send(ctx, to, u); err != nil {
			log.Warn().Err(err).Int("unit", i).Int("remaining", len(rest)-i).Msg("answer delivery aborted")
			return
		}
	}
}

// DeliverFailure tells the user to retry later, editing the placeholder
// when possible.
func (n *Notifier) DeliverFailure(ctx context.Context, to string, ref *domain.MessageRef, id string) {
	log := n.Log.With().Str("reservation_id", id).Str("user_id", to).Logger()
	if ref != nil {
		err := n.edit(ctx, *ref, msgFailure)
		if err == nil {
			return
		}
		log.Warn().Err(err).Msg("placeholder edit failed; sending failure notice")
	}
	if err := n.send(ctx, to, msgFailure); err != nil {
		log.Warn().Err(err).Msg("failure notice not delivered")
	}
}

// answerUnits chunks answer and decorates each chunk with the status link.
// Every unit fits utils.MaxMessageLength once decorated. An empty answer
// still yields one unit.
func (n *Notifier) answerUnits(id, answer string) []string {
	url := StatusURL(n.BaseURL, id)
	overhead := max(
		utils.UTF16Len(fmt.Sprintf(msgReady, "", url)),
		utils.UTF16Len(fmt.Sprintf(msgContinued, "", url)),
	)
	size := min(n.ChunkSize, utils.MaxMessageLength-overhead)
	if n.ChunkSize <= 0 {
		size = utils.MaxMessageLength - overhead
	}
	chunks := utils.SplitToChunks(answer, max(size, 1))
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	units := make([]string, len(chunks))
	units[0] = fmt.Sprintf(msgReady, chunks[0], url)
	for i := 1; i < len(chunks); i++ {
		units[i] = fmt.Sprintf(msgContinued, chunks[i], url)
	}
	return units
}

func (n *Notifier) send(ctx context.Context, to, text string) error {
	_, err := n.Messenger.Send(ctx, to, text)
	observability.Deliveries.WithLabelValues("send", observability.OutcomeLabel(err)).Inc()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

func (n *Notifier) edit(ctx context.Context, ref domain.MessageRef, text string) error {
	err := n.Messenger.Edit(ctx, ref, text)
	observability.Deliveries.WithLabelValues("edit", observability.OutcomeLabel(err)).Inc()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}
