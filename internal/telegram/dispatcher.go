package telegram

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-inline-answer-bot/internal/services"
)

// InlineHandler handles query issuance.
type InlineHandler interface {
	Handle(ctx context.Context, q services.InlineQuery) ([]services.InlineResult, error)
}

// SelectionHandler handles chosen results.
type SelectionHandler interface {
	Handle(ctx context.Context, sel services.Selection) (services.Outcome, error)
}

// InlineAnswerer sends results back for an inline query.
type InlineAnswerer interface {
	AnswerInline(ctx context.Context, queryID string, results []services.InlineResult) error
}

// Dispatcher routes updates to the services. Each update runs in its own
// goroutine with panic recovery, so one failing reservation never affects
// another or the process.
type Dispatcher struct {
	Inline    InlineHandler
	Selection SelectionHandler
	Answerer  InlineAnswerer
	Log       zerolog.Logger

	wg sync.WaitGroup
}

// Run consumes updates until ctx is done or the channel closes, then waits
// for in-flight handlers. It returns ctx.Err() on cancellation and nil when
// updates closes.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer d.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.Dispatch(ctx, u)
			}()
		}
	}
}

// Dispatch handles a single update synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, u tgbotapi.Update) {
	log := d.Log.With().Int("update_id", u.UpdateID).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("update handler panic recovered")
		}
	}()

	switch {
	case u.InlineQuery != nil:
		d.inline(ctx, log, u.InlineQuery)
	case u.ChosenInlineResult != nil:
		d.chosen(ctx, log, u.ChosenInlineResult)
	default:
		log.Debug().Msg("ignoring update")
	}
}

func (d *Dispatcher) inline(ctx context.Context, log zerolog.Logger, q *tgbotapi.InlineQuery) {
	results, err := d.Inline.Handle(ctx, services.InlineQuery{Query: q.Query, From: identity(q.From)})
	if err != nil {
		log.Error().Err(err).Str("user_id", identity(q.From)).Msg("inline query failed")
		return
	}
	if err := d.Answerer.AnswerInline(ctx, q.ID, results); err != nil {
		log.Warn().Err(err).Str("inline_query_id", q.ID).Msg("inline answer not delivered")
	}
}

func (d *Dispatcher) chosen(ctx context.Context, log zerolog.Logger, r *tgbotapi.ChosenInlineResult) {
	sel := services.Selection{ResultID: r.ResultID, From: identity(r.From)}
	out, err := d.Selection.Handle(ctx, sel)
	switch {
	case err == nil,
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrAccessDenied),
		errors.Is(err, services.ErrRateLimited),
		errors.Is(err, services.ErrUpstream):
		// already logged by the service
		log.Debug().Str("outcome", out.String()).Str("reservation_id", sel.ResultID).Msg("selection handled")
	default:
		log.Error().Err(err).Str("reservation_id", sel.ResultID).Msg("selection failed")
	}
}
