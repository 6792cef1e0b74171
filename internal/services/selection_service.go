// Package services – SelectionService
//
// SelectionService is the reservation state machine. A selection event
// resolves its reservation, re-applies the access policy and the 24h quota,
// commits (selector becomes creator, quota charged once), sends a
// placeholder, calls the Answer Provider under a deadline, and delivers the
// result or a retry-later notice.
//
// Observability: one span per selection; outcome counter and provider
// latency histogram in package observability.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
	"github.com/tbourn/go-inline-answer-bot/internal/observability"
)

// DefaultAnswerTimeout bounds one Answer Provider call.
const DefaultAnswerTimeout = 35 * time.Second

// storedFailureText is what a failed reservation shows on the status surface.
const storedFailureText = "Failed to get an answer. Please try again later."

// Outcome is the terminal branch a selection took.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeDenied
	OutcomeRateLimited
	OutcomeAnswered
	OutcomeFailed
	OutcomeReplayed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeDenied:
		return "denied"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeAnswered:
		return "answered"
	case OutcomeFailed:
		return "failed"
	case OutcomeReplayed:
		return "replayed"
	default:
		return "unknown"
	}
}

// Selection is a chosen inline result.
type Selection struct {
	ResultID string
	From     string
}

// SelectionService drives a reservation from selection to delivery.
type SelectionService struct {
	Store    ReservationStore
	Policy   *AccessPolicy
	Usage    *UsageTracker
	Provider AnswerProvider
	Notifier *Notifier

	// Limit is the number of selections allowed per identity per 24h.
	Limit int
	// Timeout bounds the provider call; <= 0 selects DefaultAnswerTimeout.
	Timeout time.Duration

	Log zerolog.Logger
}

// Handle processes one selection and reports which branch it took. The
// error is nil for Answered and Replayed; otherwise it wraps the matching
// sentinel (ErrNotFound, ErrAccessDenied, ErrRateLimited, ErrUpstream) or an
// unexpected store error. User notification has already happened either way.
//
// Selecting a reservation that is already ready or failed re-sends the
// stored result without charging quota or calling the provider. Selecting
// a pending reservation twice charges twice and the last selector becomes
// its creator.
func (s *SelectionService) Handle(ctx context.Context, sel Selection) (out Outcome, err error) {
	ctx, span := observability.Tracer("services/SelectionService").Start(ctx, "Handle",
		trace.WithAttributes(
			attribute.String("reservation.id", sel.ResultID),
			attribute.String("user.id", sel.From),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String("outcome", out.String()))
		if err != nil && out != OutcomeDenied && out != OutcomeRateLimited {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		observability.Selections.WithLabelValues(out.String()).Inc()
	}()

	log := s.Log.With().Str("reservation_id", sel.ResultID).Str("user_id", sel.From).Logger()

	if strings.HasPrefix(sel.ResultID, DeniedResultPrefix) {
		log.Info().Msg("denial result selected")
		_ = s.Notifier.Notify(ctx, sel.From, msgDenied)
		return OutcomeDenied, ErrAccessDenied
	}

	r, err := s.Store.Get(ctx, sel.ResultID)
	if err != nil {
		err = mapStoreErr(err)
		if errors.Is(err, ErrNotFound) {
			log.Info().Msg("selected reservation not found")
			_ = s.Notifier.Notify(ctx, sel.From, msgNotFound)
		}
		return OutcomeNotFound, err
	}

	if !s.Policy.Allowed(sel.From) {
		log.Info().Msg("selection denied")
		_ = s.Notifier.Notify(ctx, sel.From, msgDenied)
		return OutcomeDenied, ErrAccessDenied
	}

	if r.Status.Terminal() {
		log.Info().Str("status", string(r.Status)).Msg("selection replay; re-sending stored result")
		s.redeliver(ctx, sel.From, r)
		return OutcomeReplayed, nil
	}

	used, charged := s.Usage.TryIncrement(sel.From, s.Limit)
	if !charged {
		log.Info().Int("count", used).Int("limit", s.Limit).Msg("selection rate limited")
		_ = s.Notifier.Notify(ctx, sel.From, fmt.Sprintf(msgRateLimited, s.Limit))
		return OutcomeRateLimited, ErrRateLimited
	}

	// Commit. Quota is already charged and nothing below refunds it.
	// Shutdown no longer cancels the remaining work; the provider deadline
	// still bounds it.
	ctx = context.WithoutCancel(ctx)
	if _, err := s.Store.AssignSelector(ctx, r.ID, sel.From); err != nil {
		return OutcomeNotFound, fmt.Errorf("assign selector: %w", mapStoreErr(err))
	}
	log.Debug().Int("used", used).Msg("selection committed")

	var ref *domain.MessageRef
	if m, ok := s.Notifier.Placeholder(ctx, sel.From, r.Query); ok {
		ref = &m
		if _, err := s.Store.AttachMessage(ctx, r.ID, m); err != nil {
			log.Warn().Err(err).Msg("placeholder ref not recorded")
		}
	}

	answer, perr := s.ask(ctx, r.Query)
	if perr != nil {
		log.Error().Err(perr).Msg("answer provider failed")
		if _, err := s.Store.MarkFailed(ctx, r.ID, storedFailureText); err != nil {
			log.Warn().Err(err).Msg("mark failed")
		}
		s.Notifier.DeliverFailure(ctx, sel.From, ref, r.ID)
		return OutcomeFailed, perr
	}

	if _, err := s.Store.MarkReady(ctx, r.ID, answer); err != nil {
		log.Warn().Err(err).Msg("mark ready")
	}
	s.Notifier.DeliverAnswer(ctx, sel.From, ref, r.ID, answer)
	return OutcomeAnswered, nil
}

// ask calls the provider under the configured deadline.
func (s *SelectionService) ask(ctx context.Context, query string) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultAnswerTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		answer string
		err    error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		a, err := s.Provider.Answer(ctx, query)
		done <- result{a, err}
	}()

	var (
		answer string
		err    error
	)
	select {
	case res := <-done:
		answer, err = res.answer, res.err
	case <-ctx.Done():
		// a provider that ignores ctx must not hold the selection
		err = ctx.Err()
	}
	observability.AnswerDuration.WithLabelValues(observability.OutcomeLabel(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return answer, nil
}

func (s *SelectionService) redeliver(ctx context.Context, to string, r domain.Reservation) {
	switch r.Status {
	case domain.StatusReady:
		s.Notifier.DeliverAnswer(ctx, to, nil, r.ID, r.AnswerText())
	case domain.StatusFailed:
		s.Notifier.DeliverFailure(ctx, to, nil, r.ID)
	}
}
