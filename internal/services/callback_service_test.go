package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
	"github.com/tbourn/go-inline-answer-bot/internal/repo"
)

func newCallbackService(store ReservationStore, m Messenger) *CallbackService {
	return &CallbackService{Store: store, Notifier: newTestNotifier(m, 3800), Log: zerolog.Nop()}
}

func TestCallback_MarksReadyAndEditsPlaceholder(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore()
	m := newFakeMessenger()
	r, _ := store.Create(ctx, "q", "u1")
	ref := domain.MessageRef{ChatID: "u1", MessageID: 12}
	_, _ = store.AttachMessage(ctx, r.ID, ref)

	got, err := newCallbackService(store, m).Complete(ctx, r.ID, "from callback")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Status != domain.StatusReady || got.AnswerText() != "from callback" {
		t.Fatalf("reservation unexpected: %+v", got)
	}
	if e := m.Edits(); len(e) != 1 || e[0].Ref != ref || !strings.Contains(e[0].Text, "from callback") {
		t.Fatalf("expected placeholder edit, got %+v", e)
	}
}

func TestCallback_NoRefSendsToCreator(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore()
	m := newFakeMessenger()
	r, _ := store.Create(ctx, "q", "u9")

	if _, err := newCallbackService(store, m).Complete(ctx, r.ID, "ans"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if s := m.Sends(); len(s) != 1 || s[0].To != "u9" {
		t.Fatalf("sends = %+v", s)
	}
}

func TestCallback_NoCreatorSkipsDelivery(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore()
	m := newFakeMessenger()
	r, _ := store.Create(ctx, "q", "")

	if _, err := newCallbackService(store, m).Complete(ctx, r.ID, "ans"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(m.Sends())+len(m.Edits()) != 0 {
		t.Fatalf("delivery attempted without a creator")
	}
}

func TestCallback_Errors(t *testing.T) {
	svc := newCallbackService(repo.NewMemoryStore(), newFakeMessenger())
	if _, err := svc.Complete(context.Background(), "  ", "a"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("blank id: want ErrBadRequest, got %v", err)
	}
	if _, err := svc.Complete(context.Background(), "missing", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: want ErrNotFound, got %v", err)
	}

	svc.Store = failingStore{err: errBoom}
	if _, err := svc.Complete(context.Background(), "id", "a"); !errors.Is(err, errBoom) {
		t.Fatalf("store error: got %v", err)
	}
}

func TestCallback_DeliveryFailureIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore()
	m := newFakeMessenger()
	m.failSendAfter = 0
	r, _ := store.Create(ctx, "q", "u1")

	if _, err := newCallbackService(store, m).Complete(ctx, r.ID, "ans"); err != nil {
		t.Fatalf("delivery failure must not surface: %v", err)
	}
	got, _ := store.Get(ctx, r.ID)
	if got.Status != domain.StatusReady {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestOutcomeOf(t *testing.T) {
	if outcomeOf(nil) != "ok" || outcomeOf(ErrNotFound) != "not_found" || outcomeOf(errBoom) != "error" {
		t.Fatalf("outcomeOf mapping broken")
	}
}

// cancelingMessenger refuses canceled contexts and fires cancel after the
// first successful send.
type cancelingMessenger struct {
	*fakeMessenger
	cancel context.CancelFunc
}

func (m *cancelingMessenger) Send(ctx context.Context, to, text string) (domain.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.MessageRef{}, err
	}
	ref, err := m.fakeMessenger.Send(ctx, to, text)
	m.cancel()
	return ref, err
}

func TestCallback_DeliveryOutlivesCallerCancel(t *testing.T) {
	store := repo.NewMemoryStore()
	r, _ := store.Create(context.Background(), "q", "u1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &cancelingMessenger{fakeMessenger: newFakeMessenger(), cancel: cancel}
	svc := &CallbackService{Store: store, Notifier: newTestNotifier(m, 10), Log: zerolog.Nop()}

	answer := strings.Repeat("abcdefghij", 4)
	if _, err := svc.Complete(ctx, r.ID, answer); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := len(m.Sends()); got != 4 {
		t.Fatalf("delivered %d units; want all 4 after the caller went away", got)
	}
}
