package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
)

// fakeClock is a settable clock for the usage tracker.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sent struct {
	To   string
	Text string
}

type edited struct {
	Ref  domain.MessageRef
	Text string
}

// fakeMessenger records sends/edits. failSendAfter < 0 never fails sends;
// otherwise sends beyond that many successes fail.
type fakeMessenger struct {
	mu            sync.Mutex
	sends         []sent
	edits         []edited
	nextID        int
	failSendAfter int
	failEdit      bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{failSendAfter: -1}
}

func (m *fakeMessenger) Send(_ context.Context, to, text string) (domain.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSendAfter >= 0 && len(m.sends) >= m.failSendAfter {
		return domain.MessageRef{}, errors.New("forbidden: bot was blocked by the user")
	}
	m.nextID++
	m.sends = append(m.sends, sent{To: to, Text: text})
	return domain.MessageRef{ChatID: to, MessageID: m.nextID}, nil
}

func (m *fakeMessenger) Edit(_ context.Context, ref domain.MessageRef, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEdit {
		return errors.New("message to edit not found")
	}
	m.edits = append(m.edits, edited{Ref: ref, Text: text})
	return nil
}

func (m *fakeMessenger) Sends() []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sent(nil), m.sends...)
}

func (m *fakeMessenger) Edits() []edited {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]edited(nil), m.edits...)
}

// fakeProvider answers from a function and counts calls.
type fakeProvider struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, q string) (string, error)
}

func (p *fakeProvider) Answer(ctx context.Context, q string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.fn(ctx, q)
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func answerWith(text string) *fakeProvider {
	return &fakeProvider{fn: func(context.Context, string) (string, error) { return text, nil }}
}

func failWith(err error) *fakeProvider {
	return &fakeProvider{fn: func(context.Context, string) (string, error) { return "", err }}
}

// failingStore returns err from every operation.
type failingStore struct{ err error }

func (s failingStore) Create(context.Context, string, string) (domain.Reservation, error) {
	return domain.Reservation{}, s.err
}
func (s failingStore) Get(context.Context, string) (domain.Reservation, error) {
	return domain.Reservation{}, s.err
}
func (s failingStore) MarkReady(context.Context, string, string) (domain.Reservation, error) {
	return domain.Reservation{}, s.err
}
func (s failingStore) MarkFailed(context.Context, string, string) (domain.Reservation, error) {
	return domain.Reservation{}, s.err
}
func (s failingStore) AssignSelector(context.Context, string, string) (domain.Reservation, error) {
	return domain.Reservation{}, s.err
}
func (s failingStore) AttachMessage(context.Context, string, domain.MessageRef) (domain.Reservation, error) {
	return domain.Reservation{}, s.err
}

var errBoom = fmt.Errorf("boom")
