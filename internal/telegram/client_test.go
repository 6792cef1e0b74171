package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-inline-answer-bot/internal/domain"
	"github.com/tbourn/go-inline-answer-bot/internal/services"
)

type fakeBot struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	sendErr   error
	reqErr    error
	nextID    int
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.sendErr != nil {
		return tgbotapi.Message{}, b.sendErr
	}
	b.sent = append(b.sent, c)
	b.nextID++
	return tgbotapi.Message{MessageID: b.nextID}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if b.reqErr != nil {
		return nil, b.reqErr
	}
	b.requested = append(b.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestClient_Send(t *testing.T) {
	bot := &fakeBot{}
	ref, err := NewClient(bot, 0).Send(context.Background(), "12345", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ref != (domain.MessageRef{ChatID: "12345", MessageID: 1}) {
		t.Fatalf("ref = %+v", ref)
	}
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	if !ok || msg.ChatID != 12345 || msg.Text != "hello" || !msg.DisableWebPagePreview {
		t.Fatalf("message unexpected: %#v", bot.sent[0])
	}
}

func TestClient_SendErrors(t *testing.T) {
	c := NewClient(&fakeBot{sendErr: errors.New("Forbidden: bot was blocked")}, 0)
	if _, err := c.Send(context.Background(), "1", "x"); err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Fatalf("want transport error, got %v", err)
	}
	if _, err := c.Send(context.Background(), "not-a-number", "x"); err == nil {
		t.Fatalf("want invalid id error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient(&fakeBot{}, 0).Send(ctx, "1", "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context error, got %v", err)
	}
}

func TestClient_Edit(t *testing.T) {
	bot := &fakeBot{}
	if err := NewClient(bot, 0).Edit(context.Background(), domain.MessageRef{ChatID: "7", MessageID: 9}, "new"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	edit, ok := bot.requested[0].(tgbotapi.EditMessageTextConfig)
	if !ok || edit.ChatID != 7 || edit.MessageID != 9 || edit.Text != "new" {
		t.Fatalf("edit unexpected: %#v", bot.requested[0])
	}
}

func TestClient_EditNotModifiedIsSuccess(t *testing.T) {
	bot := &fakeBot{reqErr: errors.New("Bad Request: message is not modified")}
	if err := NewClient(bot, 0).Edit(context.Background(), domain.MessageRef{ChatID: "7", MessageID: 9}, "same"); err != nil {
		t.Fatalf("not-modified should be ignored, got %v", err)
	}

	bot.reqErr = errors.New("Bad Request: message to edit not found")
	if err := NewClient(bot, 0).Edit(context.Background(), domain.MessageRef{ChatID: "7", MessageID: 9}, "x"); err == nil {
		t.Fatalf("want edit error")
	}
}

func TestClient_AnswerInline(t *testing.T) {
	bot := &fakeBot{}
	results := []services.InlineResult{{ID: "rid", Title: "T", Description: "D", MessageText: "M"}}
	if err := NewClient(bot, 0).AnswerInline(context.Background(), "qid", results); err != nil {
		t.Fatalf("AnswerInline: %v", err)
	}
	cfg, ok := bot.requested[0].(tgbotapi.InlineConfig)
	if !ok || cfg.InlineQueryID != "qid" || cfg.CacheTime != 0 || !cfg.IsPersonal || len(cfg.Results) != 1 {
		t.Fatalf("inline config unexpected: %#v", bot.requested[0])
	}
	art, ok := cfg.Results[0].(tgbotapi.InlineQueryResultArticle)
	if !ok || art.ID != "rid" || art.Title != "T" || art.Description != "D" {
		t.Fatalf("article unexpected: %#v", cfg.Results[0])
	}

	bot.reqErr = errors.New("query is too old")
	if err := NewClient(bot, 0).AnswerInline(context.Background(), "qid", results); err == nil {
		t.Fatalf("want error")
	}
}

func TestIdentity(t *testing.T) {
	if identity(nil) != "" {
		t.Fatalf("nil user should map to empty identity")
	}
	if got := identity(&tgbotapi.User{ID: 987654321012}); got != "987654321012" {
		t.Fatalf("identity = %q", got)
	}
}
