// Package telegram adapts the Telegram Bot API to the service layer: it
// implements services.Messenger, answers inline queries, and dispatches
// updates from long polling to the inline and selection services.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-inline-answer-bot/internal/config"
	"github.com/tbourn/go-inline-answer-bot/internal/domain"
	"github.com/tbourn/go-inline-answer-bot/internal/services"
)

// botAPI is the subset of *tgbotapi.BotAPI the client calls.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client sends private messages and inline answers. Identities are
// Telegram user ids in decimal; a user's private chat id equals their id.
type Client struct {
	api       botAPI
	cacheTime int
}

var _ services.Messenger = (*Client)(nil)

// NewClient wraps api. cacheTime is the inline answer cache_time in seconds.
func NewClient(api botAPI, cacheTime int) *Client {
	return &Client{api: api, cacheTime: cacheTime}
}

// Connect authenticates with the Bot API.
func Connect(cfg config.BotConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

// Updates starts long polling for the two update kinds the bot handles.
// Stop with bot.StopReceivingUpdates.
func Updates(bot *tgbotapi.BotAPI, pollTimeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	u.AllowedUpdates = []string{"inline_query", "chosen_inline_result"}
	return bot.GetUpdatesChan(u)
}

// Send delivers text to the private chat of identity to.
func (c *Client) Send(ctx context.Context, to, text string) (domain.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.MessageRef{}, err
	}
	chatID, err := parseID(to)
	if err != nil {
		return domain.MessageRef{}, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	sent, err := c.api.Send(msg)
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("telegram: send: %w", err)
	}
	return domain.MessageRef{ChatID: to, MessageID: sent.MessageID}, nil
}

// Edit replaces the text of an existing message. Re-sending identical text
// is not an error.
func (c *Client) Edit(ctx context.Context, ref domain.MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := parseID(ref.ChatID)
	if err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, ref.MessageID, text)
	edit.DisableWebPagePreview = true
	if _, err := c.api.Request(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("telegram: edit: %w", err)
	}
	return nil
}

// AnswerInline answers inline query queryID with article results. Answers
// are personal and uncached by default so each user gets a fresh
// reservation.
func (c *Client) AnswerInline(ctx context.Context, queryID string, results []services.InlineResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items := make([]interface{}, 0, len(results))
	for _, r := range results {
		art := tgbotapi.NewInlineQueryResultArticle(r.ID, r.Title, r.MessageText)
		art.Description = r.Description
		items = append(items, art)
	}
	_, err := c.api.Request(tgbotapi.InlineConfig{
		InlineQueryID: queryID,
		Results:       items,
		CacheTime:     c.cacheTime,
		IsPersonal:    true,
	})
	if err != nil {
		return fmt.Errorf("telegram: answer inline: %w", err)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: invalid chat id %q: %w", s, err)
	}
	return id, nil
}

// identity renders a Telegram user as a service identity.
func identity(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return strconv.FormatInt(u.ID, 10)
}
