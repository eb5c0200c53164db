// Package telegram hosts the Telegram client: long polling, update routing to
// the diary dispatcher, and reply delivery.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"kcal_tracker_bot/internal/config"
	"kcal_tracker_bot/internal/feature/diary"
	"kcal_tracker_bot/internal/logging"
)

type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

type updateHandler interface {
	Handle(ctx context.Context, in diary.Inbound) []diary.Reply
}

const (
	updateWorkers = 1
	// updateTimeout bounds one update's store work and replies. It outlives
	// polling cancellation so an in-flight update still gets its answer.
	updateTimeout = 8 * time.Second
)

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"callback_query",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Option customizes a Client.
type Option func(*Client)

// WithHandler routes text messages and callback payloads to handler.
func WithHandler(handler updateHandler) Option {
	return func(c *Client) {
		c.handler = handler
	}
}

// Client wraps the Telegram bot instance and logging dependencies.
type Client struct {
	bot     botAPI
	handler updateHandler
	logger  *logrus.Entry
}

// NewClient initializes the Telegram bot with long polling and the update
// router. Updates are handled one at a time in arrival order.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithNotAsyncHandlers(),
		bot.WithWorkers(updateWorkers),
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}
	client.bot = tgBot

	return client, nil
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// Send delivers reply to chatID, attaching inline buttons when present.
func (c *Client) Send(ctx context.Context, chatID int64, reply diary.Reply) error {
	if c == nil || c.bot == nil {
		return errors.New("telegram client is not initialized")
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply.Text,
	}
	if reply.HTML {
		params.ParseMode = models.ParseModeHTML
	}
	if len(reply.Buttons) > 0 {
		params.ReplyMarkup = inlineKeyboard(reply.Buttons)
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

type updateMeta struct {
	userID     int64
	chatID     int64
	text       string
	callbackID string
	updateType string
}

func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), updateTimeout)
	defer cancel()

	meta := extractUpdateMeta(update)

	logger := logging.Scoped(c.logger, logging.Context{UserID: meta.userID, ChatID: meta.chatID})
	fields := logging.Fields{
		"event":       "telegram_update",
		"update_type": meta.updateType,
	}
	if meta.text != "" {
		fields["text"] = meta.text
	}
	logger.WithFields(fields).Info("telegram update received")

	if meta.callbackID != "" {
		c.answerCallback(ctx, meta.callbackID)
	}

	if c.handler == nil || meta.userID == 0 || meta.text == "" {
		return
	}

	chatID := meta.chatID
	if chatID == 0 {
		chatID = meta.userID
	}

	replies := c.handler.Handle(ctx, diary.Inbound{
		UserID:   meta.userID,
		Text:     meta.text,
		Callback: meta.callbackID != "",
	})

	for _, reply := range replies {
		if err := c.Send(ctx, chatID, reply); err != nil {
			logging.Scoped(logger, logging.Context{ChatID: chatID, Event: "telegram_send_error"}).
				WithError(err).Error("failed to deliver reply")
		}
	}
}

func (c *Client) answerCallback(ctx context.Context, callbackID string) {
	if c.bot == nil {
		return
	}

	if _, err := c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID}); err != nil {
		c.logger.WithField("event", "telegram_callback_error").WithError(err).Warn("failed to answer callback query")
	}
}

func inlineKeyboard(buttons []diary.Button) *models.InlineKeyboardMarkup {
	row := make([]models.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, models.InlineKeyboardButton{
			Text:         b.Label,
			CallbackData: b.Command,
		})
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{row},
	}
}

func extractUpdateMeta(update *models.Update) updateMeta {
	switch {
	case update.Message != nil:
		return updateMeta{
			userID:     userID(update.Message.From),
			chatID:     chatID(&update.Message.Chat),
			text:       strings.TrimSpace(update.Message.Text),
			updateType: "message",
		}
	case update.CallbackQuery != nil:
		return updateMeta{
			userID:     userID(&update.CallbackQuery.From),
			chatID:     messageChatID(update.CallbackQuery.Message),
			text:       strings.TrimSpace(update.CallbackQuery.Data),
			callbackID: update.CallbackQuery.ID,
			updateType: "callback_query",
		}
	default:
		return updateMeta{updateType: "unknown"}
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}

func userID(user *models.User) int64 {
	if user == nil {
		return 0
	}

	return user.ID
}

func chatID(chat *models.Chat) int64 {
	if chat == nil {
		return 0
	}

	return chat.ID
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return chatID(&msg.Message.Chat)
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return chatID(&msg.InaccessibleMessage.Chat)
	default:
		return 0
	}
}
