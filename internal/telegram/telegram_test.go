package telegram

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"kcal_tracker_bot/internal/config"
	"kcal_tracker_bot/internal/feature/diary"
)

type fakeBot struct {
	startedWith context.Context
	sent        []*bot.SendMessageParams
	answered    []string
	sendErr     error
}

func (f *fakeBot) Start(ctx context.Context) {
	f.startedWith = ctx
}

func (f *fakeBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.sent = append(f.sent, params)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &models.Message{}, nil
}

func (f *fakeBot) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.answered = append(f.answered, params.CallbackQueryID)
	return true, nil
}

type fakeHandler struct {
	got     []diary.Inbound
	replies []diary.Reply
}

func (f *fakeHandler) Handle(_ context.Context, in diary.Inbound) []diary.Reply {
	f.got = append(f.got, in)
	return f.replies
}

type ctxRecordingHandler struct {
	ctxErr      error
	hasDeadline bool
}

func (h *ctxRecordingHandler) Handle(ctx context.Context, _ diary.Inbound) []diary.Reply {
	h.ctxErr = ctx.Err()
	_, h.hasDeadline = ctx.Deadline()
	return []diary.Reply{{Text: "ok"}}
}

func newTestClient(b *fakeBot, h updateHandler) (*Client, *logtest.Hook) {
	hookLogger, hook := logtest.NewNullLogger()
	return &Client{
		bot:     b,
		handler: h,
		logger:  logrus.NewEntry(hookLogger),
	}, hook
}

func TestNewClientCreatesBot(t *testing.T) {
	origCreateBot := createBot
	defer func() { createBot = origCreateBot }()

	var gotToken string
	var gotOptions []bot.Option
	b := &fakeBot{}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		gotToken = token
		gotOptions = options
		return b, nil
	}

	cfg := config.Config{TelegramToken: "token-123"}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &fakeHandler{}
	client, err := NewClient(cfg, logrus.NewEntry(logger), WithHandler(h))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if client == nil || client.bot == nil {
		t.Fatalf("expected client and bot to be initialized")
	}
	if client.handler != h {
		t.Fatalf("expected handler option to be applied")
	}

	if gotToken != cfg.TelegramToken {
		t.Fatalf("expected token %q, got %q", cfg.TelegramToken, gotToken)
	}

	if len(gotOptions) != 5 {
		t.Fatalf("expected 5 bot options (sync handlers, workers, allowed updates, default handler, error handler), got %d", len(gotOptions))
	}

	applied := &bot.Bot{}
	for _, opt := range gotOptions {
		opt(applied)
	}
	fields := reflect.ValueOf(applied).Elem()
	if !fields.FieldByName("notAsyncHandlers").Bool() {
		t.Fatalf("expected updates to be handled synchronously")
	}
	if workers := fields.FieldByName("workers").Int(); workers != updateWorkers {
		t.Fatalf("expected %d update worker, got %d", updateWorkers, workers)
	}
}

func TestHandleUpdateOutlivesPollingCancellation(t *testing.T) {
	fb := &fakeBot{}
	h := &ctxRecordingHandler{}
	client, _ := newTestClient(fb, h)

	pollCtx, cancel := context.WithCancel(context.Background())
	cancel()

	client.handleUpdate(pollCtx, nil, &models.Update{
		Message: &models.Message{
			From: &models.User{ID: 5},
			Chat: models.Chat{ID: 5},
			Text: "/stat",
		},
	})

	if h.ctxErr != nil {
		t.Fatalf("expected handler context to stay live after polling stopped, got %v", h.ctxErr)
	}
	if !h.hasDeadline {
		t.Fatalf("expected handler context to carry a deadline")
	}
	if len(fb.sent) != 1 {
		t.Fatalf("expected reply to be delivered, got %d sends", len(fb.sent))
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(config.Config{TelegramToken: "  "}, nil); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestNewClientPropagatesBotError(t *testing.T) {
	origCreateBot := createBot
	defer func() { createBot = origCreateBot }()

	expected := errors.New("boom")
	createBot = func(string, ...bot.Option) (botAPI, error) {
		return nil, expected
	}

	_, err := NewClient(config.Config{TelegramToken: "token"}, nil)
	if !errors.Is(err, expected) {
		t.Fatalf("expected error %v, got %v", expected, err)
	}
}

func TestClientStartLogsAndUsesContext(t *testing.T) {
	fb := &fakeBot{}
	client, hook := newTestClient(fb, nil)

	ctx := context.Background()
	client.Start(ctx)

	if fb.startedWith != ctx {
		t.Fatalf("expected bot to start with provided context")
	}

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries (start/stop), got %d", len(entries))
	}

	if entries[0].Data["event"] != "telegram_listen" {
		t.Fatalf("expected start log event, got %v", entries[0].Data["event"])
	}
	if entries[1].Data["event"] != "telegram_stopped" {
		t.Fatalf("expected stop log event, got %v", entries[1].Data["event"])
	}
}

func TestExtractUpdateMeta(t *testing.T) {
	tests := []struct {
		name   string
		update *models.Update
		want   updateMeta
	}{
		{
			name: "message",
			update: &models.Update{
				Message: &models.Message{
					From: &models.User{ID: 10},
					Chat: models.Chat{ID: 20},
					Text: " /add tea ",
				},
			},
			want: updateMeta{userID: 10, chatID: 20, text: "/add tea", updateType: "message"},
		},
		{
			name: "callback query",
			update: &models.Update{
				CallbackQuery: &models.CallbackQuery{
					ID:   "cb-1",
					From: models.User{ID: 12},
					Data: "/stat",
					Message: models.MaybeInaccessibleMessage{
						Type: models.MaybeInaccessibleMessageTypeMessage,
						Message: &models.Message{
							Chat: models.Chat{ID: 22},
						},
					},
				},
			},
			want: updateMeta{userID: 12, chatID: 22, text: "/stat", callbackID: "cb-1", updateType: "callback_query"},
		},
		{
			name: "callback on inaccessible message",
			update: &models.Update{
				CallbackQuery: &models.CallbackQuery{
					ID:   "cb-2",
					From: models.User{ID: 13},
					Data: "/daystat",
					Message: models.MaybeInaccessibleMessage{
						Type: models.MaybeInaccessibleMessageTypeInaccessibleMessage,
						InaccessibleMessage: &models.InaccessibleMessage{
							Chat: models.Chat{ID: 23},
						},
					},
				},
			},
			want: updateMeta{userID: 13, chatID: 23, text: "/daystat", callbackID: "cb-2", updateType: "callback_query"},
		},
		{
			name: "edited message ignored",
			update: &models.Update{
				EditedMessage: &models.Message{
					From: &models.User{ID: 11},
					Chat: models.Chat{ID: 21},
					Text: "updated",
				},
			},
			want: updateMeta{updateType: "unknown"},
		},
		{
			name:   "unknown",
			update: &models.Update{},
			want:   updateMeta{updateType: "unknown"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := extractUpdateMeta(tt.update)
			if got != tt.want {
				t.Fatalf("extractUpdateMeta() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHandleUpdateLogsAndRoutesMessage(t *testing.T) {
	fb := &fakeBot{}
	h := &fakeHandler{replies: []diary.Reply{
		{Text: "Added #1: tea, 5 kcal"},
		{Text: "<pre>table</pre>", HTML: true, Buttons: []diary.Button{{Label: "Today", Command: "/stat"}}},
	}}
	client, hook := newTestClient(fb, h)

	client.handleUpdate(context.Background(), nil, &models.Update{
		Message: &models.Message{
			From: &models.User{ID: 99},
			Chat: models.Chat{ID: 199},
			Text: "/add tea, 5",
		},
	})

	entry := hook.AllEntries()[0]
	if entry.Data["event"] != "telegram_update" {
		t.Fatalf("expected event=telegram_update, got %v", entry.Data["event"])
	}
	if entry.Data["user_id"] != int64(99) || entry.Data["chat_id"] != int64(199) {
		t.Fatalf("expected user_id=99 and chat_id=199, got user_id=%v chat_id=%v", entry.Data["user_id"], entry.Data["chat_id"])
	}
	if entry.Data["update_type"] != "message" {
		t.Fatalf("expected update_type=message, got %v", entry.Data["update_type"])
	}

	if len(h.got) != 1 {
		t.Fatalf("expected handler to be called once, got %d", len(h.got))
	}
	if in := h.got[0]; in.UserID != 99 || in.Text != "/add tea, 5" || in.Callback {
		t.Fatalf("unexpected inbound: %+v", in)
	}

	if len(fb.sent) != 2 {
		t.Fatalf("expected 2 messages sent, got %d", len(fb.sent))
	}
	if fb.sent[0].ChatID != int64(199) || fb.sent[0].ParseMode != "" || fb.sent[0].ReplyMarkup != nil {
		t.Fatalf("unexpected plain message params: %+v", fb.sent[0])
	}
	if fb.sent[1].ParseMode != models.ParseModeHTML {
		t.Fatalf("expected HTML parse mode, got %q", fb.sent[1].ParseMode)
	}
	markup, ok := fb.sent[1].ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", fb.sent[1].ReplyMarkup)
	}
	if len(markup.InlineKeyboard) != 1 || markup.InlineKeyboard[0][0].CallbackData != "/stat" {
		t.Fatalf("unexpected keyboard: %+v", markup.InlineKeyboard)
	}
}

func TestHandleUpdateAnswersCallback(t *testing.T) {
	fb := &fakeBot{}
	h := &fakeHandler{replies: []diary.Reply{{Text: "ok"}}}
	client, _ := newTestClient(fb, h)

	client.handleUpdate(context.Background(), nil, &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-9",
			From: models.User{ID: 7},
			Data: "/longstat",
		},
	})

	if len(fb.answered) != 1 || fb.answered[0] != "cb-9" {
		t.Fatalf("expected callback cb-9 to be answered, got %v", fb.answered)
	}
	if len(h.got) != 1 || !h.got[0].Callback || h.got[0].Text != "/longstat" {
		t.Fatalf("unexpected inbound: %+v", h.got)
	}
	if len(fb.sent) != 1 || fb.sent[0].ChatID != int64(7) {
		t.Fatalf("expected reply to fall back to user chat, got %+v", fb.sent)
	}
}

func TestHandleUpdateLogsSendError(t *testing.T) {
	fb := &fakeBot{sendErr: errors.New("forbidden")}
	h := &fakeHandler{replies: []diary.Reply{{Text: "ok"}}}
	client, hook := newTestClient(fb, h)

	client.handleUpdate(context.Background(), nil, &models.Update{
		Message: &models.Message{
			From: &models.User{ID: 5},
			Chat: models.Chat{ID: 5},
			Text: "/stat",
		},
	})

	entry := hook.LastEntry()
	if entry == nil || entry.Data["event"] != "telegram_send_error" {
		t.Fatalf("expected telegram_send_error log, got %+v", entry)
	}
	if entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected error level, got %v", entry.Level)
	}
}

func TestHandleUpdateSkipsEmptyText(t *testing.T) {
	fb := &fakeBot{}
	h := &fakeHandler{}
	client, _ := newTestClient(fb, h)

	client.handleUpdate(context.Background(), nil, &models.Update{
		Message: &models.Message{
			From: &models.User{ID: 5},
			Chat: models.Chat{ID: 5},
		},
	})

	if len(h.got) != 0 {
		t.Fatalf("expected handler not to be called for empty text")
	}
}

func TestErrorHandlerLogs(t *testing.T) {
	hookLogger, hook := logtest.NewNullLogger()
	handle := errorHandler(logrus.NewEntry(hookLogger))

	handle(nil)
	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected nil error to be ignored")
	}

	handle(errors.New("poll failed"))
	entry := hook.LastEntry()
	if entry == nil || entry.Data["event"] != "telegram_error" {
		t.Fatalf("expected telegram_error log, got %+v", entry)
	}
}
