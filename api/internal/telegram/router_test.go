package telegram

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calc-be/api/internal/calc"
)

type fakeBot struct {
	mu    sync.Mutex
	sent  []string
	files string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	if b.files == "" {
		return "", errors.New("no file server")
	}
	return b.files + "/" + fileID, nil
}

func (b *fakeBot) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		return ""
	}
	return b.sent[len(b.sent)-1]
}

type scriptEngine struct {
	name    string
	replies []string
	prompts []string
}

func (e *scriptEngine) Name() string     { return e.name }
func (e *scriptEngine) GetModel() string { return e.name + "-test" }
func (e *scriptEngine) Complete(_ context.Context, prompt string, _ []byte, _ string) (string, error) {
	e.prompts = append(e.prompts, prompt)
	if len(e.replies) == 0 {
		return "", errors.New("out of replies")
	}
	r := e.replies[0]
	e.replies = e.replies[1:]
	return r, nil
}

func newRouter(t *testing.T, gem, gpt calc.Engine) (*Router, *fakeBot) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	engs := &calc.Engines{Gemini: gem, OpenAI: gpt, Default: "gemini"}
	def, _ := engs.GetEngine("")
	bot := &fakeBot{}
	return &Router{
		Bot:        bot,
		EngManager: calc.NewManager(def),
		Engines:    engs,
		Analyzer:   calc.NewAnalyzer(calc.WithLogger(quiet)),
		Vars:       NewVarStore(),
		Log:        quiet,
	}, bot
}

func command(chatID int64, text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func photo(chatID int64, fileID string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: chatID},
		Photo: []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: fileID}},
	}}
}

func fileServer(t *testing.T) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1200, 600))))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/big" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_PhotoBindsAndReusesVariables(t *testing.T) {
	gem := &scriptEngine{name: "gemini", replies: []string{
		"[{'expr': 'x', 'result': '5', 'assign': True}]",
		"[{'expr': 'x + 1', 'result': '6'}]",
	}}
	r, bot := newRouter(t, gem, nil)
	bot.files = fileServer(t).URL
	ctx := context.Background()

	r.HandleUpdate(ctx, photo(7, "big"))
	assert.Equal(t, "x = 5\n\n💾 Saved: x", bot.last())

	r.HandleUpdate(ctx, photo(7, "big"))
	assert.Equal(t, "x + 1 = 6", bot.last())

	require.Len(t, gem.prompts, 2)
	assert.Contains(t, gem.prompts[0], "Variables: {}")
	assert.Contains(t, gem.prompts[1], `Variables: {"x":"5"}`)
}

func TestRouter_PhotoFailures(t *testing.T) {
	gem := &scriptEngine{name: "gemini", replies: []string{"I cannot read that"}}
	r, bot := newRouter(t, gem, nil)
	ctx := context.Background()

	r.HandleUpdate(ctx, photo(1, "big"))
	assert.Contains(t, bot.last(), "get file")

	bot.files = fileServer(t).URL
	r.HandleUpdate(ctx, photo(1, "missing"))
	assert.Contains(t, bot.last(), "download: status 404")

	r.HandleUpdate(ctx, photo(1, "big"))
	assert.True(t, strings.HasPrefix(bot.last(), "⚠️ Parsing Error"), bot.last())
	assert.Empty(t, r.Vars.Snapshot(1))
}

func TestRouter_Commands(t *testing.T) {
	gem := &scriptEngine{name: "gemini"}
	gpt := &scriptEngine{name: "gpt"}
	r, bot := newRouter(t, gem, gpt)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(3, "/start"))
	assert.Contains(t, bot.last(), "/vars")

	r.HandleUpdate(ctx, command(3, "/set r 2"))
	assert.Equal(t, "💾 r = 2", bot.last())
	r.HandleUpdate(ctx, command(3, "/vars"))
	assert.Equal(t, "r = 2", bot.last())
	r.HandleUpdate(ctx, command(3, "/set"))
	assert.Equal(t, errSetUsage.Error(), bot.last())

	r.HandleUpdate(ctx, command(3, "/reset"))
	r.HandleUpdate(ctx, command(3, "/vars"))
	assert.Contains(t, bot.last(), "No variables yet")

	r.HandleUpdate(ctx, command(3, "/engine"))
	assert.Equal(t, "Current engine: gemini (gemini-test)\nAvailable: gemini | gpt", bot.last())
	r.HandleUpdate(ctx, command(3, "/engine gpt"))
	assert.Equal(t, "✅ Engine: gpt (gpt-test).", bot.last())
	assert.Same(t, gpt, r.EngManager.Get(3))
	assert.Same(t, gem, r.EngManager.Get(4), "other chats keep the default")
	r.HandleUpdate(ctx, command(3, "/engine yandex"))
	assert.Contains(t, bot.last(), "unknown llm_name")
	assert.Same(t, gpt, r.EngManager.Get(3))

	r.HandleUpdate(ctx, command(3, "/nope"))
	assert.Contains(t, bot.last(), "Unknown command")
}

func TestRouter_IgnoresEmptyUpdates(t *testing.T) {
	r, bot := newRouter(t, &scriptEngine{name: "gemini"}, nil)
	r.HandleUpdate(context.Background(), tgbotapi.Update{})
	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}})
	assert.Empty(t, bot.sent)

	r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "hi"}})
	assert.Contains(t, bot.last(), "Send me a photo")
}
