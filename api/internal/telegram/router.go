package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calc-be/api/internal/calc"
)

// Bot is the part of *tgbotapi.BotAPI the router talks to.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot        Bot
	EngManager *calc.Manager
	Engines    *calc.Engines
	Analyzer   *calc.Analyzer
	Vars       *VarStore
	Log        *slog.Logger

	// HTTP downloads photos; nil means a client with a 60s timeout.
	HTTP *http.Client
	// Timeout bounds one photo analysis; zero means 60s.
	Timeout time.Duration
}

const helpText = "Send a photo of a handwritten expression and I will solve it.\n" +
	"Assignments like x = 5 are remembered for this chat.\n\n" +
	"Commands:\n" +
	"/vars - show saved variables\n" +
	"/set <name> <value> - save a variable\n" +
	"/reset - forget all variables\n" +
	"/engine [gemini|gpt] - show or switch the model\n" +
	"/health - check the bot"

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}
	if len(msg.Photo) > 0 {
		r.acceptPhoto(ctx, msg)
		return
	}
	if strings.TrimSpace(msg.Text) != "" {
		r.send(msg.Chat.ID, "Send me a photo of the expression. /start shows the commands.")
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "vars":
		r.send(cid, formatVars(r.Vars.Snapshot(cid)))
	case "reset":
		r.Vars.Reset(cid)
		r.send(cid, "🧹 Variables cleared.")
	case "set":
		name, value, err := parseSet(msg.CommandArguments())
		if err != nil {
			r.send(cid, err.Error())
			return
		}
		r.Vars.Set(cid, name, value)
		r.send(cid, fmt.Sprintf("💾 %s = %v", name, value))
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Unknown command. /start shows the list.")
	}
}

// handleEngineCommand shows or switches the engine of one chat.
//
//	/engine
//	/engine gemini
//	/engine gpt
func (r *Router) handleEngineCommand(chatID int64, args string) {
	name := strings.TrimSpace(args)
	if name == "" {
		cur := "none"
		if e := r.EngManager.Get(chatID); e != nil {
			cur = e.Name() + " (" + e.GetModel() + ")"
		}
		r.send(chatID, "Current engine: "+cur+"\nAvailable: "+strings.Join(r.Engines.Names(), " | "))
		return
	}
	eng, err := r.Engines.GetEngine(name)
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	r.EngManager.Set(chatID, eng)
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+eng.GetModel()+").")
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger().Warn("telegram send failed", "chat", chatID, "err", err)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, "⚠️ "+err.Error())
}

func (r *Router) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
