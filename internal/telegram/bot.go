// Package telegram answers photos of handwritten equations and typed
// expressions in Telegram chats.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/normalize"
	"github.com/inkmath/equation-solver/internal/ocr"
	"github.com/inkmath/equation-solver/internal/session"
	"github.com/inkmath/equation-solver/internal/solver"
)

var log = logrus.WithField("component", "telegram")

const helpText = "Send a photo of a handwritten equation and I will solve it.\n" +
	"You can also type an expression, e.g. 2x+3=7.\n" +
	"Commands: /help, /clear"

// API is the part of tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot routes updates. Each chat has its own session, so a second photo
// sent while the first is still being read is rejected as busy.
type Bot struct {
	API        API
	Pipeline   *session.Pipeline
	Normalizer *normalize.Normalizer
	Solver     *solver.Solver
	HTTPClient *http.Client

	chats *session.Manager
}

type chat struct {
	surface *session.ImageSurface
	session *session.Session
}

// New creates a bot around an API client and a pipeline. Chat sessions are
// bounded by limits.
func New(api API, pipeline *session.Pipeline, limits models.SessionsConfig) *Bot {
	return &Bot{
		API:        api,
		Pipeline:   pipeline,
		Normalizer: pipeline.Normalizer,
		Solver:     pipeline.Solver,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		chats:      session.NewManager(limits),
	}
}

func (b *Bot) chat(id int64) chat {
	s := b.chats.GetOrCreate(fmt.Sprintf("chat-%d", id), func(sid string) *session.Session {
		return session.New(sid, session.NewImageSurface(nil), b.Pipeline)
	})
	return chat{surface: s.Surface().(*session.ImageSurface), session: s}
}

// HandleUpdate answers one update
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		b.handleCommand(cid, msg.Command())
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, cid, msg.Photo[len(msg.Photo)-1].FileID)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		b.handlePhoto(ctx, cid, msg.Document.FileID)
	case strings.TrimSpace(msg.Text) != "":
		b.send(cid, b.SolveText(msg.Text))
	}
}

func (b *Bot) handleCommand(cid int64, cmd string) {
	switch cmd {
	case "start", "help":
		b.send(cid, helpText)
	case "clear":
		b.chat(cid).session.Clear()
		b.send(cid, "Cleared.")
	default:
		b.send(cid, "Unknown command. "+helpText)
	}
}

func (b *Bot) handlePhoto(ctx context.Context, cid int64, fileID string) {
	url, err := b.API.GetFileDirectURL(fileID)
	if err != nil {
		b.sendError(cid, err)
		return
	}
	data, err := b.download(ctx, url)
	if err != nil {
		b.sendError(cid, err)
		return
	}
	img, err := ocr.DecodeImage(data)
	if err != nil {
		b.send(cid, session.UserMessage(models.AsFailure(err, models.InputError)))
		return
	}

	c := b.chat(cid)
	if c.session.Running() {
		b.send(cid, "Still working on your previous picture, please wait.")
		return
	}
	c.surface.Load(img)
	b.send(cid, "Solving...")

	st, err := c.session.Solve(ctx)
	switch {
	case errors.Is(err, session.ErrBusy):
		b.send(cid, "Still working on your previous picture, please wait.")
	case errors.Is(err, session.ErrSuperseded):
		// cleared while solving; nothing to report
	case err != nil:
		b.sendError(cid, err)
	default:
		b.send(cid, FormatState(st))
	}
}

// SolveText normalizes and solves a typed expression
func (b *Bot) SolveText(text string) string {
	expr := b.Normalizer.Normalize(text)
	if expr == "" {
		return session.UserMessage(models.NewFailure(models.ParseError, "nothing recognizable to solve"))
	}
	result := b.Solver.Solve(expr)
	if result.Failure != nil {
		return session.UserMessage(result.Failure)
	}
	return fmt.Sprintf("%s\n%s", expr, result.String())
}

// FormatState renders a finished attempt as a chat reply
func FormatState(st session.State) string {
	if st.Phase != session.Done {
		return st.Message
	}
	var sb strings.Builder
	if st.Expression != "" {
		fmt.Fprintf(&sb, "Read: %s\n", st.Expression)
	}
	if st.Result != nil {
		sb.WriteString(st.Result.String())
	} else {
		sb.WriteString(st.Solution)
	}
	return sb.String()
}

func (b *Bot) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("download: status %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 20<<20))
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.API.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithField("chat", chatID).Warnf("send failed: %v", err)
	}
}

func (b *Bot) sendError(chatID int64, err error) {
	log.WithField("chat", chatID).Error(err)
	b.send(chatID, "Something went wrong, please try again.")
}
