package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haukened/blockwatch/internal/watch/common/log"
	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/repos/sessions"
	"github.com/haukened/blockwatch/internal/watch/services/intake"
)

const (
	msgUnauthorized  = "❌ You are not authorized to use this bot."
	msgPromptMain    = "Please send the main domain to add (e.g., example.com):"
	msgPromptAlt     = "Please send the alternative domain to add (e.g., example.net):"
	msgAdded         = "✅ Domain %s added to %s list!"
	msgAlreadyBlock  = "⚠️ Warning: Domain %s is currently blocked!"
	msgInvalidDomain = "❌ Error: %v\nPlease send a valid domain (e.g., example.com)"
	msgCancelled     = "Cancelled."

	cbAddMain = "add_main"
	cbAddAlt  = "add_alt"
	cbList    = "list_domains"

	defaultPollTimeout = 30 * time.Second
)

// pollRetryDelay is the pause after a failed getUpdates call.
var pollRetryDelay = 3 * time.Second

// API is the part of the Bot API the bot loop uses. *Client implements it.
type API interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Intake adds domains and lists them.
type Intake interface {
	Add(ctx context.Context, list domain.List, raw string) (intake.Result, error)
	Snapshot() domain.Snapshot
}

// Sessions holds the per-operator "awaiting a domain" state.
type Sessions interface {
	Await(operatorID int64, list domain.List)
	Take(operatorID int64) (sessions.Session, bool)
	Clear(operatorID int64)
}

type BotOptions struct {
	API           API
	Intake        Intake
	Sessions      Sessions
	// IsOperator is the allow-list. A nil func rejects everyone.
	IsOperator    func(id int64) bool
	CheckInterval time.Duration
	PollTimeout   time.Duration
	Logger        log.Logger
}

// Bot handles operator commands, inline buttons and domain input.
type Bot struct {
	api       API
	intake    Intake
	sessions  Sessions
	allowed   func(id int64) bool
	interval  time.Duration
	poll      time.Duration
	logger    log.Logger
}

func NewBot(opts BotOptions) *Bot {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Bot{
		api:       opts.API,
		intake:    opts.Intake,
		sessions:  opts.Sessions,
		allowed:   opts.IsOperator,
		interval:  opts.CheckInterval,
		poll:      opts.PollTimeout,
		logger:    opts.Logger,
	}
}

// Run long-polls for updates until ctx is done. Poll failures are logged
// and retried after a short pause.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info(map[string]any{"poll_timeout": b.poll.String()}, "telegram bot started")

	var offset int64
	for {
		if ctx.Err() != nil {
			b.logger.Info(nil, "telegram bot stopped")
			return nil
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.poll)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.logger.Warn(map[string]any{"error": err}, "telegram poll failed")
			select {
			case <-ctx.Done():
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

func (b *Bot) isOperator(id int64) bool {
	return b.allowed != nil && b.allowed(id)
}

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, u Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.From != nil:
		b.handleMessage(ctx, u.Message)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) {
	if _, err := b.api.SendMessage(ctx, chatID, text, markup); err != nil {
		b.logger.Error(map[string]any{
			"chat":  chatID,
			"error": err,
		}, "telegram reply failed")
	}
}

func (b *Bot) edit(ctx context.Context, msg *Message, text string) {
	if msg == nil {
		return
	}
	if err := b.api.EditMessageText(ctx, msg.Chat.ID, msg.MessageID, text, nil); err != nil {
		b.logger.Error(map[string]any{
			"chat":  msg.Chat.ID,
			"error": err,
		}, "telegram edit failed")
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *Message) {
	user := m.From.ID
	chat := m.Chat.ID
	text := strings.TrimSpace(m.Text)

	if !b.isOperator(user) {
		b.logger.Warn(map[string]any{"user": user}, "unauthorized telegram user")
		b.reply(ctx, chat, msgUnauthorized, nil)
		return
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, user, chat, text)
		return
	}

	sess, ok := b.sessions.Take(user)
	if !ok || !sess.Awaiting() {
		return
	}
	b.addDomain(ctx, chat, sess.AwaitingList, text)
}

// handleCommand parses "/cmd[@bot] [arg]".
func (b *Bot) handleCommand(ctx context.Context, user, chat int64, text string) {
	cmd, arg, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "/start":
		b.sessions.Clear(user)
		b.reply(ctx, chat, b.welcome(), mainKeyboard())
	case "/add_main":
		b.addOrPrompt(ctx, user, chat, domain.ListMain, arg)
	case "/add_alt":
		b.addOrPrompt(ctx, user, chat, domain.ListAlternative, arg)
	case "/list":
		b.reply(ctx, chat, RenderListing(b.intake.Snapshot()), nil)
	case "/cancel":
		b.sessions.Clear(user)
		b.reply(ctx, chat, msgCancelled, nil)
	default:
		b.logger.Debug(map[string]any{"command": cmd}, "unknown command ignored")
	}
}

func (b *Bot) addOrPrompt(ctx context.Context, user, chat int64, list domain.List, arg string) {
	if arg == "" {
		b.sessions.Await(user, list)
		b.reply(ctx, chat, prompt(list), nil)
		return
	}
	b.sessions.Clear(user)
	b.addDomain(ctx, chat, list, arg)
}

func (b *Bot) addDomain(ctx context.Context, chat int64, list domain.List, raw string) {
	res, err := b.intake.Add(ctx, list, raw)
	if err != nil {
		b.reply(ctx, chat, fmt.Sprintf(msgInvalidDomain, err), nil)
		return
	}
	b.reply(ctx, chat, fmt.Sprintf(msgAdded, res.Domain, res.List), nil)
	if res.Blocked {
		b.reply(ctx, chat, fmt.Sprintf(msgAlreadyBlock, res.Domain), nil)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *CallbackQuery) {
	if err := b.api.AnswerCallbackQuery(ctx, q.ID); err != nil {
		b.logger.Debug(map[string]any{"error": err}, "callback answer failed")
	}

	if !b.isOperator(q.From.ID) {
		b.logger.Warn(map[string]any{"user": q.From.ID}, "unauthorized telegram user")
		b.edit(ctx, q.Message, msgUnauthorized)
		return
	}

	switch q.Data {
	case cbAddMain:
		b.sessions.Await(q.From.ID, domain.ListMain)
		b.edit(ctx, q.Message, msgPromptMain)
	case cbAddAlt:
		b.sessions.Await(q.From.ID, domain.ListAlternative)
		b.edit(ctx, q.Message, msgPromptAlt)
	case cbList:
		b.edit(ctx, q.Message, RenderListing(b.intake.Snapshot()))
	default:
		b.logger.Debug(map[string]any{"data": q.Data}, "unknown callback ignored")
	}
}

func prompt(list domain.List) string {
	if list == domain.ListAlternative {
		return msgPromptAlt
	}
	return msgPromptMain
}

func mainKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "➕ Add Main Domain", CallbackData: cbAddMain}},
		{{Text: "➕ Add Alternative Domain", CallbackData: cbAddAlt}},
		{{Text: "📋 List Domains", CallbackData: cbList}},
	}}
}

func (b *Bot) welcome() string {
	return "Welcome to the Domain Block Monitor!\n\n" +
		"This bot will monitor your domains 24/7 and alert you if any get blocked.\n" +
		"Check interval: every " + humanInterval(b.interval) + "."
}

func humanInterval(d time.Duration) string {
	switch {
	case d <= 0:
		return "3 minutes"
	case d%time.Minute != 0:
		return d.String()
	case d == time.Minute:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}
