// Package telegram talks to the Telegram Bot API. Client is the outbound
// side (and the operator channel for alerts); Bot is the long-polling
// intake loop.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haukened/blockwatch/internal/watch/common/log"
)

const (
	DefaultAPIURL = "https://api.telegram.org"

	defaultCallTimeout = 10 * time.Second
	maxResponseBytes   = 1 << 20

	errEncodePayload = "failed to encode %s payload: %w"
	errBuildRequest  = "failed to build %s request: %w"
	errCallFailed    = "telegram %s failed: %w"
	errDecodeReply   = "failed to decode %s reply: %w"
)

// ErrNoToken is returned by NewClient when no bot token is configured.
var ErrNoToken = errors.New("telegram bot token is empty")

// APIError is a Bot API reply with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Doer is the subset of *http.Client the client needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientOptions struct {
	Token  string
	APIURL string
	HTTP   Doer
	Logger log.Logger
}

// Client is a minimal Bot API client.
type Client struct {
	base   string
	http   Doer
	logger log.Logger
}

type apiReply struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Token == "" {
		return nil, ErrNoToken
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Client{
		base:   strings.TrimRight(opts.APIURL, "/") + "/bot" + opts.Token + "/",
		http:   opts.HTTP,
		logger: opts.Logger,
	}, nil
}

// call POSTs payload as JSON to method and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf(errEncodePayload, method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf(errBuildRequest, method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf(errCallFailed, method, err)
	}
	defer resp.Body.Close()

	var reply apiReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&reply); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Method: method, Code: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf(errDecodeReply, method, err)
	}
	if !reply.OK {
		code := reply.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &APIError{Method: method, Code: code, Description: reply.Description}
	}
	if out != nil && len(reply.Result) > 0 {
		if err := json.Unmarshal(reply.Result, out); err != nil {
			return fmt.Errorf(errDecodeReply, method, err)
		}
	}
	return nil
}

func withCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, defaultCallTimeout)
}

// SendMessage sends plain text to chatID. markup may be nil.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (Message, error) {
	ctx, cancel := withCallTimeout(ctx)
	defer cancel()

	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	var msg Message
	err := c.call(ctx, "sendMessage", payload, &msg)
	return msg, err
}

// EditMessageText replaces the text of a message the bot sent earlier.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	ctx, cancel := withCallTimeout(ctx)
	defer cancel()

	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallbackQuery acknowledges an inline button press.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	ctx, cancel := withCallTimeout(ctx)
	defer cancel()
	return c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID}, nil)
}

// GetUpdates long-polls for updates with id >= offset, waiting up to
// timeout for the first one.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+defaultCallTimeout)
	defer cancel()

	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendToOperator delivers text to an operator's private chat.
func (c *Client) SendToOperator(ctx context.Context, operatorID int64, text string) error {
	_, err := c.SendMessage(ctx, operatorID, text, nil)
	if err != nil {
		c.logger.Debug(map[string]any{
			"operator": operatorID,
			"error":    err,
		}, "telegram send failed")
	}
	return err
}
