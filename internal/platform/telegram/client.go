package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront-bot-backend/internal/common/logger"
)

const defaultAPIURL = "https://api.telegram.org"

// APIError is returned when the Bot API answers with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Client is a minimal Bot API client.
type Client struct {
	httpClient *http.Client
	token      string
	apiURL     string
}

func NewClient(token, apiURL string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      token,
		apiURL:     strings.TrimRight(apiURL, "/"),
	}
}

// SendMessage delivers a text message and returns the sent message.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	var result tgResponse[Message]
	if err := c.call(ctx, "sendMessage", params, &result); err != nil {
		logger.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to send message")
		return nil, err
	}

	logger.Debug().
		Int64("chat_id", params.ChatID).
		Int64("message_id", result.Result.MessageID).
		Msg("Message sent")
	return &result.Result, nil
}

// SetWebhook points Telegram at url. secret is echoed back by Telegram in the
// X-Telegram-Bot-Api-Secret-Token header of every update.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	body := struct {
		URL            string   `json:"url"`
		SecretToken    string   `json:"secret_token,omitempty"`
		AllowedUpdates []string `json:"allowed_updates"`
	}{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message"},
	}

	var result tgResponse[bool]
	if err := c.call(ctx, "setWebhook", body, &result); err != nil {
		return err
	}
	return nil
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var result tgResponse[User]
	if err := c.call(ctx, "getMe", struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result.Result, nil
}

func (c *Client) call(ctx context.Context, method string, payload any, out interface {
	describe() (bool, int, string)
}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the url carries the token; keep it out of logs
		return fmt.Errorf("%s: failed to send request: %w", method, redact(err, c.token))
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to parse response (status %d): %w", method, resp.StatusCode, err)
	}

	if ok, code, desc := out.describe(); !ok {
		return &APIError{Method: method, Code: code, Description: desc}
	}
	return nil
}

func (r *tgResponse[T]) describe() (bool, int, string) {
	return r.Ok, r.ErrorCode, r.Description
}

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
