// Package linenotify delivers run reports through the LINE Notify API.
package linenotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/sentinel-futures/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultEndpoint is the LINE Notify message endpoint
const DefaultEndpoint = "https://notify-api.line.me/api/notify"

// maxMessageLength is the LINE Notify limit on the message parameter
const maxMessageLength = 1000

// ErrDisabled is returned by Send when no token is configured
var ErrDisabled = errors.New("line notify is disabled: no token configured")

// Client posts messages with an optional image to LINE Notify
type Client struct {
	token    string
	endpoint string
	silent   bool
	client   *http.Client
	log      zerolog.Logger
}

var _ domain.Notifier = (*Client)(nil)

// NewClient creates a LINE Notify client. An empty token yields a disabled client.
func NewClient(token string, log zerolog.Logger) *Client {
	return &Client{
		token:    strings.TrimSpace(token),
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log.With().Str("client", "line-notify").Logger(),
	}
}

// Enabled reports whether a token is configured
func (c *Client) Enabled() bool {
	return c.token != ""
}

// SetSilent suppresses the push notification sound on the receiving device
func (c *Client) SetSilent(silent bool) {
	c.silent = silent
}

// Send posts message and, when imageURL is set, attaches it as both full size and thumbnail image.
// The HTTP status code is returned even when it is not 200.
func (c *Client) Send(ctx context.Context, message, imageURL string) (int, error) {
	if !c.Enabled() {
		return 0, ErrDisabled
	}

	form := url.Values{}
	form.Set("message", truncate(message, maxMessageLength))
	if imageURL != "" {
		form.Set("imageFullsize", imageURL)
		form.Set("imageThumbnail", imageURL)
	}
	form.Set("notificationDisabled", strconv.FormatBool(c.silent))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("LINE Notify rejected message")
		return resp.StatusCode, nil
	}

	c.log.Debug().Int("length", len(message)).Msg("Notification sent")
	return resp.StatusCode, nil
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
