package stargate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"messenger-service/internal/push"
)

// Client talks to a remote stargate-compatible channel service over HTTP.
// The access token is injected at construction instead of read from process
// globals.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient constructs the client.
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

var _ push.ChannelRegistry = (*Client)(nil)

// CreateChannel asks the channel service for a fresh channel.
func (c *Client) CreateChannel(ctx context.Context) (push.Channel, error) {
	endpoint := c.baseURL + "/channels?accessToken=" + url.QueryEscape(c.accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return push.Channel{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return push.Channel{}, fmt.Errorf("create channel: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return push.Channel{}, fmt.Errorf("create channel: unexpected status %d", resp.StatusCode)
	}

	var channel push.Channel
	if err := json.NewDecoder(resp.Body).Decode(&channel); err != nil {
		return push.Channel{}, fmt.Errorf("create channel: decode response: %w", err)
	}
	return channel, nil
}

// ValidateChannel checks the id/key pair against the channel service.
func (c *Client) ValidateChannel(ctx context.Context, channelID int, connectKey string) error {
	query := url.Values{}
	query.Set("id", strconv.Itoa(channelID))
	query.Set("key", connectKey)
	endpoint := c.baseURL + "/channels/validate?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("validate channel %d: %w", channelID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validate channel %d: unexpected status %d", channelID, resp.StatusCode)
	}
	return nil
}

// Push submits a serialized event for delivery on the channel.
func (c *Client) Push(ctx context.Context, channelID int, payload []byte, persist bool) error {
	body, err := json.Marshal(map[string]any{
		"payload": string(payload),
		"persist": persist,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/channels/%d/push?accessToken=%s", c.baseURL, channelID, url.QueryEscape(c.accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push to channel %d: %w", channelID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push to channel %d: unexpected status %d", channelID, resp.StatusCode)
	}
	return nil
}
