package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

// Channel is one delivery mechanism.
type Channel interface {
	Name() string
	Available(dest Destination) bool
	Send(ctx context.Context, dest Destination, m Message) error
}

type BotChannel struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewBotChannel(token, baseURL string, client *http.Client) *BotChannel {
	if client == nil {
		client = &http.Client{}
	}
	return &BotChannel{token: token, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c *BotChannel) Name() string { return "discord_bot" }

func (c *BotChannel) Available(dest Destination) bool {
	return c.token != "" && dest.DiscordChannelID != ""
}

func (c *BotChannel) Send(ctx context.Context, dest Destination, m Message) error {
	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, dest.DiscordChannelID)
	return post(ctx, c.client, endpoint, "Bot "+c.token, buildPayload(m))
}

type WebhookChannel struct {
	client *http.Client
}

func NewWebhookChannel(client *http.Client) *WebhookChannel {
	if client == nil {
		client = &http.Client{}
	}
	return &WebhookChannel{client: client}
}

func (c *WebhookChannel) Name() string { return "discord_webhook" }

func (c *WebhookChannel) Available(dest Destination) bool { return dest.WebhookURL != "" }

func (c *WebhookChannel) Send(ctx context.Context, dest Destination, m Message) error {
	return post(ctx, c.client, dest.WebhookURL, "", buildPayload(m))
}

func post(ctx context.Context, client *http.Client, endpoint, authorization string, payload messagePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	return nil
}
