package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultDiscordBaseURL = "https://discord.com/api/v10"

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type createMessageRequest struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// DiscordClient posts messages through the Discord REST API with a bot
// token.
type DiscordClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewDiscordClient(token string) *DiscordClient {
	return &DiscordClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultDiscordBaseURL,
		token:      token,
	}
}

func (c *DiscordClient) SendMessage(ctx context.Context, channelID, content string, embed *Embed) error {
	reqBody := createMessageRequest{Content: content}
	if embed != nil {
		reqBody.Embeds = []Embed{*embed}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal discord message: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord api error: status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
