// Package ai is a thin client for the generative-language completion API
// backing the help chatbot.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/igen-labs/cxo-survey/config"
)

// Turn is one prior message in a chat conversation.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Client calls the external completion endpoint. A zero API key means the
// service is unconfigured; callers surface that as 503.
type Client struct {
	cfg        config.AIConfig
	httpClient *http.Client
}

func New(cfg config.AIConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Reply sends the system prompt, the trimmed conversation history and the
// new user message as a single prompt and returns the model's text reply.
func (c *Client) Reply(ctx context.Context, systemPrompt string, history []Turn, message string) (string, error) {
	var prompt strings.Builder
	prompt.WriteString(systemPrompt)
	prompt.WriteString("\n\n")
	for _, turn := range history {
		speaker := "Assistant"
		if turn.Role == "user" {
			speaker = "User"
		}
		fmt.Fprintf(&prompt, "%s: %s\n", speaker, turn.Content)
	}
	fmt.Fprintf(&prompt, "User: %s\nAssistant:", message)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt.String()}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.APIBase, c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed decoding completion response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("completion API error: %s", out.Error.Message)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("completion API returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
