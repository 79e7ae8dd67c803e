package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signalx/internal/common/config"
	"signalx/internal/common/http"
)

// ChatClient speaks the OpenAI-compatible chat/completions protocol (Groq and friends).
type ChatClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

func NewChatClient(cfg config.LLMConfig) *ChatClient {
	return &ChatClient{
		cfg:    cfg,
		client: http.NewClient(config.GetDuration(cfg.Timeout)),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatClient) Configured() bool { return c.cfg.APIKey != "" }

func (c *ChatClient) Generate(ctx context.Context, p Prompt) (text string, err error) {
	start := time.Now()
	defer func() { observe("chat", start, err) }()

	req := chatRequest{Model: c.cfg.Model, Temperature: c.cfg.Temperature}
	if p.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: p.User})

	var resp chatResponse
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	if err := c.client.PostJSON(ctx, url, headers, req, &resp); err != nil {
		return "", wrapErr(ctx, "chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", wrapErr(ctx, "chat", fmt.Errorf("response has no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}
