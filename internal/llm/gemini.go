package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"signalx/internal/common/config"
	"signalx/internal/common/http"
)

// GeminiClient calls the generateContent endpoint.
type GeminiClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

func NewGeminiClient(cfg config.LLMConfig) *GeminiClient {
	return &GeminiClient{
		cfg:    cfg,
		client: http.NewClient(config.GetDuration(cfg.Timeout)),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiClient) Configured() bool { return g.cfg.APIKey != "" }

func (g *GeminiClient) Generate(ctx context.Context, p Prompt) (text string, err error) {
	start := time.Now()
	defer func() { observe("gemini", start, err) }()

	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: p.User}}}},
	}
	req.GenerationConfig.Temperature = g.cfg.Temperature
	if p.System != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.System}}}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.cfg.BaseURL, "/"), url.PathEscape(g.cfg.Model), url.QueryEscape(g.cfg.APIKey))

	var resp geminiResponse
	if err := g.client.PostJSON(ctx, endpoint, nil, req, &resp); err != nil {
		return "", wrapErr(ctx, "gemini", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", wrapErr(ctx, "gemini", fmt.Errorf("response has no candidates"))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
