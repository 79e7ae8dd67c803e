package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalx/internal/common/config"
	apperrors "signalx/internal/common/errors"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"safe": true}`, `{"safe": true}`},
		{"json fence", "```json\n{\"safe\": true}\n```", `{"safe": true}`},
		{"bare fence", "```\n{\"safe\": false}\n```\n", `{"safe": false}`},
		{"surrounding space", "  \n```json{\"a\":1}```  ", `{"a":1}`},
		{"not a fence", "looks fine to me", "looks fine to me"},
		{"fence after prose", "Answer: ```json {\"safe\": false, \"reason\": \"asks for fees\"}```", `{"safe": false, "reason": "asks for fees"}`},
		{"fence between prose", "Here you go:\n```json\n{\"a\":1}\n```\nHope this helps.", `{"a":1}`},
		{"first of two fences", "```json\n{\"a\":1}\n```\n```json\n{\"a\":2}\n```", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestChatClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.3-70b-versatile", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "Title: Mason", req.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"safe\":true,\"reason\":\"ok\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewChatClient(config.LLMConfig{BaseURL: srv.URL + "/", APIKey: "gsk-test", Model: "llama-3.3-70b-versatile", Timeout: 2000})
	require.True(t, c.Configured())

	out, err := c.Generate(context.Background(), Prompt{System: "moderate", User: "Title: Mason"})
	require.NoError(t, err)
	assert.Equal(t, `{"safe":true,"reason":"ok"}`, out)
}

func TestChatClient_Errors(t *testing.T) {
	t.Run("upstream status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewChatClient(config.LLMConfig{BaseURL: srv.URL, APIKey: "k", Timeout: 2000})
		_, err := c.Generate(context.Background(), Prompt{User: "x"})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMRequestFailed))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		c := NewChatClient(config.LLMConfig{BaseURL: srv.URL, APIKey: "k", Timeout: 5000})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := c.Generate(ctx, Prompt{User: "x"})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMTimeout))
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		c := NewChatClient(config.LLMConfig{BaseURL: srv.URL, APIKey: "k", Timeout: 2000})
		_, err := c.Generate(context.Background(), Prompt{User: "x"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeLLMRequestFailed))
	})
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "AIza-test", r.URL.Query().Get("key"))

		var req geminiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Contents, 1) {
			assert.Equal(t, "Estimate Purulia", req.Contents[0].Parts[0].Text)
		}
		assert.Nil(t, req.SystemInstruction)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"part one, "},{"text":"part two"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiClient(config.LLMConfig{BaseURL: srv.URL, APIKey: "AIza-test", Model: "gemini-1.5-flash", Timeout: 2000})
	out, err := g.Generate(context.Background(), Prompt{User: "Estimate Purulia"})
	require.NoError(t, err)
	assert.Equal(t, "part one, part two", out)
}

func TestGeminiClient_NotConfigured(t *testing.T) {
	assert.False(t, NewGeminiClient(config.LLMConfig{}).Configured())
	assert.False(t, NewChatClient(config.LLMConfig{}).Configured())
}
