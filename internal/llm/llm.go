// Package llm holds the language-model clients used by moderation and analytics.
package llm

import (
	"context"
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/metrics"
)

// Prompt is a single-turn request.
type Prompt struct {
	System string
	User   string
}

// Generator returns the model's raw text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	// Configured is false when no credential is set; callers must not call Generate then.
	Configured() bool
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)\\s*```")

// StripCodeFences returns the body of the first markdown code fence in s,
// which may be preceded or followed by prose. Unfenced text is only trimmed.
func StripCodeFences(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

func observe(provider string, start time.Time, err error) {
	metrics.LLMRequestDuration.WithLabelValues(provider, metrics.Result(err)).Observe(time.Since(start).Seconds())
}

func wrapErr(ctx context.Context, provider string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewLLMTimeoutError(provider)
	}
	return apperrors.NewLLMRequestError(provider, err)
}
