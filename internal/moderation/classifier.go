// Package moderation screens job postings before publication.
package moderation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"signalx/internal/common/logger"
	"signalx/internal/common/metrics"
	"signalx/internal/common/policy"
	"signalx/internal/common/validation"
	"signalx/internal/llm"
)

// FailurePolicy applies whenever the model is missing, unreachable or unusable.
const FailurePolicy = policy.FailClosed

const (
	ReasonManualReview = "manual review required"
	ReasonModelFailed  = "auto-moderation failed"
)

const instruction = `You are the content moderator for SignalX, a job board for rural West Bengal.
Approve legitimate rural jobs such as farm work, construction, domestic work, weaving, transport and shop work.
Reject illegal, scam, hateful, sexually explicit or vague listings, and any listing that asks workers to pay a fee.
Respond with JSON only: {"safe": true|false, "reason": "<one short sentence>"}`

var verdictSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["safe"],
	"properties": {
		"safe":   {"type": "boolean"},
		"reason": {"type": "string"}
	}
}`)

// Source says which path produced a verdict.
type Source string

const (
	SourceModel        Source = "model"
	SourceKeywords     Source = "keywords"
	SourceRedFlag      Source = "red-flag"
	SourceNoCredential Source = "no-credential"
	SourceError        Source = "error"
)

type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason"`
	Source Source `json:"source"`
}

// Fallback reports whether the verdict was substituted rather than judged.
func (v Verdict) Fallback() bool {
	return v.Source == SourceNoCredential || v.Source == SourceError
}

// Classifier is the job safety classifier.
type Classifier struct {
	model    llm.Generator
	redFlags []string
	logger   logger.Logger
}

func NewClassifier(model llm.Generator, redFlags []string, log logger.Logger) *Classifier {
	return &Classifier{
		model:    model,
		redFlags: redFlags,
		logger:   log.With(map[string]interface{}{"component": "moderation"}),
	}
}

// Classify never returns an error: every failure becomes a not-safe verdict.
func (c *Classifier) Classify(ctx context.Context, title, description string) Verdict {
	v := c.classify(ctx, title, description)
	metrics.ModerationVerdicts.WithLabelValues(strconv.FormatBool(v.Safe), string(v.Source)).Inc()
	return v
}

func (c *Classifier) classify(ctx context.Context, title, description string) Verdict {
	if c.model == nil || !c.model.Configured() {
		return Verdict{Safe: false, Reason: ReasonManualReview, Source: SourceNoCredential}
	}

	if term, ok := containsRedFlag(title, description, c.redFlags); ok {
		return Verdict{Safe: false, Reason: "red flag term: " + term, Source: SourceRedFlag}
	}

	raw, err := c.model.Generate(ctx, llm.Prompt{
		System: instruction,
		User:   "Title: " + title + "\nDescription: " + description,
	})
	if err != nil {
		c.logger.Warn("moderation model call failed", map[string]interface{}{
			"error":  err,
			"policy": string(FailurePolicy),
		})
		return Verdict{Safe: false, Reason: ReasonModelFailed, Source: SourceError}
	}

	return parseVerdict(raw)
}

// parseVerdict trusts a well-formed JSON answer verbatim and otherwise sniffs keywords.
func parseVerdict(raw string) Verdict {
	cleaned := llm.StripCodeFences(raw)

	if verdictSchema.Validate([]byte(cleaned)) == nil {
		var out struct {
			Safe   bool   `json:"safe"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(cleaned), &out); err == nil {
			if out.Reason == "" {
				out.Reason = defaultReason(out.Safe)
			}
			return Verdict{Safe: out.Safe, Reason: out.Reason, Source: SourceModel}
		}
	}

	lower := strings.ToLower(raw)
	safe := !strings.Contains(lower, "unsafe") &&
		!strings.Contains(lower, "reject") &&
		!strings.Contains(lower, "flag")
	return Verdict{Safe: safe, Reason: defaultReason(safe), Source: SourceKeywords}
}

func defaultReason(safe bool) string {
	if safe {
		return "approved by automated review"
	}
	return "flagged by automated review"
}

func containsRedFlag(title, description string, redFlags []string) (string, bool) {
	if len(redFlags) == 0 {
		return "", false
	}
	combined := strings.ToLower(title + " " + description)
	for _, flag := range redFlags {
		if flag == "" {
			continue
		}
		if hasAffirmedTerm(combined, strings.ToLower(flag)) {
			return flag, true
		}
	}
	return "", false
}

// negations that cancel a red-flag term when they directly precede it,
// as in "no security deposit" or "without registration fee".
var negations = map[string]bool{"no": true, "not": true, "without": true, "zero": true, "never": true}

// hasAffirmedTerm reports whether term occurs in text at least once without
// a negation word immediately before it.
func hasAffirmedTerm(text, term string) bool {
	for offset := 0; ; {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return false
		}
		start := offset + i
		before := strings.Fields(text[:start])
		if len(before) == 0 || !negations[strings.Trim(before[len(before)-1], ",.;:!()\"'")] {
			return true
		}
		offset = start + len(term)
	}
}
