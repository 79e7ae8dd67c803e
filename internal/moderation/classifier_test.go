package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"signalx/internal/common/logger"
	"signalx/internal/llm"
	"signalx/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockGenerator struct {
	configured   bool
	GenerateFunc func(ctx context.Context, p llm.Prompt) (string, error)
	calls        int
}

func (m *MockGenerator) Configured() bool { return m.configured }

func (m *MockGenerator) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	m.calls++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, p)
	}
	return "", nil
}

func replying(text string) *MockGenerator {
	return &MockGenerator{
		configured: true,
		GenerateFunc: func(ctx context.Context, p llm.Prompt) (string, error) {
			return text, nil
		},
	}
}

// ==========================
// Classify
// ==========================

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name       string
		model      *MockGenerator
		title      string
		wantSafe   bool
		wantSource Source
		wantReason string
	}{
		{
			name:       "no credential fails closed",
			model:      &MockGenerator{configured: false},
			title:      "Paddy harvest helpers",
			wantSafe:   false,
			wantSource: SourceNoCredential,
			wantReason: ReasonManualReview,
		},
		{
			name: "transport error fails closed",
			model: &MockGenerator{configured: true, GenerateFunc: func(ctx context.Context, p llm.Prompt) (string, error) {
				return "", errors.New("dial tcp: i/o timeout")
			}},
			title:      "Paddy harvest helpers",
			wantSafe:   false,
			wantSource: SourceError,
			wantReason: ReasonModelFailed,
		},
		{
			name:       "strict json safe",
			model:      replying(`{"safe": true, "reason": "Legitimate farm work"}`),
			title:      "Paddy harvest helpers",
			wantSafe:   true,
			wantSource: SourceModel,
			wantReason: "Legitimate farm work",
		},
		{
			name:       "fenced json unsafe",
			model:      replying("```json\n{\"safe\": false, \"reason\": \"Asks for registration fee\"}\n```"),
			title:      "Easy money",
			wantSafe:   false,
			wantSource: SourceModel,
			wantReason: "Asks for registration fee",
		},
		{
			name:       "fenced json after prose",
			model:      replying("Answer: ```json {\"safe\": false, \"reason\": \"Charges a joining fee\"}```"),
			title:      "Easy money",
			wantSafe:   false,
			wantSource: SourceModel,
			wantReason: "Charges a joining fee",
		},
		{
			name:       "json verdict is trusted even when reason mentions flags",
			model:      replying(`{"safe": true, "reason": "nothing to flag"}`),
			title:      "Tailor",
			wantSafe:   true,
			wantSource: SourceModel,
		},
		{
			name:       "free text containing reject",
			model:      replying("I would reject this listing, it is vague."),
			title:      "Work from home",
			wantSafe:   false,
			wantSource: SourceKeywords,
		},
		{
			name:       "free text containing unsafe",
			model:      replying("UNSAFE"),
			wantSafe:   false,
			wantSource: SourceKeywords,
		},
		{
			name:       "free text without keywords",
			model:      replying("Looks like a normal construction job."),
			title:      "Mason",
			wantSafe:   true,
			wantSource: SourceKeywords,
		},
		{
			name:       "json of the wrong shape falls back to keywords",
			model:      replying(`{"verdict": "approve"}`),
			wantSafe:   true,
			wantSource: SourceKeywords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.model, nil, logger.NewTestLogger(t))
			v := c.Classify(context.Background(), tt.title, "some description")

			assert.Equal(t, tt.wantSafe, v.Safe)
			assert.Equal(t, tt.wantSource, v.Source)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, v.Reason)
			}
			assert.NotEmpty(t, v.Reason)
		})
	}
}

func TestClassifier_NoCredentialIgnoresContent(t *testing.T) {
	c := NewClassifier(nil, nil, logger.NewNoOpLogger())
	for _, title := range []string{"", "Paddy harvest helpers", "Totally legitimate"} {
		v := c.Classify(context.Background(), title, "")
		assert.False(t, v.Safe, title)
	}
}

func TestClassifier_RedFlagSkipsModel(t *testing.T) {
	model := replying(`{"safe": true, "reason": "fine"}`)
	c := NewClassifier(model, []string{"registration fee", ""}, logger.NewTestLogger(t))

	v := c.Classify(context.Background(), "Data entry", "Pay Registration Fee of Rs 500 to start")
	assert.False(t, v.Safe)
	assert.Equal(t, SourceRedFlag, v.Source)
	assert.Equal(t, "red flag term: registration fee", v.Reason)
	assert.Equal(t, 0, model.calls)
}

func TestClassifier_NoCredentialPrecedesRedFlags(t *testing.T) {
	c := NewClassifier(&MockGenerator{configured: false}, []string{"security deposit"}, logger.NewTestLogger(t))

	v := c.Classify(context.Background(), "Shop helper", "Security deposit of Rs 2000 required, daily wage 400")
	assert.Equal(t, Verdict{Safe: false, Reason: ReasonManualReview, Source: SourceNoCredential}, v)
	assert.Equal(t, models.VerdictManual, Decision(v).Moderation)
}

func TestClassifier_RedFlagNegation(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantSource  Source
	}{
		{"negated term reaches the model", "No security deposit needed, daily wage 400", SourceModel},
		{"without negates", "Joining is free, without security deposit.", SourceModel},
		{"affirmed term", "Security deposit of Rs 2000 before joining", SourceRedFlag},
		{"negated then affirmed", "No phone needed. Security deposit Rs 500.", SourceRedFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := replying(`{"safe": true, "reason": "fine"}`)
			c := NewClassifier(model, []string{"security deposit"}, logger.NewTestLogger(t))

			v := c.Classify(context.Background(), "Shop helper", tt.description)
			assert.Equal(t, tt.wantSource, v.Source)
		})
	}
}

func TestClassifier_PromptCarriesListing(t *testing.T) {
	var got llm.Prompt
	model := &MockGenerator{configured: true, GenerateFunc: func(ctx context.Context, p llm.Prompt) (string, error) {
		got = p
		return `{"safe": true}`, nil
	}}
	c := NewClassifier(model, nil, logger.NewTestLogger(t))

	v := c.Classify(context.Background(), "Tractor driver", "Needs licence")
	assert.True(t, v.Safe)
	assert.Equal(t, "approved by automated review", v.Reason)
	assert.Contains(t, got.System, "Reject illegal, scam")
	assert.Contains(t, got.User, "Title: Tractor driver")
	assert.Contains(t, got.User, "Description: Needs licence")
}

// ==========================
// Decision
// ==========================

func TestDecision(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		want    Outcome
	}{
		{"safe", Verdict{Safe: true, Source: SourceModel}, Outcome{models.VerdictAutoApproved, models.ReviewApproved, true}},
		{"model flagged", Verdict{Safe: false, Source: SourceModel}, Outcome{models.VerdictFlagged, models.ReviewPending, false}},
		{"keyword flagged", Verdict{Safe: false, Source: SourceKeywords}, Outcome{models.VerdictFlagged, models.ReviewPending, false}},
		{"red flag", Verdict{Safe: false, Source: SourceRedFlag}, Outcome{models.VerdictFlagged, models.ReviewPending, false}},
		{"no credential", Verdict{Safe: false, Source: SourceNoCredential}, Outcome{models.VerdictManual, models.ReviewPending, false}},
		{"model error", Verdict{Safe: false, Source: SourceError}, Outcome{models.VerdictManual, models.ReviewPending, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decision(tt.verdict))
		})
	}
}
