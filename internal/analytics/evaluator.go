// Package analytics evaluates regional job supply against worker demand.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/common/metrics"
	"signalx/internal/common/policy"
	"signalx/internal/common/validation"
	"signalx/internal/llm"
	"signalx/internal/models"
)

// RationalePolicy: a missing rationale never blocks an evaluation.
const RationalePolicy = policy.BestEffort

// TierForRatio maps jobs-per-worker onto a risk tier.
func TierForRatio(ratio float64) models.RiskTier {
	switch {
	case ratio < 0.10:
		return models.RiskCritical
	case ratio < 0.20:
		return models.RiskHigh
	case ratio < 0.40:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Ratio is supply/demand, or 0 when there are no workers.
func Ratio(supply, demand int) float64 {
	if demand == 0 {
		return 0
	}
	return float64(supply) / float64(demand)
}

// ShouldAlert is false for no-data results and for low risk, measured or estimated.
func ShouldAlert(e *models.RiskAlertEvent) bool {
	return !e.NoData && e.Tier != models.RiskLow
}

// Counter counts supply and demand for a region.
type Counter interface {
	CountJobs(ctx context.Context, district, block string) (int, error)
	CountWorkers(ctx context.Context, district, block string) (int, error)
}

var estimateSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["supply", "demand", "riskLevel"],
	"properties": {
		"supply":    {"type": "integer", "minimum": 0},
		"demand":    {"type": "integer", "minimum": 0},
		"riskLevel": {"type": "string", "enum": ["low", "medium", "high", "critical", "LOW", "MEDIUM", "HIGH", "CRITICAL"]},
		"analysis":  {"type": "string"}
	}
}`)

type estimate struct {
	Supply    int    `json:"supply"`
	Demand    int    `json:"demand"`
	RiskLevel string `json:"riskLevel"`
	Analysis  string `json:"analysis"`
}

const estimateKeyPrefix = "signalx:estimate:"

// Evaluator is the supply/demand risk evaluator.
type Evaluator struct {
	counts      Counter
	model       llm.Generator
	cache       redis.Cmdable
	estimateTTL time.Duration
	logger      logger.Logger
	now         func() time.Time
}

// NewEvaluator builds an evaluator. cache may be nil, which disables estimate caching.
func NewEvaluator(counts Counter, model llm.Generator, cache redis.Cmdable, estimateTTL time.Duration, log logger.Logger) *Evaluator {
	return &Evaluator{
		counts:      counts,
		model:       model,
		cache:       cache,
		estimateTTL: estimateTTL,
		logger:      log.With(map[string]interface{}{"component": "analytics"}),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate counts jobs and workers for the region. When both are zero it
// substitutes a model estimate; when the estimate is unusable the event is
// marked NoData.
func (e *Evaluator) Evaluate(ctx context.Context, district, block string) (*models.RiskAlertEvent, error) {
	district, block = strings.TrimSpace(district), strings.TrimSpace(block)
	if district == "" {
		return nil, apperrors.NewValidationError("missing required field(s): districtName")
	}

	supply, err := e.counts.CountJobs(ctx, district, block)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryError("count_jobs", err)
	}
	demand, err := e.counts.CountWorkers(ctx, district, block)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryError("count_workers", err)
	}

	event := &models.RiskAlertEvent{District: district, Block: block, EvaluatedAt: e.now()}
	if supply == 0 && demand == 0 {
		e.applyEstimate(ctx, event)
	} else {
		event.Supply, event.Demand = supply, demand
		event.Ratio = Ratio(supply, demand)
		event.Tier = TierForRatio(event.Ratio)
		if event.Tier != models.RiskLow {
			event.Rationale = e.rationale(ctx, event)
		}
	}

	metrics.RiskEvaluations.WithLabelValues(string(event.Tier), strconv.FormatBool(event.Estimated)).Inc()
	e.logger.Info("region evaluated", map[string]interface{}{
		"region":    event.Region(),
		"supply":    event.Supply,
		"demand":    event.Demand,
		"tier":      string(event.Tier),
		"estimated": event.Estimated,
		"noData":    event.NoData,
	})
	return event, nil
}

func (e *Evaluator) applyEstimate(ctx context.Context, event *models.RiskAlertEvent) {
	est, ok := e.estimate(ctx, event)
	if !ok {
		event.NoData = true
		event.Tier = models.RiskLow
		event.Rationale = "No jobs or workers recorded for this region and no estimate is available."
		return
	}

	tier, _ := models.ParseRiskTier(strings.ToLower(est.RiskLevel))
	event.Supply, event.Demand = est.Supply, est.Demand
	event.Ratio = Ratio(est.Supply, est.Demand)
	event.Tier = tier
	event.Rationale = est.Analysis
	event.Estimated = true
}

func (e *Evaluator) estimate(ctx context.Context, event *models.RiskAlertEvent) (*estimate, bool) {
	key := estimateKeyPrefix + strings.ToLower(event.District) + ":" + strings.ToLower(event.Block)

	if e.cache != nil {
		if raw, err := e.cache.Get(ctx, key).Bytes(); err == nil {
			var est estimate
			if json.Unmarshal(raw, &est) == nil {
				return &est, true
			}
		} else if err != redis.Nil {
			e.logger.Warn("estimate cache read failed", map[string]interface{}{"key": key, "error": err})
		}
	}

	if e.model == nil || !e.model.Configured() {
		return nil, false
	}

	raw, err := e.model.Generate(ctx, llm.Prompt{
		System: "You are a labour-market analyst for rural West Bengal. Respond with JSON only.",
		User: fmt.Sprintf(`SignalX has no job postings or registered workers yet for %s, West Bengal.
Give plausible estimates for the region as JSON:
{"supply": <open jobs, integer>, "demand": <job seekers, integer>, "riskLevel": "low|medium|high|critical", "analysis": "<two sentences on employment and migration pressure>"}`,
			event.Region()),
	})
	if err != nil {
		e.logger.Warn("estimate request failed", map[string]interface{}{
			"region": event.Region(),
			"error":  err,
		})
		return nil, false
	}

	cleaned := llm.StripCodeFences(raw)
	if err := estimateSchema.Validate([]byte(cleaned)); err != nil {
		e.logger.Warn("estimate unparseable", map[string]interface{}{
			"region": event.Region(),
			"error":  err,
		})
		return nil, false
	}
	var est estimate
	if err := json.Unmarshal([]byte(cleaned), &est); err != nil {
		return nil, false
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, cleaned, e.estimateTTL).Err(); err != nil {
			e.logger.Warn("estimate cache write failed", map[string]interface{}{"key": key, "error": err})
		}
	}
	return &est, true
}

func (e *Evaluator) rationale(ctx context.Context, event *models.RiskAlertEvent) string {
	if e.model == nil || !e.model.Configured() {
		return ""
	}

	text, err := e.model.Generate(ctx, llm.Prompt{
		User: fmt.Sprintf(`In %s, West Bengal there are %d open jobs for %d registered workers (ratio %.3f, %s risk).
In at most three sentences, explain the likely livelihood and migration impact and one practical intervention.`,
			event.Region(), event.Supply, event.Demand, event.Ratio, event.Tier),
	})
	if err != nil {
		e.logger.Warn("rationale request failed", map[string]interface{}{
			"region": event.Region(),
			"policy": string(RationalePolicy),
			"error":  err,
		})
		return ""
	}
	return strings.TrimSpace(llm.StripCodeFences(text))
}
