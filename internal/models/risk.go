package models

import (
	"fmt"
	"time"
)

type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// ParseRiskTier normalises a tier label, reporting false for unknown labels.
func ParseRiskTier(s string) (RiskTier, bool) {
	switch t := RiskTier(s); t {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return t, true
	}
	return "", false
}

// RiskAlertEvent is the result of one supply/demand evaluation. It is never persisted.
type RiskAlertEvent struct {
	District    string    `json:"districtName"`
	Block       string    `json:"blockName,omitempty"`
	Supply      int       `json:"supply"`
	Demand      int       `json:"demand"`
	Ratio       float64   `json:"ratio"`
	Tier        RiskTier  `json:"riskLevel"`
	Rationale   string    `json:"analysis,omitempty"`
	Estimated   bool      `json:"isEstimated"`
	NoData      bool      `json:"noData,omitempty"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// Region renders "Block, District" or just the district.
func (e *RiskAlertEvent) Region() string {
	if e.Block != "" {
		return fmt.Sprintf("%s, %s", e.Block, e.District)
	}
	return e.District
}
