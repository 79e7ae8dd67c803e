package checksupplydemand

import "signalx/internal/models"

type Input struct {
	DistrictName string `json:"districtName"`
	BlockName    string `json:"blockName,omitempty"`
	DryRun       bool   `json:"dryRun,omitempty"`
}

type Output struct {
	RiskLevel   models.RiskTier `json:"riskLevel"`
	Supply      int             `json:"supply"`
	Demand      int             `json:"demand"`
	Ratio       float64         `json:"ratio"`
	IsEstimated bool            `json:"isEstimated"`
	NoData      bool            `json:"noData"`
	Analysis    string          `json:"analysis,omitempty"`
	AlertSent   bool            `json:"alertSent"`
	MessageID   string          `json:"messageId,omitempty"`
	Message     string          `json:"message"`
	AlertError  string          `json:"alertError,omitempty"`
}
