package sendbulkalert

import "signalx/internal/models"

type Input struct {
	Reports []*models.RiskAlertEvent `json:"reports"`
}

type Output struct {
	Success    bool `json:"success"`
	Successful int  `json:"successful"`
	Failed     int  `json:"failed"`
	Reports    int  `json:"reports"`
	HighRisk   int  `json:"highRisk"`
}
