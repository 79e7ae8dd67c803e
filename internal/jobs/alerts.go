package jobs

import (
	"context"
	"fmt"
	"strings"

	"signalx/internal/common/logger"
	"signalx/internal/models"
	"signalx/internal/notify"
)

// SMSSender is satisfied by notify.SMSSender.
type SMSSender interface {
	Send(ctx context.Context, phone, text string) (string, error)
}

// AlertResult counts a job alert fan-out.
type AlertResult struct {
	Matched    int `json:"matched"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	SMSSent    int `json:"smsSent,omitempty"`
	SMSFailed  int `json:"smsFailed,omitempty"`
}

// Alerter emails (and optionally texts) matched workers about a new posting.
type Alerter struct {
	mailer notify.Mailer
	sms    SMSSender
	appURL string
	logger logger.Logger
}

// NewAlerter builds an alerter. sms may be nil.
func NewAlerter(mailer notify.Mailer, sms SMSSender, appURL string, log logger.Logger) *Alerter {
	return &Alerter{mailer: mailer, sms: sms, appURL: strings.TrimRight(appURL, "/"), logger: log}
}

func (a *Alerter) Notify(ctx context.Context, job *models.JobPosting, workers []*models.WorkerRecord) *AlertResult {
	res := &AlertResult{Matched: len(workers)}

	msgs := make([]notify.Message, 0, len(workers))
	for _, w := range workers {
		if w.Email == "" {
			continue
		}
		html, err := notify.Render(notify.TemplateJobAlert, map[string]interface{}{
			"Worker": w,
			"Job":    job,
			"AppURL": a.appURL,
		})
		if err != nil {
			a.logger.Error("job alert render failed", map[string]interface{}{"workerId": w.ID, "error": err})
			res.Failed++
			continue
		}
		msgs = append(msgs, notify.Message{
			To:      w.Email,
			Subject: fmt.Sprintf("New job in %s: %s", job.District, job.Title),
			HTML:    html,
		})
	}

	sent := notify.SendAll(ctx, a.mailer, msgs, a.logger)
	res.Successful += sent.Successful
	res.Failed += sent.Failed

	if a.sms != nil {
		text := fmt.Sprintf("SignalX: new job %q in %s. %s/jobs/%s", job.Title, job.District, a.appURL, job.ID)
		for _, w := range workers {
			if w.Phone == "" {
				continue
			}
			if _, err := a.sms.Send(ctx, w.Phone, text); err != nil {
				res.SMSFailed++
				a.logger.Warn("job alert sms failed", map[string]interface{}{
					"workerId": w.ID,
					"policy":   string(notify.FailurePolicy),
					"error":    err,
				})
				continue
			}
			res.SMSSent++
		}
	}

	a.logger.Info("job alerts sent", map[string]interface{}{
		"jobId":      job.ID,
		"matched":    res.Matched,
		"successful": res.Successful,
		"failed":     res.Failed,
	})
	return res
}
