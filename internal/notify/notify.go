// Package notify delivers email and SMS.
package notify

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"signalx/internal/common/logger"
	"signalx/internal/common/metrics"
	"signalx/internal/common/policy"
)

// FailurePolicy for every notification: log the failure, keep the primary action.
const FailurePolicy = policy.LogAndContinue

// Message is one email to one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Mailer delivers a message and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
	Verify(ctx context.Context) error
	Provider() string
}

// BulkResult aggregates a fan-out.
type BulkResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// Add merges another result into r.
func (r *BulkResult) Add(o BulkResult) {
	r.Successful += o.Successful
	r.Failed += o.Failed
	r.Errors = append(r.Errors, o.Errors...)
}

const maxConcurrentSends = 8

// SendAll makes one delivery attempt per message concurrently. A failed
// message is counted and logged; it never cancels the others and no error
// escapes to the caller.
func SendAll(ctx context.Context, mailer Mailer, msgs []Message, log logger.Logger) BulkResult {
	var (
		mu     sync.Mutex
		result BulkResult
	)

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentSends)
	for _, msg := range msgs {
		msg := msg
		g.Go(func() error {
			_, err := Deliver(ctx, mailer, msg, log)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, msg.To+": "+err.Error())
				return nil
			}
			result.Successful++
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// Deliver sends one message, recording metrics and logging failures.
func Deliver(ctx context.Context, mailer Mailer, msg Message, log logger.Logger) (string, error) {
	id, err := mailer.Send(ctx, msg)
	metrics.EmailsSent.WithLabelValues(mailer.Provider(), metrics.Result(err)).Inc()
	if err != nil {
		log.Warn("email delivery failed", map[string]interface{}{
			"to":       msg.To,
			"subject":  msg.Subject,
			"provider": mailer.Provider(),
			"policy":   string(FailurePolicy),
			"error":    err,
		})
		return "", err
	}
	return id, nil
}

func isValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && strings.Contains(email[at+1:], ".")
}
