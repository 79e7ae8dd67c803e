package models

import "time"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// ParseApplicationStatus rejects unknown status strings.
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	switch st := ApplicationStatus(s); st {
	case ApplicationPending, ApplicationAccepted, ApplicationRejected:
		return st, true
	}
	return "", false
}

// IsDecision reports whether s is a terminal decision.
func (s ApplicationStatus) IsDecision() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// ApplicationRecord links a worker to a job posting.
type ApplicationRecord struct {
	ID          string            `json:"id"`
	WorkerID    string            `json:"workerId"`
	JobID       string            `json:"jobId"`
	Status      ApplicationStatus `json:"status"`
	SubmittedAt time.Time         `json:"submittedAt"`
	DecidedAt   *time.Time        `json:"decidedAt,omitempty"`
}
