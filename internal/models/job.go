package models

import "time"

// ModerationVerdict records how a posting cleared (or failed) content screening.
type ModerationVerdict string

const (
	VerdictAutoApproved ModerationVerdict = "auto-approved"
	VerdictFlagged      ModerationVerdict = "flagged"
	VerdictManual       ModerationVerdict = "manual"
	VerdictRejected     ModerationVerdict = "rejected"
)

// ReviewStatus is the admin review state of a posting.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type JobPosting struct {
	ID               string            `json:"id"`
	EmployerID       string            `json:"employerId"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	District         string            `json:"district"`
	Block            string            `json:"block,omitempty"`
	Salary           string            `json:"salary,omitempty"`
	Skills           []string          `json:"skills"`
	EmploymentType   string            `json:"employmentType,omitempty"`
	IsPublic         bool              `json:"isPublic"`
	Moderation       ModerationVerdict `json:"moderation"`
	ModerationReason string            `json:"moderationReason,omitempty"`
	Status           ReviewStatus      `json:"status"`
	PublishAt        *time.Time        `json:"publishAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Visible reports whether the posting may be shown publicly.
func (j *JobPosting) Visible() bool {
	return j.Status == ReviewApproved && j.IsPublic
}

// DueForPublish reports whether an approved, scheduled posting has reached its publish time.
func (j *JobPosting) DueForPublish(now time.Time) bool {
	return j.Status == ReviewApproved && !j.IsPublic && j.PublishAt != nil && !j.PublishAt.After(now)
}
