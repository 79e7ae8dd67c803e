package checkjobsafety

import (
	"signalx/internal/models"
	"signalx/internal/moderation"
)

type Input struct {
	JobID       string `json:"jobId,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Output is merged into the process variables.
type Output struct {
	Safe       bool                     `json:"safe"`
	Reason     string                   `json:"reason,omitempty"`
	Source     moderation.Source        `json:"moderationSource"`
	Moderation models.ModerationVerdict `json:"moderation"`
	Status     models.ReviewStatus      `json:"reviewStatus"`
	IsPublic   bool                     `json:"isPublic"`
}
