package moderation

import "signalx/internal/models"

// Outcome is what a verdict means for a newly submitted posting.
type Outcome struct {
	Moderation models.ModerationVerdict
	Status     models.ReviewStatus
	IsPublic   bool
}

// Decision maps a verdict onto posting fields. Safe postings go live at once;
// everything else waits for an admin, marked manual when no model judged it.
func Decision(v Verdict) Outcome {
	if v.Safe {
		return Outcome{Moderation: models.VerdictAutoApproved, Status: models.ReviewApproved, IsPublic: true}
	}
	if v.Fallback() {
		return Outcome{Moderation: models.VerdictManual, Status: models.ReviewPending}
	}
	return Outcome{Moderation: models.VerdictFlagged, Status: models.ReviewPending}
}
