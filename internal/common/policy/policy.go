// Package policy names how each integration point behaves when its upstream fails.
package policy

// FailurePolicy is logged alongside every swallowed upstream failure.
type FailurePolicy string

const (
	// FailClosed substitutes the conservative answer (e.g. "not safe").
	FailClosed FailurePolicy = "fail-closed"
	// BestEffort drops the optional output and carries on without it.
	BestEffort FailurePolicy = "best-effort"
	// LogAndContinue records the failure but never fails the caller's primary action.
	LogAndContinue FailurePolicy = "log-and-continue"
)
