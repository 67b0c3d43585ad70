package verification

import "context"

// Status is the IDV state of one applicant.
type Status string

const (
	// StatusNone means no SIOPv2 response has been seen for the applicant.
	StatusNone Status = "none"
	// StatusPending means the applicant was handed to the IDV vendor and no
	// completion notice has arrived yet.
	StatusPending Status = "idv-pending"
	// StatusCompleted is terminal: the IDV vendor reported completion.
	StatusCompleted Status = "idv-completed"
)

// StatusStore tracks per-applicant IDV state, keyed by applicant DID.
//
// The transition rules live in the store so every implementation preserves
// them under concurrent access: status is monotonic NONE -> PENDING ->
// COMPLETED, an absent applicant reads as NONE, and COMPLETED never reverts.
type StatusStore interface {
	// Get returns the applicant's status; StatusNone when unknown.
	Get(ctx context.Context, applicantDID string) (Status, error)

	// MarkPending moves NONE to PENDING. It is a no-op for applicants
	// already PENDING or COMPLETED.
	MarkPending(ctx context.Context, applicantDID string) error

	// MarkCompleted moves the applicant to COMPLETED. Idempotent.
	MarkCompleted(ctx context.Context, applicantDID string) error
}
