package ledger

import "time"

// Status is a ledger entry's position in its lifecycle state machine:
//
//	pending → success                     (terminal)
//	pending → retrying → … → failed       (terminal once retries are exhausted)
//	retrying → success                    (recovered)
//
// No transition leaves StatusSuccess, or StatusFailed once the retry budget
// is exhausted.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusRetrying Status = "retrying"
)

// Attempt is one record of a failed attempt in an entry's retry history.
type Attempt struct {
	// AttemptNumber is one-based and strictly increasing within an entry.
	AttemptNumber int       `json:"attemptNumber"`
	Timestamp     time.Time `json:"timestamp"`
	// Error is the failure which triggered the retry.
	Error string `json:"error"`
	// Hash is the broadcast identifier of the failed attempt, when it had one.
	Hash string `json:"hash,omitempty"`
}

// Entry is one transaction submission and its full retry history. The field
// set is a structural contract shared with downstream consumers (UIs, logs);
// renaming or removing fields is a breaking change.
type Entry struct {
	// ID is opaque, assigned by the ledger at Add time, and never reused.
	ID string `json:"id"`
	// Hash is the current broadcast identifier; it may change across retries.
	Hash string `json:"hash"`
	// Action and Module are caller-supplied labels.
	Action string `json:"action"`
	Module string `json:"module"`
	Status Status `json:"status"`
	// RetryCount is the number of retries performed so far; it never exceeds
	// MaxRetries, which is fixed at creation.
	RetryCount int `json:"retryCount"`
	MaxRetries int `json:"maxRetries"`
	// CanRetry is derived: true only when Status is failed and RetryCount is
	// below MaxRetries. See Ledger for the recomputation rule and its known
	// quirk.
	CanRetry bool `json:"canRetry"`
	// PreviousAttempts is append-only; its length always equals RetryCount.
	PreviousAttempts []Attempt `json:"previousAttempts"`
	// GasUsed and Error are set on terminal states.
	GasUsed string `json:"gasUsed,omitempty"`
	Error   string `json:"error,omitempty"`
	// Timestamp is the entry creation time.
	Timestamp time.Time `json:"timestamp"`
}

// clone returns a deep copy so that snapshot holders never observe later
// mutations.
func (e *Entry) clone() Entry {
	clone := *e
	clone.PreviousAttempts = make([]Attempt, len(e.PreviousAttempts))
	copy(clone.PreviousAttempts, e.PreviousAttempts)
	return clone
}

// EntryUpdate is a partial update applied by Ledger#Update. Nil fields are
// left untouched.
type EntryUpdate struct {
	Hash    *string
	Status  *Status
	GasUsed *string
	Error   *string
}

// computeCanRetry is the derived-flag rule shared by all ledger transitions.
func computeCanRetry(status Status, retryCount, maxRetries int) bool {
	return status == StatusFailed && retryCount < maxRetries
}
