package ledger

// DefaultMaxEntries is the entry count above which the oldest entries are
// evicted.
const DefaultMaxEntries = 100

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithMaxEntries sets the maximum number of entries the ledger retains.
// Values <= 0 disable trimming.
func WithMaxEntries(maxEntries int) Option {
	return func(l *Ledger) {
		l.maxEntries = maxEntries
	}
}

// WithStrictCanRetry opts into the corrected CanRetry invariant: every
// mutation, including partial updates, recomputes CanRetry from the entry's
// status and retry counters, so an entry can never remain retryable once its
// status is success.
//
// In the default (non-strict) mode a partial Update does not touch CanRetry:
// flipping a failed-but-retryable entry to success via Update leaves CanRetry
// stale at true. This quirk is documented and relied upon by existing
// consumers; see the package tests.
func WithStrictCanRetry() Option {
	return func(l *Ledger) {
		l.strictCanRetry = true
	}
}
