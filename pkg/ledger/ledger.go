// Package ledger provides a bounded, observable, in-memory store of
// transaction submission attempts. The submitter writes to it on every state
// change; any collaborator (UI, logs, tests) can read it or subscribe to
// snapshots. It is the single source of truth for what actually happened to a
// send, even when the caller stopped waiting for the result.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zunokit/zunogo/pkg/observable"
	"github.com/zunokit/zunogo/pkg/observable/channel"
)

// snapshotPublisher is the subset of the replay observable the ledger uses to
// fan out snapshots.
type snapshotPublisher interface {
	observable.ReplayObservable[[]Entry]
	Publish([]Entry)
}

// Ledger is a concurrency-safe store of submission attempts. Mutations are
// applied atomically per call; after every mutation, subscribers receive a
// fresh snapshot (newest entry first) corresponding to exactly one completed
// mutation.
type Ledger struct {
	// mu serializes all mutations and snapshot publications.
	mu sync.Mutex
	// entries holds entries in insertion order, oldest first.
	entries []*Entry
	// byID indexes entries for O(1) lookup.
	byID map[string]*Entry

	maxEntries     int
	strictCanRetry bool

	// snapshots replays the latest snapshot to new subscribers (buffer of 1),
	// then delivers one snapshot per subsequent mutation.
	snapshots snapshotPublisher
}

// New constructs an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		byID:       make(map[string]*Entry),
		maxEntries: DefaultMaxEntries,
		snapshots:  channel.NewReplayObservable[[]Entry](1),
	}

	for _, opt := range opts {
		opt(l)
	}

	// Seed the replay buffer so the first subscriber receives the (empty)
	// current snapshot immediately.
	l.snapshots.Publish(nil)

	return l
}

var (
	defaultMu     sync.Mutex
	defaultLedger *Ledger
)

// Default returns the shared process-wide ledger. It exists for convenience
// only; engines should prefer owning an explicit instance.
func Default() *Ledger {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLedger == nil {
		defaultLedger = New()
	}
	return defaultLedger
}

// ResetDefault replaces the shared ledger with a fresh one. Intended for test
// isolation.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLedger != nil {
		defaultLedger.Close()
	}
	defaultLedger = nil
}

// Add stores the entry, assigns it a new unique id, initializes its retry
// bookkeeping, and returns the id. If the store exceeds its maximum entry
// count, the oldest entry is evicted.
func (l *Ledger) Add(entry Entry) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.ID = uuid.NewString()
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.RetryCount = 0
	entry.PreviousAttempts = nil
	entry.CanRetry = computeCanRetry(entry.Status, entry.RetryCount, entry.MaxRetries)

	l.entries = append(l.entries, &entry)
	l.byID[entry.ID] = &entry
	l.trimLocked()

	l.publishLocked()
	return entry.ID
}

// Update applies a partial update to the entry with the given id.
//
// CanRetry recomputation rule: by default, Update does NOT recompute CanRetry,
// so an entry's CanRetry can remain true after its status is later updated to
// success via a partial update. Existing consumers rely on this; construct the
// ledger with WithStrictCanRetry to opt into the corrected invariant. The
// dedicated transition methods (RecordRetry, RetrySuccess, RetryFailed) always
// recompute.
func (l *Ledger) Update(id string, update EntryUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byID[id]
	if !ok {
		return ErrEntryNotFound.Wrapf("id: %s", id)
	}

	if update.Hash != nil {
		entry.Hash = *update.Hash
	}
	if update.Status != nil {
		entry.Status = *update.Status
	}
	if update.GasUsed != nil {
		entry.GasUsed = *update.GasUsed
	}
	if update.Error != nil {
		entry.Error = *update.Error
	}

	if l.strictCanRetry {
		entry.CanRetry = computeCanRetry(entry.Status, entry.RetryCount, entry.MaxRetries)
	}

	l.publishLocked()
	return nil
}

// RecordRetry appends one attempt record capturing the failed attempt,
// increments the retry count, moves the entry to StatusRetrying, and
// recomputes CanRetry. newHash, when non-empty, becomes the entry's current
// broadcast identifier; the attempt record keeps the previous one.
func (l *Ledger) RecordRetry(id, attemptErr, newHash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byID[id]
	if !ok {
		return ErrEntryNotFound.Wrapf("id: %s", id)
	}
	if entry.Status == StatusSuccess {
		return ErrInvalidTransition.Wrapf("cannot retry entry %s in status %s", id, entry.Status)
	}
	if entry.RetryCount >= entry.MaxRetries {
		return ErrRetriesExhausted.Wrapf("id: %s, maxRetries: %d", id, entry.MaxRetries)
	}

	entry.PreviousAttempts = append(entry.PreviousAttempts, Attempt{
		AttemptNumber: entry.RetryCount + 1,
		Timestamp:     time.Now(),
		Error:         attemptErr,
		Hash:          entry.Hash,
	})
	entry.RetryCount++
	entry.Status = StatusRetrying
	if newHash != "" {
		entry.Hash = newHash
	}
	entry.CanRetry = computeCanRetry(entry.Status, entry.RetryCount, entry.MaxRetries)

	l.publishLocked()
	return nil
}

// RetrySuccess moves the entry to StatusSuccess, recording the confirming
// hash and gas used. The entry is terminal afterwards.
func (l *Ledger) RetrySuccess(id, hash, gasUsed string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byID[id]
	if !ok {
		return ErrEntryNotFound.Wrapf("id: %s", id)
	}

	entry.Status = StatusSuccess
	if hash != "" {
		entry.Hash = hash
	}
	if gasUsed != "" {
		entry.GasUsed = gasUsed
	}
	entry.Error = ""
	entry.CanRetry = false

	l.publishLocked()
	return nil
}

// RetryFailed moves the entry to StatusFailed with the given error and
// recomputes CanRetry, which remains true only while the retry budget is not
// exhausted.
func (l *Ledger) RetryFailed(id, failureErr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byID[id]
	if !ok {
		return ErrEntryNotFound.Wrapf("id: %s", id)
	}
	if entry.Status == StatusSuccess {
		return ErrInvalidTransition.Wrapf("cannot fail entry %s in status %s", id, entry.Status)
	}

	entry.Status = StatusFailed
	entry.Error = failureErr
	entry.CanRetry = computeCanRetry(entry.Status, entry.RetryCount, entry.MaxRetries)

	l.publishLocked()
	return nil
}

// GetAll returns a snapshot of all entries, newest first.
func (l *Ledger) GetAll() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshotLocked()
}

// GetByID returns a copy of the entry with the given id.
func (l *Ledger) GetByID(id string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byID[id]
	if !ok {
		return Entry{}, false
	}
	return entry.clone(), true
}

// GetByStatus returns all entries with the given status, newest first.
func (l *Ledger) GetByStatus(status Status) []Entry {
	return l.filter(func(e *Entry) bool { return e.Status == status })
}

// GetByModule returns all entries with the given module label, newest first.
func (l *Ledger) GetByModule(module string) []Entry {
	return l.filter(func(e *Entry) bool { return e.Module == module })
}

// GetFailedRetryable returns all failed entries with retry budget remaining,
// newest first.
func (l *Ledger) GetFailedRetryable() []Entry {
	return l.filter(func(e *Entry) bool { return e.Status == StatusFailed && e.CanRetry })
}

// Subscribe returns an observer which is immediately notified with the
// current snapshot and subsequently with a fresh snapshot after every
// mutation. Unsubscribing (or canceling ctx) stops delivery.
func (l *Ledger) Subscribe(ctx context.Context) observable.Observer[[]Entry] {
	// Hold the mutex so the replayed snapshot and subsequent mutation
	// snapshots cannot interleave.
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshots.Subscribe(ctx)
}

// SetMaxEntries reconfigures the retention bound, evicting oldest entries
// immediately if the store already exceeds it. Values <= 0 disable trimming.
func (l *Ledger) SetMaxEntries(maxEntries int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maxEntries = maxEntries
	if l.trimLocked() {
		l.publishLocked()
	}
}

// Clear removes all entries.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.byID = make(map[string]*Entry)
	l.publishLocked()
}

// Close unsubscribes all snapshot observers. The ledger remains usable for
// reads and writes afterwards; only delivery stops.
func (l *Ledger) Close() {
	l.snapshots.UnsubscribeAll()
}

func (l *Ledger) filter(keep func(*Entry) bool) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if keep(l.entries[i]) {
			result = append(result, l.entries[i].clone())
		}
	}
	return result
}

// trimLocked evicts oldest entries until the store fits maxEntries, reporting
// whether anything was evicted. It MUST be called with mu held.
func (l *Ledger) trimLocked() bool {
	if l.maxEntries <= 0 {
		return false
	}

	trimmed := false
	for len(l.entries) > l.maxEntries {
		oldest := l.entries[0]
		l.entries = l.entries[1:]
		delete(l.byID, oldest.ID)
		trimmed = true
	}
	return trimmed
}

// snapshotLocked builds a deep-copied snapshot, newest first. It MUST be
// called with mu held.
func (l *Ledger) snapshotLocked() []Entry {
	snapshot := make([]Entry, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		snapshot = append(snapshot, l.entries[i].clone())
	}
	return snapshot
}

// publishLocked delivers a fresh snapshot to all subscribers. It MUST be
// called with mu held so that each published snapshot corresponds to exactly
// one completed mutation.
func (l *Ledger) publishLocked() {
	l.snapshots.Publish(l.snapshotLocked())
}
