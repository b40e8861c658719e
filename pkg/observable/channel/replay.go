package channel

import (
	"context"
	"sync"

	"github.com/zunokit/zunogo/pkg/observable"
)

var _ observable.ReplayObservable[any] = (*replayObservable[any])(nil)

// replayObservable wraps a channelObservable, buffering the last
// replayBufferSize published values so that they can be replayed to new
// observers before any new values are delivered to them.
type replayObservable[V any] struct {
	*channelObservable[V]
	// replayBufferSize is the number of notifications to buffer for replay.
	replayBufferSize int
	// replayBufferMu protects replayBuffer from concurrent access/updates.
	replayBufferMu sync.RWMutex
	// replayBuffer holds the last replayBufferSize published values, oldest first.
	replayBuffer []V
}

// NewReplayObservable returns a new ReplayObservable with the given replay
// buffer size.
func NewReplayObservable[V any](replayBufferSize int) *replayObservable[V] {
	return &replayObservable[V]{
		channelObservable: NewObservable[V](),
		replayBufferSize:  replayBufferSize,
		replayBuffer:      make([]V, 0, replayBufferSize),
	}
}

// Subscribe returns an observer which is first notified of all values in the
// replay buffer (oldest first) and is subsequently notified of newly published
// values.
func (ro *replayObservable[V]) Subscribe(ctx context.Context) observable.Observer[V] {
	ro.replayBufferMu.RLock()
	defer ro.replayBufferMu.RUnlock()

	ro.observersMu.Lock()
	observer := newObserver[V](ctx, ro.remove)

	// Replay all buffered values to the observer's channel buffer before it
	// is added to the observers list, i.e. before any new values can be
	// delivered to it.
	for _, notification := range ro.replayBuffer {
		observer.notify(notification)
	}

	ro.observers = append(ro.observers, observer)
	ro.observersMu.Unlock()

	if ctx != nil {
		go goUnsubscribeOnDone[V](ctx, observer)
	}
	return observer
}

// Publish appends the value to the replay buffer, evicting the oldest
// buffered value if full, and then notifies all subscribed observers.
func (ro *replayObservable[V]) Publish(value V) {
	ro.replayBufferMu.Lock()
	if len(ro.replayBuffer) < ro.replayBufferSize {
		ro.replayBuffer = append(ro.replayBuffer, value)
	} else {
		ro.replayBuffer = append(ro.replayBuffer[1:], value)
	}
	ro.replayBufferMu.Unlock()

	ro.channelObservable.Publish(value)
}

// Last synchronously returns up to n of the most recently published values
// from the replay buffer, newest last. If n is greater than the replay buffer
// length, the entire replay buffer is returned.
func (ro *replayObservable[V]) Last(n int) []V {
	ro.replayBufferMu.RLock()
	defer ro.replayBufferMu.RUnlock()

	if n > len(ro.replayBuffer) {
		n = len(ro.replayBuffer)
	}

	values := make([]V, n)
	copy(values, ro.replayBuffer[len(ro.replayBuffer)-n:])
	return values
}
