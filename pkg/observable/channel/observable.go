package channel

import (
	"context"
	"sync"

	"github.com/zunokit/zunogo/pkg/observable"
)

var _ observable.Observable[any] = (*channelObservable[any])(nil)

// channelObservable implements the observable.Observable interface. Values
// are delivered to observers synchronously from Publish, each observer
// draining its own buffered channel.
type channelObservable[V any] struct {
	// observersMu protects the observers list from concurrent access.
	observersMu sync.RWMutex
	// observers is the list of currently subscribed observers.
	observers []*channelObserver[V]
}

// NewObservable creates a new observable which is notified via its Publish
// method.
func NewObservable[V any]() *channelObservable[V] {
	return &channelObservable[V]{}
}

// Subscribe returns an observer which is notified when Publish is called.
// Callers can rely on context cancellation or call Unsubscribe() to stop
// delivery to the returned observer.
func (obs *channelObservable[V]) Subscribe(ctx context.Context) observable.Observer[V] {
	obs.observersMu.Lock()
	defer obs.observersMu.Unlock()

	observer := newObserver[V](ctx, obs.remove)
	obs.observers = append(obs.observers, observer)

	if ctx != nil {
		// Asynchronously wait for the context to be done and unsubscribe.
		go goUnsubscribeOnDone[V](ctx, observer)
	}
	return observer
}

// Publish notifies all subscribed observers of the given value. Delivery to
// each observer's channel completes before Publish returns, so a sequence of
// Publish calls is observed by every observer in publication order.
func (obs *channelObservable[V]) Publish(value V) {
	obs.observersMu.RLock()
	observers := make([]*channelObserver[V], len(obs.observers))
	copy(observers, obs.observers)
	obs.observersMu.RUnlock()

	for _, observer := range observers {
		observer.notify(value)
	}
}

// UnsubscribeAll unsubscribes and removes all observers from the observable.
func (obs *channelObservable[V]) UnsubscribeAll() {
	obs.observersMu.RLock()
	observers := make([]*channelObserver[V], len(obs.observers))
	copy(observers, obs.observers)
	obs.observersMu.RUnlock()

	for _, observer := range observers {
		observer.Unsubscribe()
	}
}

// remove deletes the given observer from the observable's observers list.
// It is passed to observers at construction time as their onUnsubscribe hook.
func (obs *channelObservable[V]) remove(toRemove *channelObserver[V]) {
	obs.observersMu.Lock()
	defer obs.observersMu.Unlock()

	for i, observer := range obs.observers {
		if observer == toRemove {
			obs.observers = append(obs.observers[:i], obs.observers[i+1:]...)
			break
		}
	}
}

// goUnsubscribeOnDone unsubscribes the observer when the context is done. It
// returns without unsubscribing if the observer is closed first. It is
// blocking and intended to be called in a goroutine.
func goUnsubscribeOnDone[V any](ctx context.Context, observer *channelObserver[V]) {
	select {
	case <-ctx.Done():
		observer.Unsubscribe()
	case <-observer.closedCh:
	}
}
