package channel

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zunokit/zunogo/pkg/observable"
)

// defaultSubscribeBufferSize is the buffer size of a channelObserver's channel.
// It bounds how far any single observer may lag behind the publisher before
// backpressure is applied (see channelObserver#notify).
const defaultSubscribeBufferSize = 50

var _ observable.Observer[any] = (*channelObserver[any])(nil)

// channelObserver implements the observable.Observer interface.
type channelObserver[V any] struct {
	ctx context.Context
	// onUnsubscribe removes this observer from the respective observable's
	// observers list in a concurrency-safe manner.
	onUnsubscribe func(toRemove *channelObserver[V])
	// observerMu protects the observerCh and isClosed fields.
	observerMu sync.Mutex
	// observerCh is the channel used to emit values to the observer, i.e. the
	// "N" side of the 1:N relationship between observable and observer.
	observerCh chan V
	// closedCh is closed on unsubscribe so that goroutines watching this
	// observer (e.g. the context watcher) can return.
	closedCh chan struct{}
	// isClosed is set in unsubscribe; closed observers can't be reused.
	isClosed bool
}

func newObserver[V any](
	ctx context.Context,
	onUnsubscribe func(toRemove *channelObserver[V]),
) *channelObserver[V] {
	return &channelObserver[V]{
		ctx:           ctx,
		observerCh:    make(chan V, defaultSubscribeBufferSize),
		closedCh:      make(chan struct{}),
		onUnsubscribe: onUnsubscribe,
	}
}

// Unsubscribe closes the subscription channel and removes the subscription
// from the observable.
func (obsvr *channelObserver[V]) Unsubscribe() {
	obsvr.observerMu.Lock()
	defer obsvr.observerMu.Unlock()

	if obsvr.isClosed {
		ctx := obsvr.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		// Log redundant unsubscribes so an extreme change in their frequency
		// would be obvious.
		zerolog.Ctx(ctx).Warn().
			Err(observable.ErrObserverClosed).
			Msg("redundant unsubscribe")
		return
	}

	obsvr.isClosed = true
	close(obsvr.observerCh)
	close(obsvr.closedCh)
	obsvr.onUnsubscribe(obsvr)
}

// Ch returns a receive-only subscription channel.
func (obsvr *channelObserver[V]) Ch() <-chan V {
	return obsvr.observerCh
}

// IsClosed returns true if the observer has been unsubscribed.
func (obsvr *channelObserver[V]) IsClosed() bool {
	obsvr.observerMu.Lock()
	defer obsvr.observerMu.Unlock()

	return obsvr.isClosed
}

// notify sends a value on the observer's channel. We can't use
// channelObserver#Ch because it's intended to be a receive-only channel.
//
// observerMu must remain locked until the value is sent on observerCh in the
// event that the observer is closed concurrently, which would otherwise cause
// a send on a closed channel.
//
// When the observer's buffer is full, the oldest buffered value is dropped to
// make room so that a slow observer cannot stall the publisher.
func (obsvr *channelObserver[V]) notify(value V) {
	obsvr.observerMu.Lock()
	defer obsvr.observerMu.Unlock()

	if obsvr.isClosed {
		return
	}

	for {
		select {
		case obsvr.observerCh <- value:
			return
		default:
			// Buffer full; drop the oldest value and retry the send.
			select {
			case <-obsvr.observerCh:
			default:
			}
		}
	}
}
