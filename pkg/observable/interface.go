package observable

import "context"

// NOTE: We explicitly decided to keep a small, custom notifications package
// rather than pulling in a reactive streams library. The SDK only needs
// fan-out with optional replay; anything more can be reconsidered later.

// Observable is a generic interface that allows multiple subscribers to be
// notified of published values. It is analogous to a publisher in a
// "Fan-Out" system design.
type Observable[V any] interface {
	// Subscribe returns an observer which is notified of every value published
	// after the subscription was taken. The order of delivery to any single
	// observer is FIFO with respect to publication order.
	Subscribe(ctx context.Context) Observer[V]
	// UnsubscribeAll unsubscribes and removes all observers from the observable.
	UnsubscribeAll()
}

// ReplayObservable is an observable which replays the last n published values
// to new observers before delivering new values to them.
type ReplayObservable[V any] interface {
	Observable[V]
	// Last synchronously returns up to n of the most recently published
	// values, newest last.
	Last(n int) []V
}

// Observer is a generic interface that provides access to the notified
// channel and allows unsubscribing from an Observable. It is analogous to
// a subscriber in a "Fan-Out" system design.
type Observer[V any] interface {
	// Unsubscribe closes the subscription channel and removes the subscription
	// from the observable.
	Unsubscribe()
	// Ch returns a receive-only subscription channel.
	Ch() <-chan V
	// IsClosed returns true if the observer has been unsubscribed.
	// A closed observer cannot be reused.
	IsClosed() bool
}
