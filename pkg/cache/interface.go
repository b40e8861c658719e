package cache

// KeyValueCache is a key/value store style interface for a cache of a single type.
// It is intended to be used to cache arbitrary data, where each key uniquely indexes
// the most recently observed version of the data associated with that key.
type KeyValueCache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Clear()
	// Keys returns the keys of all values currently held, in no particular order.
	Keys() []string
	Len() int
}
