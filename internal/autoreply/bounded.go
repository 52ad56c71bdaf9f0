package autoreply

// boundedMap is a capacity-bounded map with touch ordering. Both the dedupe
// ledger and the contact history are built on it so the growth control lives
// in one place instead of ad hoc size checks at call sites.
//
// When Put pushes the size past cap, the oldest evictBatch entries are
// dropped. Entries are ordered by last Put (a Put on an existing key moves
// it to the back), so eviction always removes the least-recently-written
// keys first.
//
// Not safe for concurrent use; callers serialize access.
type boundedMap[V any] struct {
	cap        int
	evictBatch int
	order      []string
	values     map[string]V
}

func newBoundedMap[V any](capacity, evictBatch int) *boundedMap[V] {
	if capacity <= 0 {
		capacity = 1
	}
	if evictBatch <= 0 {
		evictBatch = 1
	}
	if evictBatch > capacity {
		evictBatch = capacity
	}
	return &boundedMap[V]{
		cap:        capacity,
		evictBatch: evictBatch,
		values:     make(map[string]V),
	}
}

func (b *boundedMap[V]) Len() int { return len(b.order) }

func (b *boundedMap[V]) Has(key string) bool {
	_, ok := b.values[key]
	return ok
}

func (b *boundedMap[V]) Get(key string) (V, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Put inserts or updates key, moving it to the most-recent position, then
// evicts the oldest batch if the map grew past capacity.
func (b *boundedMap[V]) Put(key string, value V) {
	if _, exists := b.values[key]; exists {
		for i, k := range b.order {
			if k == key {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
	b.order = append(b.order, key)
	b.values[key] = value

	if len(b.order) > b.cap {
		drop := b.evictBatch
		if drop > len(b.order) {
			drop = len(b.order)
		}
		for _, k := range b.order[:drop] {
			delete(b.values, k)
		}
		b.order = append([]string(nil), b.order[drop:]...)
	}
}

// Oldest returns the least-recently-written key, or "" when empty.
func (b *boundedMap[V]) Oldest() string {
	if len(b.order) == 0 {
		return ""
	}
	return b.order[0]
}
