package autoreply

const (
	defaultLedgerCap = 1000
)

// Ledger records message ids already handed to the orchestrator so a
// message is never replied to twice in one process lifetime. The cap is
// approximate: when exceeded, the oldest half is discarded, which can
// re-admit very old ids (a re-processed message) but never skips an id
// that was not added.
//
// Not safe for concurrent use; the scheduler guarantees single-flight
// access.
type Ledger struct {
	seen *boundedMap[struct{}]
}

func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = defaultLedgerCap
	}
	return &Ledger{seen: newBoundedMap[struct{}](capacity, capacity/2)}
}

func (l *Ledger) Has(id string) bool {
	return l.seen.Has(id)
}

func (l *Ledger) Add(id string) {
	l.seen.Put(id, struct{}{})
}

func (l *Ledger) Len() int {
	return l.seen.Len()
}
