package core

import "sync"

// EventSink receives the auction's notifications in emission order.
type EventSink interface {
	Emit(e Event)
}

// EventLog is an append-only, hash-chained, in-memory EventSink.
// It is safe for concurrent use.
type EventLog struct {
	mu     sync.RWMutex
	events []Event
	head   string
}

// NewEventLog returns an empty EventLog.
func NewEventLog() *EventLog {
	return &EventLog{events: make([]Event, 0)}
}

// Emit assigns the next sequence number, chains the event to the current head and appends it.
func (l *EventLog) Emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.Sequence = uint64(len(l.events) + 1)
	e.PrevHash = l.head
	e.Hash = ComputeEventHash(l.head, e)

	l.events = append(l.events, e)
	l.head = e.Hash
}

// Since returns a copy of all events with a sequence number greater than seq.
func (l *EventLog) Since(seq uint64) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq >= uint64(len(l.events)) {
		return []Event{}
	}
	out := make([]Event, len(l.events)-int(seq))
	copy(out, l.events[seq:])
	return out
}

// Head returns the number of events and the hash of the last one ("" when empty).
func (l *EventLog) Head() (int, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events), l.head
}
