package room

import "go.uber.org/atomic"

// Ticket is the owned half of a pending destruction. The room holds it while
// it has no members and drops it when someone joins again.
type Ticket struct {
	dropped *atomic.Bool
}

// Observation is the read-only half handed to the manager. It must be checked
// only at the moment the manager is about to retire the room.
type Observation struct {
	dropped *atomic.Bool
}

func NewTicket() (*Ticket, Observation) {
	dropped := atomic.NewBool(false)
	return &Ticket{dropped: dropped}, Observation{dropped: dropped}
}

func (t *Ticket) Drop() {
	t.dropped.Store(true)
}

// Dropped reports whether the ticket was dropped. A zero Observation counts
// as dropped.
func (o Observation) Dropped() bool {
	if o.dropped == nil {
		return true
	}

	return o.dropped.Load()
}
