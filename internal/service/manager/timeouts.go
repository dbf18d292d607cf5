package manager

import (
	"cmp"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/syncroom/internal/service/room"
	"golang.org/x/exp/slices"
)

// timeoutKey orders by expiry first; seq breaks ties so no two keys compare equal.
type timeoutKey struct {
	at  time.Time
	seq uint64
}

func (k timeoutKey) compare(o timeoutKey) int {
	if c := k.at.Compare(o.at); c != 0 {
		return c
	}

	return cmp.Compare(k.seq, o.seq)
}

type timeout struct {
	key    timeoutKey
	roomID uuid.UUID
	obs    room.Observation
	room   *room.Handle
}

// timeoutQueue keeps pending retirements sorted by key.
type timeoutQueue struct {
	entries []timeout
	seq     uint64
}

func (q *timeoutQueue) push(at time.Time, roomID uuid.UUID, obs room.Observation, h *room.Handle) timeoutKey {
	q.seq++
	key := timeoutKey{at: at, seq: q.seq}

	i, _ := slices.BinarySearchFunc(q.entries, key, func(e timeout, k timeoutKey) int {
		return e.key.compare(k)
	})
	q.entries = slices.Insert(q.entries, i, timeout{
		key:    key,
		roomID: roomID,
		obs:    obs,
		room:   h,
	})

	return key
}

// next returns the earliest expiry.
func (q *timeoutQueue) next() (time.Time, bool) {
	if len(q.entries) == 0 {
		return time.Time{}, false
	}

	return q.entries[0].key.at, true
}

// popDue removes and returns every entry expiring at or before now, in order.
func (q *timeoutQueue) popDue(now time.Time) []timeout {
	n := 0
	for n < len(q.entries) && !q.entries[n].key.at.After(now) {
		n++
	}

	due := slices.Clone(q.entries[:n])
	q.entries = slices.Delete(q.entries, 0, n)
	return due
}

func (q *timeoutQueue) len() int {
	return len(q.entries)
}
