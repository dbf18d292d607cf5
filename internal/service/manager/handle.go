package manager

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/service/room"
)

// Session is a member's seat in a room: the room to leave later and the
// stream of updates it now receives.
type Session struct {
	Room    *room.Handle
	Updates *room.Subscription
}

type Stats struct {
	Rooms              []domain.RoomEntry `json:"rooms"`
	PendingRetirements int                `json:"pending_retirements"`
}

type joinOrMakeMsg struct {
	name     string
	memberID uuid.UUID
	reply    chan joinOrMakeReply
}

type joinOrMakeReply struct {
	session *Session
	err     error
}

type lookupMsg struct {
	name  string
	reply chan lookupReply
}

type lookupReply struct {
	entry  domain.RoomEntry
	handle *room.Handle
	ok     bool
}

type statsMsg struct {
	reply chan Stats
}

// Handle is the entry point the connection layer uses.
type Handle struct {
	requests chan<- any
	done     <-chan struct{}
}

func (h *Handle) send(ctx context.Context, msg any) error {
	select {
	case h.requests <- msg:
		return nil
	case <-h.done:
		return ErrManagerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinOrMake joins memberID to the room called name, creating it if needed.
func (h *Handle) JoinOrMake(ctx context.Context, name string, memberID uuid.UUID) (*Session, error) {
	reply := make(chan joinOrMakeReply, 1)
	if err := h.send(ctx, joinOrMakeMsg{name: name, memberID: memberID, reply: reply}); err != nil {
		return nil, fmt.Errorf("failed to send join or make: %w", err)
	}

	select {
	case r := <-reply:
		return r.session, r.err
	case <-h.done:
		return nil, ErrManagerClosed
	case <-ctx.Done():
		// the join may still complete; give the seat back if it does
		go func() {
			select {
			case r := <-reply:
				if r.err == nil {
					_ = r.session.Room.Leave(context.Background(), memberID)
				}
			case <-h.done:
			}
		}()
		return nil, ctx.Err()
	}
}

// Lookup returns the registry entry and handle of the room called name.
func (h *Handle) Lookup(ctx context.Context, name string) (domain.RoomEntry, *room.Handle, bool, error) {
	reply := make(chan lookupReply, 1)
	if err := h.send(ctx, lookupMsg{name: name, reply: reply}); err != nil {
		return domain.RoomEntry{}, nil, false, fmt.Errorf("failed to send lookup: %w", err)
	}

	select {
	case r := <-reply:
		return r.entry, r.handle, r.ok, nil
	case <-h.done:
		return domain.RoomEntry{}, nil, false, ErrManagerClosed
	case <-ctx.Done():
		return domain.RoomEntry{}, nil, false, ctx.Err()
	}
}

func (h *Handle) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := h.send(ctx, statsMsg{reply: reply}); err != nil {
		return Stats{}, fmt.Errorf("failed to send stats: %w", err)
	}

	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return Stats{}, ErrManagerClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Done is closed once the manager loop and all of its rooms have stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
