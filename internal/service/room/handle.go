package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/service/player"
)

type joinMsg struct {
	memberID uuid.UUID
	reply    chan joinReply
}

type joinReply struct {
	sub *Subscription
	err error
}

type leaveMsg struct {
	memberID uuid.UUID
}

type controlMsg struct {
	apply func(*player.Controller)
}

type infoMsg struct {
	reply chan domain.RoomInfo
}

// Handle is the mailbox address of a room. Every method is safe for
// concurrent use.
type Handle struct {
	id   uuid.UUID
	name string

	inbox chan<- any
	quit  chan struct{}
	done  <-chan struct{}

	closeOnce sync.Once
}

func (h *Handle) ID() uuid.UUID {
	return h.id
}

func (h *Handle) Name() string {
	return h.name
}

func (h *Handle) send(ctx context.Context, msg any) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-h.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join registers memberID and returns a subscription to updates sent from
// now on.
func (h *Handle) Join(ctx context.Context, memberID uuid.UUID) (*Subscription, error) {
	reply := make(chan joinReply, 1)
	if err := h.send(ctx, joinMsg{memberID: memberID, reply: reply}); err != nil {
		return nil, fmt.Errorf("failed to send join: %w", err)
	}

	select {
	case r := <-reply:
		return r.sub, r.err
	case <-h.done:
		return nil, ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Leave removes memberID. Leaving twice is not an error.
func (h *Handle) Leave(ctx context.Context, memberID uuid.UUID) error {
	return h.send(ctx, leaveMsg{memberID: memberID})
}

func (h *Handle) Play(ctx context.Context) error {
	return h.send(ctx, controlMsg{apply: (*player.Controller).Play})
}

func (h *Handle) Pause(ctx context.Context) error {
	return h.send(ctx, controlMsg{apply: (*player.Controller).Pause})
}

func (h *Handle) Seek(ctx context.Context, position time.Duration) error {
	return h.send(ctx, controlMsg{apply: func(c *player.Controller) {
		c.Set(position)
	}})
}

func (h *Handle) Reset(ctx context.Context) error {
	return h.send(ctx, controlMsg{apply: (*player.Controller).Reset})
}

func (h *Handle) Info(ctx context.Context) (domain.RoomInfo, error) {
	reply := make(chan domain.RoomInfo, 1)
	if err := h.send(ctx, infoMsg{reply: reply}); err != nil {
		return domain.RoomInfo{}, fmt.Errorf("failed to send info: %w", err)
	}

	select {
	case info := <-reply:
		return info, nil
	case <-h.done:
		return domain.RoomInfo{}, ErrRoomClosed
	case <-ctx.Done():
		return domain.RoomInfo{}, ctx.Err()
	}
}

// Close stops the room loop and ends every subscription.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
	})
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}
