package room

import (
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/service/player"
	"github.com/sharetube/syncroom/pkg/broadcast"
)

var (
	ErrDuplicateMember = errors.New("duplicate member")
	ErrRoomClosed      = errors.New("room closed")
)

const (
	mailboxSize         = 64
	DefaultUpdateBuffer = 128
)

type Subscription = broadcast.Subscription[domain.RoomUpdate]

// NotifyFunc is called from the room loop when the room becomes empty. It
// must not block on the caller of any Handle method.
type NotifyFunc func(roomID uuid.UUID, obs Observation)

type Config struct {
	Clock        clock.Clock
	TickInterval time.Duration
	UpdateBuffer int
	Logger       *slog.Logger
}

type member struct {
	*domain.Member
	sub *Subscription
}

type Room struct {
	id   uuid.UUID
	name string

	inbox chan any
	quit  chan struct{}
	done  chan struct{}

	updates    *broadcast.Broadcaster[domain.RoomUpdate]
	controller *player.Controller

	members map[uuid.UUID]*member
	ticket  *Ticket
	notify  NotifyFunc

	logger *slog.Logger
}

// New starts a room actor and returns the only handle to it.
func New(name string, notify NotifyFunc, cfg *Config) *Handle {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	updateBuffer := cfg.UpdateBuffer
	if updateBuffer <= 0 {
		updateBuffer = DefaultUpdateBuffer
	}

	id := uuid.New()
	r := &Room{
		id:         id,
		name:       name,
		inbox:      make(chan any, mailboxSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		updates:    broadcast.New[domain.RoomUpdate](updateBuffer),
		controller: player.NewController(clk, cfg.TickInterval),
		members:    make(map[uuid.UUID]*member),
		notify:     notify,
		logger:     logger.With("room_id", id.String(), "room", name),
	}

	go r.run()

	return &Handle{
		id:    id,
		name:  name,
		inbox: r.inbox,
		quit:  r.quit,
		done:  r.done,
	}
}

// run gives controller events priority over the mailbox so corrections are
// never queued behind membership traffic.
func (r *Room) run() {
	defer close(r.done)
	defer r.updates.Close()
	defer r.controller.Stop()

	r.logger.Debug("room loop started")
	defer r.logger.Debug("room loop stopped")

	for {
		if ev, ok := r.controller.Pending(); ok {
			r.broadcast(ev)
			continue
		}

		select {
		case <-r.controller.Ticks():
			r.broadcast(r.controller.Tick())
			continue
		default:
		}

		select {
		case <-r.quit:
			return
		case <-r.controller.Ticks():
			r.broadcast(r.controller.Tick())
		case msg := <-r.inbox:
			r.handle(msg)
		}
	}
}

func (r *Room) broadcast(ev domain.PlayerEvent) {
	if r.ticket != nil {
		return
	}

	r.updates.Send(domain.PlayerUpdate(ev))
}

func (r *Room) handle(msg any) {
	switch msg := msg.(type) {
	case joinMsg:
		sub, err := r.join(msg.memberID)
		msg.reply <- joinReply{sub: sub, err: err}
	case leaveMsg:
		r.leave(msg.memberID)
	case controlMsg:
		msg.apply(r.controller)
	case infoMsg:
		msg.reply <- r.info()
	default:
		r.logger.Error("unknown room message", "message", msg)
	}
}

func (r *Room) join(memberID uuid.UUID) (*Subscription, error) {
	if _, ok := r.members[memberID]; ok {
		r.logger.Error("member already in room", "member_id", memberID.String())
		return nil, ErrDuplicateMember
	}

	if r.ticket != nil {
		r.ticket.Drop()
		r.ticket = nil
		r.logger.Info("pending destruction cancelled")
	}

	sub := r.updates.Subscribe()
	r.members[memberID] = &member{
		Member: domain.NewMember(memberID),
		sub:    sub,
	}

	r.logger.Debug("member joined", "member_id", memberID.String(), "members", len(r.members))
	return sub, nil
}

func (r *Room) leave(memberID uuid.UUID) {
	m, ok := r.members[memberID]
	if !ok {
		r.logger.Debug("leave for unknown member", "member_id", memberID.String())
		return
	}

	m.sub.Close()
	delete(r.members, memberID)
	r.logger.Debug("member left", "member_id", memberID.String(), "members", len(r.members))

	if len(r.members) > 0 {
		return
	}

	ticket, obs := NewTicket()
	r.ticket = ticket
	r.logger.Info("room is empty")
	if r.notify != nil {
		r.notify(r.id, obs)
	}
}

func (r *Room) info() domain.RoomInfo {
	pos, playing := r.controller.State()
	return domain.RoomInfo{
		ID:                 r.id,
		Name:               r.name,
		Members:            len(r.members),
		Playing:            playing,
		Position:           pos.Seconds(),
		PendingDestruction: r.ticket != nil,
	}
}
