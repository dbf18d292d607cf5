package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/service/room"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var ErrManagerClosed = errors.New("room manager closed")

const (
	mailboxSize        = 128
	unregisterSize     = 16
	directoryTimeout   = time.Second
	DefaultGracePeriod = 5 * time.Minute
)

type directory interface {
	Register(ctx context.Context, entry domain.RoomEntry) error
	Unregister(ctx context.Context, entry domain.RoomEntry) error
}

type Config struct {
	Clock       clock.Clock
	GracePeriod time.Duration
	// Room configures every room the manager creates. Its Clock and Logger
	// default to the manager's.
	Room      room.Config
	Directory directory
	Logger    *slog.Logger
}

type registered struct {
	entry  domain.RoomEntry
	handle *room.Handle
}

type unregisterNotice struct {
	roomID uuid.UUID
	obs    room.Observation
}

type Manager struct {
	requests chan any
	unreg    chan unregisterNotice
	done     chan struct{}

	rooms    map[string]*registered
	lookup   map[uuid.UUID]*registered
	timeouts timeoutQueue

	timer *clock.Timer
	wake  <-chan time.Time

	clock     clock.Clock
	grace     time.Duration
	roomCfg   room.Config
	directory directory
	logger    *slog.Logger
}

// New starts the manager loop. It runs until ctx is cancelled, then stops
// every room it still owns.
func New(ctx context.Context, cfg *Config) *Handle {
	m := &Manager{
		requests:  make(chan any, mailboxSize),
		unreg:     make(chan unregisterNotice, unregisterSize),
		done:      make(chan struct{}),
		rooms:     make(map[string]*registered),
		lookup:    make(map[uuid.UUID]*registered),
		clock:     cfg.Clock,
		grace:     cfg.GracePeriod,
		roomCfg:   cfg.Room,
		directory: cfg.Directory,
		logger:    cfg.Logger,
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.grace <= 0 {
		m.grace = DefaultGracePeriod
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.roomCfg.Clock == nil {
		m.roomCfg.Clock = m.clock
	}
	if m.roomCfg.Logger == nil {
		m.roomCfg.Logger = m.logger
	}

	go m.run(ctx)

	return &Handle{requests: m.requests, done: m.done}
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.requests:
			m.handle(ctx, msg)
		case n := <-m.unreg:
			m.handleUnregister(n)
		case <-m.wake:
			m.sweep(ctx)
		}
	}
}

func (m *Manager) handle(ctx context.Context, msg any) {
	switch msg := msg.(type) {
	case joinOrMakeMsg:
		session, err := m.joinOrMake(ctx, msg.name, msg.memberID)
		msg.reply <- joinOrMakeReply{session: session, err: err}
	case lookupMsg:
		reg, ok := m.rooms[msg.name]
		if !ok {
			msg.reply <- lookupReply{}
			return
		}
		msg.reply <- lookupReply{entry: reg.entry, handle: reg.handle, ok: true}
	case statsMsg:
		msg.reply <- m.stats()
	default:
		m.logger.Error("unknown manager message", "message", msg)
	}
}

// joinOrMake drives the room join to completion before the next request so
// joins and retirements for one room are never reordered.
func (m *Manager) joinOrMake(ctx context.Context, name string, memberID uuid.UUID) (*Session, error) {
	reg, ok := m.rooms[name]
	if !ok {
		reg = m.createRoom(ctx, name)
	}

	sub, err := reg.handle.Join(ctx, memberID)
	if errors.Is(err, room.ErrRoomClosed) {
		panic(fmt.Sprintf("room %s stopped while still registered", reg.entry.ID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	return &Session{Room: reg.handle, Updates: sub}, nil
}

func (m *Manager) createRoom(ctx context.Context, name string) *registered {
	h := room.New(name, m.enqueueRetirement, &m.roomCfg)
	reg := &registered{
		entry: domain.RoomEntry{
			ID:        h.ID(),
			Name:      name,
			CreatedAt: m.clock.Now(),
		},
		handle: h,
	}

	m.rooms[name] = reg
	m.lookup[reg.entry.ID] = reg
	m.logger.Info("room created", "room", name, "room_id", reg.entry.ID.String())

	if m.directory != nil {
		dctx, cancel := context.WithTimeout(ctx, directoryTimeout)
		defer cancel()
		if err := m.directory.Register(dctx, reg.entry); err != nil {
			m.logger.Warn("failed to register room in directory", "room", name, "error", err)
		}
	}

	return reg
}

// enqueueRetirement runs on a room loop. Delivery happens on its own
// goroutine because the manager may be blocked on that same room's Join.
func (m *Manager) enqueueRetirement(roomID uuid.UUID, obs room.Observation) {
	go func() {
		select {
		case m.unreg <- unregisterNotice{roomID: roomID, obs: obs}:
		case <-m.done:
		}
	}()
}

func (m *Manager) handleUnregister(n unregisterNotice) {
	if n.obs.Dropped() {
		m.logger.Debug("room refilled before retirement was scheduled", "room_id", n.roomID.String())
		return
	}

	reg, ok := m.lookup[n.roomID]
	if !ok {
		m.logger.Debug("retirement for unknown room", "room_id", n.roomID.String())
		return
	}

	at := m.clock.Now().Add(m.grace)
	m.timeouts.push(at, n.roomID, n.obs, reg.handle)
	m.logger.Info("room retirement scheduled", "room", reg.entry.Name, "room_id", n.roomID.String(), "at", at)

	m.rearm()
}

func (m *Manager) sweep(ctx context.Context) {
	for _, t := range m.timeouts.popDue(m.clock.Now()) {
		if t.obs.Dropped() {
			m.logger.Debug("stale retirement discarded", "room_id", t.roomID.String())
			continue
		}

		reg, ok := m.lookup[t.roomID]
		if !ok || reg.handle != t.room {
			continue
		}

		m.retire(ctx, reg)
	}

	m.rearm()
}

func (m *Manager) retire(ctx context.Context, reg *registered) {
	delete(m.rooms, reg.entry.Name)
	delete(m.lookup, reg.entry.ID)
	reg.handle.Close()

	m.logger.Info("room retired", "room", reg.entry.Name, "room_id", reg.entry.ID.String())
	m.unregister(ctx, reg)
}

func (m *Manager) unregister(ctx context.Context, reg *registered) {
	if m.directory == nil {
		return
	}

	dctx, cancel := context.WithTimeout(ctx, directoryTimeout)
	defer cancel()
	if err := m.directory.Unregister(dctx, reg.entry); err != nil {
		m.logger.Warn("failed to unregister room from directory", "room", reg.entry.Name, "error", err)
	}
}

// rearm points the wake timer at the earliest pending expiry.
func (m *Manager) rearm() {
	next, ok := m.timeouts.next()
	if !ok {
		if m.timer != nil {
			m.timer.Stop()
		}
		m.wake = nil
		return
	}

	d := next.Sub(m.clock.Now())
	if d < 0 {
		d = 0
	}

	if m.timer == nil {
		m.timer = m.clock.Timer(d)
	} else {
		m.timer.Reset(d)
	}
	m.wake = m.timer.C
}

func (m *Manager) stats() Stats {
	regs := maps.Values(m.rooms)
	slices.SortFunc(regs, func(a, b *registered) int {
		if c := a.entry.CreatedAt.Compare(b.entry.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.entry.Name, b.entry.Name)
	})

	entries := make([]domain.RoomEntry, 0, len(regs))
	for _, reg := range regs {
		entries = append(entries, reg.entry)
	}

	return Stats{
		Rooms:              entries,
		PendingRetirements: m.timeouts.len(),
	}
}

func (m *Manager) shutdown() {
	if m.timer != nil {
		m.timer.Stop()
	}

	// the run context is already cancelled here
	ctx := context.Background()
	for _, reg := range m.rooms {
		reg.handle.Close()
		<-reg.handle.Done()
		m.unregister(ctx, reg)
	}
	m.logger.Info("room manager stopped", "rooms", len(m.rooms))
}
