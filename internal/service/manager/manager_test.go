package manager

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/repository/directory/inmemory"
	"github.com/sharetube/syncroom/internal/service/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const grace = 5 * time.Minute

type fixture struct {
	h     *Handle
	clock *clock.Mock
	dir   *inmemory.Repo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock := clock.NewMock()
	dir := inmemory.NewRepo(logger)

	h := New(ctx, &Config{
		Clock:       mock,
		GracePeriod: grace,
		Room:        room.Config{TickInterval: time.Second},
		Directory:   dir,
		Logger:      logger,
	})
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})

	return &fixture{h: h, clock: mock, dir: dir}
}

func (f *fixture) waitPending(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, err := f.h.Stats(context.Background())
		return err == nil && s.PendingRetirements == n
	}, time.Second, 5*time.Millisecond)
}

func (f *fixture) exists(t *testing.T, name string) (domain.RoomEntry, bool) {
	t.Helper()
	entry, _, ok, err := f.h.Lookup(context.Background(), name)
	require.NoError(t, err)
	return entry, ok
}

func recv(t *testing.T, sub *room.Subscription) domain.RoomUpdate {
	t.Helper()
	select {
	case u, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return u
	case <-time.After(time.Second):
		t.Fatal("no update received")
		return domain.RoomUpdate{}
	}
}

func TestJoinOrMakeReusesRoomByName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.h.JoinOrMake(ctx, "movie-night", uuid.New())
	require.NoError(t, err)
	b, err := f.h.JoinOrMake(ctx, "movie-night", uuid.New())
	require.NoError(t, err)
	c, err := f.h.JoinOrMake(ctx, "karaoke", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, a.Room.ID(), b.Room.ID())
	assert.NotEqual(t, a.Room.ID(), c.Room.ID())

	info, err := a.Room.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Members)

	stats, err := f.h.Stats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats.Rooms, 2)

	entries, err := f.dir.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestJoinOrMakeDuplicateMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := f.h.JoinOrMake(ctx, "movie-night", id)
	require.NoError(t, err)

	_, err = f.h.JoinOrMake(ctx, "movie-night", id)
	assert.ErrorIs(t, err, room.ErrDuplicateMember)

	_, ok := f.exists(t, "movie-night")
	assert.True(t, ok, "a rejected join must not affect the room")
}

func TestRejoinCancelsRetirement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := uuid.New()

	s, err := f.h.JoinOrMake(ctx, "movie-night", a)
	require.NoError(t, err)
	id := s.Room.ID()

	require.NoError(t, s.Room.Leave(ctx, a))
	f.waitPending(t, 1)

	_, err = f.h.JoinOrMake(ctx, "movie-night", uuid.New())
	require.NoError(t, err)

	f.clock.Add(grace + time.Second)
	f.waitPending(t, 0)

	entry, ok := f.exists(t, "movie-night")
	require.True(t, ok, "room must survive a rejoin within the grace period")
	assert.Equal(t, id, entry.ID)
}

func TestEmptyRoomRetiredAfterGracePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := uuid.New()

	s, err := f.h.JoinOrMake(ctx, "movie-night", a)
	require.NoError(t, err)
	oldID := s.Room.ID()

	require.NoError(t, s.Room.Leave(ctx, a))
	f.waitPending(t, 1)

	f.clock.Add(grace - time.Second)
	_, ok := f.exists(t, "movie-night")
	require.True(t, ok, "room retired before the grace period elapsed")

	f.clock.Add(time.Second)
	require.Eventually(t, func() bool {
		_, ok := f.exists(t, "movie-night")
		return !ok
	}, time.Second, 5*time.Millisecond)

	select {
	case <-s.Room.Done():
	case <-time.After(time.Second):
		t.Fatal("retired room loop still running")
	}

	entries, err := f.dir.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	s2, err := f.h.JoinOrMake(ctx, "movie-night", uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, oldID, s2.Room.ID())
}

func TestRetirementsShareExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	names := []string{"a", "b", "c"}
	for _, name := range names {
		id := uuid.New()
		s, err := f.h.JoinOrMake(ctx, name, id)
		require.NoError(t, err)
		require.NoError(t, s.Room.Leave(ctx, id))
	}
	f.waitPending(t, len(names))

	f.clock.Add(grace)
	f.waitPending(t, 0)

	stats, err := f.h.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats.Rooms)
}

func TestMovieNight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	sa, err := f.h.JoinOrMake(ctx, "movie-night", a)
	require.NoError(t, err)
	sb, err := f.h.JoinOrMake(ctx, "movie-night", b)
	require.NoError(t, err)

	f.clock.Add(time.Second)
	tick := domain.PlayerUpdate(domain.TickEvent(0))
	assert.Equal(t, tick, recv(t, sa.Updates))
	assert.Equal(t, tick, recv(t, sb.Updates))

	require.NoError(t, sa.Room.Play(ctx))
	fix := domain.PlayerUpdate(domain.FixEvent(true, 0))
	assert.Equal(t, fix, recv(t, sa.Updates))
	assert.Equal(t, fix, recv(t, sb.Updates))

	f.clock.Add(3 * time.Second)
	require.NoError(t, sa.Room.Leave(ctx, a))
	require.NoError(t, sb.Room.Leave(ctx, b))
	f.waitPending(t, 1)

	f.clock.Add(grace)
	require.Eventually(t, func() bool {
		_, ok := f.exists(t, "movie-night")
		return !ok
	}, time.Second, 5*time.Millisecond)

	sc, err := f.h.JoinOrMake(ctx, "movie-night", uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, sa.Room.ID(), sc.Room.ID())

	info, err := sc.Room.Info(ctx)
	require.NoError(t, err)
	assert.False(t, info.Playing)
	assert.Zero(t, info.Position)
}

func TestClosedManager(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(ctx, &Config{
		Clock:  clock.NewMock(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	s, err := h.JoinOrMake(context.Background(), "movie-night", uuid.New())
	require.NoError(t, err)

	cancel()
	<-h.Done()

	_, err = h.JoinOrMake(context.Background(), "movie-night", uuid.New())
	assert.ErrorIs(t, err, ErrManagerClosed)

	select {
	case <-s.Room.Done():
	default:
		t.Fatal("manager shutdown must stop its rooms")
	}
}

func TestShutdownClearsDirectory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := inmemory.NewRepo(logger)
	h := New(ctx, &Config{
		Clock:     clock.NewMock(),
		Directory: dir,
		Logger:    logger,
	})

	_, err := h.JoinOrMake(context.Background(), "movie-night", uuid.New())
	require.NoError(t, err)

	entries, err := dir.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	cancel()
	<-h.Done()

	entries, err = dir.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
