package inmemory

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/repository/directory"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Repo struct {
	entries map[string]domain.RoomEntry
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewRepo(logger *slog.Logger) *Repo {
	return &Repo{
		entries: make(map[string]domain.RoomEntry),
		logger:  logger,
	}
}

func (r *Repo) Register(ctx context.Context, entry domain.RoomEntry) error {
	funcName := "directory.inmemory.Register"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, funcName, "room", entry.Name, "room_id", entry.ID.String())
	if _, ok := r.entries[entry.Name]; ok {
		r.logger.InfoContext(ctx, funcName, "error", directory.ErrAlreadyExists)
		return directory.ErrAlreadyExists
	}

	r.entries[entry.Name] = entry

	r.logger.DebugContext(ctx, funcName, "result", "OK")
	return nil
}

func (r *Repo) Unregister(ctx context.Context, entry domain.RoomEntry) error {
	funcName := "directory.inmemory.Unregister"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, funcName, "room", entry.Name, "room_id", entry.ID.String())
	current, ok := r.entries[entry.Name]
	if !ok || current.ID != entry.ID {
		r.logger.InfoContext(ctx, funcName, "error", directory.ErrNotFound)
		return directory.ErrNotFound
	}

	delete(r.entries, entry.Name)

	r.logger.DebugContext(ctx, funcName, "result", "OK")
	return nil
}

func (r *Repo) Get(ctx context.Context, name string) (domain.RoomEntry, error) {
	funcName := "directory.inmemory.Get"
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.logger.DebugContext(ctx, funcName, "room", name)
	entry, ok := r.entries[name]
	if !ok {
		r.logger.InfoContext(ctx, funcName, "error", directory.ErrNotFound)
		return domain.RoomEntry{}, directory.ErrNotFound
	}

	return entry, nil
}

func (r *Repo) List(ctx context.Context) ([]domain.RoomEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := maps.Values(r.entries)
	slices.SortFunc(entries, func(a, b domain.RoomEntry) int {
		return strings.Compare(a.Name, b.Name)
	})

	return entries, nil
}
