package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/repository/directory"
)

const (
	roomsKey      = "rooms"
	EventsChannel = "rooms:events"
)

type Event struct {
	Type string           `json:"type"`
	Room domain.RoomEntry `json:"room"`
}

type roomHash struct {
	ID        string `redis:"id"`
	Name      string `redis:"name"`
	CreatedAt int64  `redis:"created_at"`
}

type repo struct {
	rc             *redis.Client
	expireDuration time.Duration
	logger         *slog.Logger
}

// NewRepo mirrors the room registry into Redis. Entries expire after
// expireDuration so a crashed process does not leave them behind forever.
func NewRepo(rc *redis.Client, expireDuration time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:             rc,
		expireDuration: expireDuration,
		logger:         logger,
	}
}

func (r repo) getRoomKey(name string) string {
	return "room:" + name
}

func (r repo) Register(ctx context.Context, entry domain.RoomEntry) error {
	funcName := "directory.redis.Register"
	r.logger.DebugContext(ctx, funcName, "room", entry.Name, "room_id", entry.ID.String())

	event, err := json.Marshal(Event{Type: "ROOM_CREATED", Room: entry})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	roomKey := r.getRoomKey(entry.Name)
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey, roomHash{
		ID:        entry.ID.String(),
		Name:      entry.Name,
		CreatedAt: entry.CreatedAt.UnixMilli(),
	})
	pipe.Expire(ctx, roomKey, r.expireDuration)
	pipe.SAdd(ctx, roomsKey, entry.Name)
	pipe.Publish(ctx, EventsChannel, event)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to register room: %w", err)
	}

	r.logger.DebugContext(ctx, funcName, "result", "OK")
	return nil
}

func (r repo) Unregister(ctx context.Context, entry domain.RoomEntry) error {
	funcName := "directory.redis.Unregister"
	r.logger.DebugContext(ctx, funcName, "room", entry.Name, "room_id", entry.ID.String())

	roomKey := r.getRoomKey(entry.Name)
	id, err := r.rc.HGet(ctx, roomKey, "id").Result()
	if errors.Is(err, redis.Nil) || (err == nil && id != entry.ID.String()) {
		r.logger.InfoContext(ctx, funcName, "error", directory.ErrNotFound)
		return directory.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get room id: %w", err)
	}

	event, err := json.Marshal(Event{Type: "ROOM_RETIRED", Room: entry})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, roomKey)
	pipe.SRem(ctx, roomsKey, entry.Name)
	pipe.Publish(ctx, EventsChannel, event)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to unregister room: %w", err)
	}

	r.logger.DebugContext(ctx, funcName, "result", "OK")
	return nil
}

func (r repo) Get(ctx context.Context, name string) (domain.RoomEntry, error) {
	var h roomHash
	res := r.rc.HGetAll(ctx, r.getRoomKey(name))
	if err := res.Err(); err != nil {
		return domain.RoomEntry{}, fmt.Errorf("failed to get room: %w", err)
	}
	if len(res.Val()) == 0 {
		return domain.RoomEntry{}, directory.ErrNotFound
	}
	if err := res.Scan(&h); err != nil {
		return domain.RoomEntry{}, fmt.Errorf("failed to scan room: %w", err)
	}

	id, err := uuid.Parse(h.ID)
	if err != nil {
		return domain.RoomEntry{}, fmt.Errorf("failed to parse room id: %w", err)
	}

	return domain.RoomEntry{
		ID:        id,
		Name:      h.Name,
		CreatedAt: time.UnixMilli(h.CreatedAt),
	}, nil
}

// List skips names whose hash already expired.
func (r repo) List(ctx context.Context) ([]domain.RoomEntry, error) {
	names, err := r.rc.SMembers(ctx, roomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	entries := make([]domain.RoomEntry, 0, len(names))
	for _, name := range names {
		entry, err := r.Get(ctx, name)
		if errors.Is(err, directory.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
