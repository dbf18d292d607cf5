package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoomUpdate is the envelope broadcast to every subscriber of a room.
type RoomUpdate struct {
	Player *PlayerEvent `json:"Player,omitempty"`
}

func PlayerUpdate(e PlayerEvent) RoomUpdate {
	return RoomUpdate{Player: &e}
}

// RoomInfo is a point-in-time snapshot of a room, taken by its own loop.
type RoomInfo struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Members            int       `json:"members"`
	Playing            bool      `json:"playing"`
	Position           float64   `json:"position"`
	PendingDestruction bool      `json:"pending_destruction"`
}

// RoomEntry is what the room directory knows about a registered room.
type RoomEntry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
