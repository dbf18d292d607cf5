package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type PlayerEventKind int

const (
	PlayerEventTick PlayerEventKind = iota
	PlayerEventFix
)

// PlayerEvent is either a periodic heartbeat (Tick) or an immediate
// correction (Fix). Clients snap to a Fix strictly and tolerate about
// 0.1s of drift against a Tick.
type PlayerEvent struct {
	Kind     PlayerEventKind
	Playing  bool
	Position time.Duration
}

func TickEvent(position time.Duration) PlayerEvent {
	return PlayerEvent{Kind: PlayerEventTick, Position: position}
}

func FixEvent(playing bool, position time.Duration) PlayerEvent {
	return PlayerEvent{Kind: PlayerEventFix, Playing: playing, Position: position}
}

type fixPayload struct {
	Playing  bool    `json:"playing"`
	Position float64 `json:"position"`
}

func (e PlayerEvent) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case PlayerEventTick:
		return json.Marshal(map[string]float64{"Tick": e.Position.Seconds()})
	case PlayerEventFix:
		return json.Marshal(map[string]fixPayload{"Fix": {
			Playing:  e.Playing,
			Position: e.Position.Seconds(),
		}})
	default:
		return nil, fmt.Errorf("unknown player event kind: %d", e.Kind)
	}
}
