package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomUpdateWireFormat(t *testing.T) {
	tick, err := json.Marshal(PlayerUpdate(TickEvent(1500 * time.Millisecond)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Player":{"Tick":1.5}}`, string(tick))

	fix, err := json.Marshal(PlayerUpdate(FixEvent(true, 0)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Player":{"Fix":{"playing":true,"position":0}}}`, string(fix))
}

func TestUnknownPlayerEventKind(t *testing.T) {
	_, err := json.Marshal(PlayerEvent{Kind: PlayerEventKind(7)})
	assert.Error(t, err)
}
