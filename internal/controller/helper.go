package controller

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/syncroom/pkg/wsrouter"
)

const writeWait = 10 * time.Second

// generateTimeBasedId returns a UUIDv7 so ids sort by creation time.
func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// closeCode maps the error that ended a connection's read loop to the close
// frame sent back. ok is false when no close frame should be sent.
func (c controller) closeCode(err error) (code int, text string, ok bool) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return websocket.CloseNormalClosure, "", true
	case errors.Is(err, wsrouter.ErrUnsupportedFrame), errors.Is(err, wsrouter.ErrUnknownMessageType):
		return websocket.CloseUnsupportedData, err.Error(), true
	case errors.Is(err, wsrouter.ErrMalformedMessage):
		return websocket.CloseInvalidFramePayloadData, "malformed message", true
	default:
		return 0, "", false
	}
}

func (c controller) writeClose(conn *websocket.Conn, code int, text string) error {
	return conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
