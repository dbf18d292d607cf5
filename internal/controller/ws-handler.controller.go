package controller

import (
	"context"

	"github.com/gorilla/websocket"
)

type EmptyInput struct{}

func (c controller) handleAlive(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	c.logger.DebugContext(ctx, "alive",
		"room_id", c.getRoomIdFromCtx(ctx),
		"member_id", c.getMemberIdFromCtx(ctx),
	)

	return nil
}
