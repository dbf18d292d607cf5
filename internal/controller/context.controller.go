package controller

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	roomIdCtxKey contextKey = iota
	memberIdCtxKey
)

func (c controller) getRoomIdFromCtx(ctx context.Context) uuid.UUID {
	roomId, ok := ctx.Value(roomIdCtxKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}

	return roomId
}

func (c controller) getMemberIdFromCtx(ctx context.Context) uuid.UUID {
	memberId, ok := ctx.Value(memberIdCtxKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}

	return memberId
}
