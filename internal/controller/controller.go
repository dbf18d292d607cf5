package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/syncroom/internal/domain"
	"github.com/sharetube/syncroom/internal/service/manager"
	"github.com/sharetube/syncroom/internal/service/room"
	"github.com/sharetube/syncroom/pkg/validator"
	"github.com/sharetube/syncroom/pkg/wsrouter"
)

type iRoomManager interface {
	JoinOrMake(ctx context.Context, name string, memberID uuid.UUID) (*manager.Session, error)
	Lookup(ctx context.Context, name string) (domain.RoomEntry, *room.Handle, bool, error)
	Stats(ctx context.Context) (manager.Stats, error)
}

type controller struct {
	roomManager iRoomManager
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsRouter    *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(roomManager iRoomManager, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomManager: roomManager,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsRouter = c.getWSRouter()

	return c
}
