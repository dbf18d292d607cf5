package controller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/syncroom/internal/service/manager"
	"github.com/sharetube/syncroom/pkg/ctxlogger"
	"github.com/sharetube/syncroom/pkg/rest"
)

const (
	joinTimeout  = 5 * time.Second
	leaveTimeout = 5 * time.Second
)

type joinRoomParams struct {
	RoomName string `json:"room_name" validate:"required,max=64"`
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	params := joinRoomParams{RoomName: chi.URLParam(r, "room-name")}
	if validationErrors, ok := c.validate.Validate(params); !ok {
		c.logger.InfoContext(r.Context(), "invalid room name", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	memberId := uuid.New()
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("member_id", memberId.String()))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room", params.RoomName))

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	joinCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	session, err := c.roomManager.JoinOrMake(joinCtx, params.RoomName, memberId)
	cancel()
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to join room", "error", err)
		c.writeClose(conn, websocket.CloseInternalServerErr, "failed to join room")
		return
	}

	// request context is not used past the handshake
	ctx = context.WithoutCancel(ctx)
	ctx = context.WithValue(ctx, roomIdCtxKey, session.Room.ID())
	ctx = context.WithValue(ctx, memberIdCtxKey, memberId)

	c.logger.InfoContext(ctx, "member joined", "room_id", session.Room.ID())
	c.serveSession(ctx, conn, session, memberId)
	c.logger.InfoContext(ctx, "member left", "room_id", session.Room.ID())
}

// serveSession pumps room updates to conn while the router reads inbound
// messages, then gives the member's seat back.
func (c controller) serveSession(ctx context.Context, conn *websocket.Conn, session *manager.Session, memberId uuid.UUID) {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeUpdates(ctx, conn, session, stop)
	}()

	err := c.wsRouter.ServeConn(ctx, conn)
	if code, text, ok := c.closeCode(err); ok {
		if code != websocket.CloseNormalClosure {
			c.logger.InfoContext(ctx, "closing connection", "code", code, "error", err)
		}
		c.writeClose(conn, code, text)
	} else {
		c.logger.DebugContext(ctx, "read loop ended", "error", err)
	}

	close(stop)
	wg.Wait()

	leaveCtx, cancel := context.WithTimeout(ctx, leaveTimeout)
	defer cancel()
	if err := session.Room.Leave(leaveCtx, memberId); err != nil {
		c.logger.WarnContext(ctx, "failed to leave room", "error", err)
	}
}

func (c controller) writeUpdates(ctx context.Context, conn *websocket.Conn, session *manager.Session, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case update, ok := <-session.Updates.C():
			if !ok {
				// room closed underneath the member
				c.writeClose(conn, websocket.CloseGoingAway, "room closed")
				conn.Close()
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(update); err != nil {
				c.logger.DebugContext(ctx, "failed to write update", "error", err)
				conn.Close()
				return
			}
		}
	}
}
