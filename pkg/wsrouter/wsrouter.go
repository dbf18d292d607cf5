package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrUnsupportedFrame   = errors.New("unsupported frame")
	ErrMalformedMessage   = errors.New("malformed message")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

// Typed decodes the payload into T before calling h.
func Typed[T any](h func(ctx context.Context, conn *websocket.Conn, input T) error) HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
			}
		}

		return h(ctx, conn, input)
	}
}

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	r.routes[messageType] = handler
}

// ServeConn reads text frames until the connection fails or a handler
// returns an error. It never writes to conn itself.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if frameType != websocket.TextMessage {
			return ErrUnsupportedFrame
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}

		handler, ok := r.routes[msg.Type]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
		}

		if err := handler(context.WithValue(ctx, messageTypeKey, msg.Type), conn, msg.Payload); err != nil {
			return err
		}
	}
}
