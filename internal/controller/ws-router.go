package controller

import (
	"github.com/sharetube/syncroom/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())

	// keep-alive is the only inbound message so far; anything else closes the connection
	mux.Handle("ALIVE", wsrouter.Typed(c.handleAlive))

	return mux
}
