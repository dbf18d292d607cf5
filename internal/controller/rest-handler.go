package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/syncroom/pkg/rest"
)

func (c controller) getRooms(w http.ResponseWriter, r *http.Request) {
	stats, err := c.roomManager.Stats(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to get stats", "error", err)
		rest.WriteJSON(w, http.StatusServiceUnavailable, rest.Envelope{"error": err.Error()})
		return
	}

	rest.WriteJSON(w, http.StatusOK, stats)
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	params := joinRoomParams{RoomName: chi.URLParam(r, "room-name")}
	if validationErrors, ok := c.validate.Validate(params); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	_, handle, ok, err := c.roomManager.Lookup(r.Context(), params.RoomName)
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to look up room", "error", err)
		rest.WriteJSON(w, http.StatusServiceUnavailable, rest.Envelope{"error": err.Error()})
		return
	}
	if !ok {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	info, err := handle.Info(r.Context())
	if err != nil {
		// retired between lookup and info
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, info)
}
