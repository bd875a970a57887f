package server

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

type adminAPI struct {
	rooms      *RoomManager
	dispatcher *Dispatcher
}

// metrics 输出指定房间的运行指标
// GET /metrics?room=R1
func (a *adminAPI) metrics(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	room := a.rooms.Get(roomID)
	if room == nil {
		respondError(w, http.StatusNotFound, "room not live")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"room":    roomID,
		"metrics": room.Metrics().Snapshot(),
	})
}

// listRooms 列出当前在内存中的房间
// GET /admin/rooms
func (a *adminAPI) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms := a.rooms.Rooms()
	out := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	respondJSON(w, http.StatusOK, out)
}

// finishRoom 结束进行中的对局
// POST /admin/rooms/{room_id}/finish
func (a *adminAPI) finishRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room_id")
	if !a.rooms.Exists(roomID) {
		respondError(w, http.StatusNotFound, "room not live")
		return
	}
	if !a.dispatcher.Finish(roomID) {
		respondError(w, http.StatusConflict, "room is not playing")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}
