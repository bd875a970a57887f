package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"conquerors/catalog"
)

// NewRouter 组装全部 HTTP 路由：实时通道、房间目录、监控与管理
func NewRouter(rooms *RoomManager, d *Dispatcher, store catalog.Store, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/ws/{room_id}", NewWSHandler(rooms, d, cfg))

	api := &catalogAPI{store: store}
	r.Route("/api", func(r chi.Router) {
		r.Use(requestLogger, cors)
		r.Get("/", api.root)
		r.Post("/rooms", api.createRoom)
		r.Get("/rooms", api.listRooms)
		r.Get("/rooms/{room_id}", api.getRoom)
	})

	admin := &adminAPI{rooms: rooms, dispatcher: d}
	r.Get("/metrics", admin.metrics)
	r.Route("/admin", func(r chi.Router) {
		r.Use(requestLogger)
		r.Get("/rooms", admin.listRooms)
		r.Post("/rooms/{room_id}/finish", admin.finishRoom)
	})
	return r
}

type catalogAPI struct {
	store catalog.Store
}

func (a *catalogAPI) root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Age of Empires 2 Conquerors Online"})
}

// createRoom POST /api/rooms {"name": "..."}
func (a *catalogAPI) createRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	room, err := a.store.Create(r.Context(), body.Name)
	if err != nil {
		Log.Errorf("catalog create: %v", err)
		respondError(w, http.StatusInternalServerError, "create failed")
		return
	}
	respondJSON(w, http.StatusOK, room)
}

// listRooms GET /api/rooms：只列出 lobby 中的房间
func (a *catalogAPI) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.store.List(r.Context(), catalog.StateLobby)
	if err != nil {
		Log.Errorf("catalog list: %v", err)
		respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	respondJSON(w, http.StatusOK, rooms)
}

func (a *catalogAPI) getRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "room_id")
	room, err := a.store.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Room not found")
		return
	}
	if err != nil {
		Log.Errorf("catalog get %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "get failed")
		return
	}
	respondJSON(w, http.StatusOK, room)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		Log.Debugf("%s %s status=%d dur=%s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		Log.Warnf("encode json: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
