package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// ClientConn 负责发送（写）数据到客户端的轻量包装，实现 Conn
type ClientConn struct {
	ws           *websocket.Conn
	send         chan []byte
	done         chan struct{}
	once         sync.Once
	writeTimeout time.Duration
	pingPeriod   time.Duration
}

func NewClientConn(ws *websocket.Conn, queue int, writeTimeout, readTimeout time.Duration) *ClientConn {
	return &ClientConn{
		ws:           ws,
		send:         make(chan []byte, queue),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		pingPeriod:   readTimeout * 9 / 10,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞）。队列满说明对端过慢，
// 返回 false，由房间按断线处理。
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 关闭底层连接；可重复调用。读协程随之退出并执行 detach。
func (c *ClientConn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	ping := time.NewTicker(c.pingPeriod)
	defer func() {
		ping.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息交给 Dispatcher；退出时从房间移除该连接
func (c *ClientConn) readPump(rooms *RoomManager, d *Dispatcher, roomID string, readTimeout time.Duration) {
	defer func() {
		c.Close()
		removed := rooms.Detach(c, roomID)
		Log.Infof("conn detached: room=%s remote=%s room_removed=%v", roomID, c.ws.RemoteAddr(), removed)
	}()
	c.ws.SetReadLimit(1 << 20) // 1MB
	_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(readTimeout)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		// 单条命令失败不影响连接
		_ = d.Handle(roomID, payload)
	}
}

// WSHandler 实时通道：/ws/{room_id}
type WSHandler struct {
	rooms        *RoomManager
	dispatcher   *Dispatcher
	upgrader     websocket.Upgrader
	sendQueue    int
	writeTimeout time.Duration
	readTimeout  time.Duration
}

func NewWSHandler(rooms *RoomManager, d *Dispatcher, cfg Config) *WSHandler {
	return &WSHandler{
		rooms:      rooms,
		dispatcher: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 与房间目录接口一致，允许所有来源
				return true
			},
		},
		sendQueue:    cfg.SendQueue,
		writeTimeout: cfg.WriteTimeout(),
		readTimeout:  cfg.ReadTimeout(),
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room_id")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: room=%s err=%v", roomID, err)
		return
	}

	client := NewClientConn(ws, h.sendQueue, h.writeTimeout, h.readTimeout)
	h.rooms.Attach(client, roomID)
	Log.Infof("conn attached: room=%s remote=%s", roomID, ws.RemoteAddr())

	go client.writePump()
	go client.readPump(h.rooms, h.dispatcher, roomID, h.readTimeout)
}
