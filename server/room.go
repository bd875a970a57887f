package server

import (
	"encoding/json"
	"sync"
	"time"
)

// Conn 房间内一条连接的发送端
type Conn interface {
	// Enqueue 非阻塞投递，返回 false 表示连接已关闭或发送队列已满
	Enqueue(b []byte) bool
	Close()
}

// Room 一个游戏房间：权威状态 + 连接集合，由一把互斥锁串行化
type Room struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	state   *GameState
	conns   []Conn
	closed  bool // 已从注册表移除，晚到的命令与 Tick 一律忽略
	metrics *RoomMetrics
}

// NewRoom 创建房间，初始为空的 lobby 状态
func NewRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		state:     NewGameState(),
		metrics:   &RoomMetrics{},
	}
}

func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// Do 在房间锁内执行 fn；fn 返回的消息在同一临界区内广播，
// 保证任何连接都不会看到执行到一半的状态。房间已销毁时返回 false。
func (r *Room) Do(fn func(s *GameState) *Envelope) bool {
	failed, ok := r.do(fn)
	// 投递失败等同于断线：关闭连接，由其读协程走 detach
	for _, c := range failed {
		c.Close()
	}
	return ok
}

func (r *Room) do(fn func(s *GameState) *Envelope) ([]Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false
	}
	if env := fn(r.state); env != nil {
		return r.broadcastLocked(env), true
	}
	return nil, true
}

// Broadcast 将消息投递给房间内所有连接
func (r *Room) Broadcast(env *Envelope) {
	r.Do(func(*GameState) *Envelope { return env })
}

func (r *Room) broadcastLocked(env *Envelope) []Conn {
	b, err := json.Marshal(env)
	if err != nil {
		Log.Errorf("room=%s marshal %s: %v", r.ID, env.Type, err)
		return nil
	}
	r.metrics.IncBroadcast()
	var failed []Conn
	for _, c := range r.conns {
		if !c.Enqueue(b) {
			r.metrics.IncSlowDropped()
			failed = append(failed, c)
		}
	}
	return failed
}

// ConnCount 当前连接数
func (r *Room) ConnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Closed 房间是否已被销毁
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// 以下 *Locked 方法要求调用方持有 r.mu

func (r *Room) attachLocked(c Conn) {
	for _, existing := range r.conns {
		if existing == c {
			return
		}
	}
	r.conns = append(r.conns, c)
}

func (r *Room) detachLocked(c Conn) (left int, found bool) {
	for i, existing := range r.conns {
		if existing == c {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return len(r.conns), true
		}
	}
	return len(r.conns), false
}

// RoomInfo 管理接口展示的房间概要
type RoomInfo struct {
	ID          string    `json:"id"`
	Phase       Phase     `json:"game_state"`
	Connections int       `json:"connections"`
	Players     int       `json:"players"`
	Units       int       `json:"units"`
	Buildings   int       `json:"buildings"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		ID:          r.ID,
		Phase:       r.state.phase,
		Connections: len(r.conns),
		Players:     len(r.state.players),
		Units:       len(r.state.units),
		Buildings:   len(r.state.buildings),
		CreatedAt:   r.CreatedAt,
	}
}
