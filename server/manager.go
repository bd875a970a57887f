package server

import "sync"

// RoomManager 房间注册表：room id → Room，随进程存活。
// 锁顺序固定为先 m.mu 再 room.mu。
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room)}
}

// GetOrCreateRoom 获取或创建房间
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(id)
}

func (m *RoomManager) getOrCreateLocked(id string) *Room {
	r, ok := m.rooms[id]
	if !ok {
		r = NewRoom(id)
		m.rooms[id] = r
		Log.Infof("room created: room=%s", id)
	}
	return r
}

// Get 查找房间，不存在时返回 nil
func (m *RoomManager) Get(id string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[id]
}

func (m *RoomManager) Exists(id string) bool {
	return m.Get(id) != nil
}

// Remove 强制销毁房间并断开其所有连接
func (m *RoomManager) Remove(id string) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	r.mu.Lock()
	r.closed = true
	conns := r.conns
	r.conns = nil
	r.mu.Unlock()
	delete(m.rooms, id)
	m.mu.Unlock()

	Log.Infof("room removed: room=%s conns=%d", id, len(conns))
	for _, c := range conns {
		c.Close()
	}
}

// Attach 将连接加入房间（房间不存在时以 lobby 状态创建）
func (m *RoomManager) Attach(c Conn, roomID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.getOrCreateLocked(roomID)
	r.mu.Lock()
	r.attachLocked(c)
	r.mu.Unlock()
	return r
}

// Detach 移除连接；最后一个连接离开时房间与其状态一起销毁。
// 与 Attach 同在注册表锁下，新的 Attach 不会看到拆到一半的房间。
func (m *RoomManager) Detach(c Conn, roomID string) (removed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	r.mu.Lock()
	left, found := r.detachLocked(c)
	if !found || left > 0 {
		r.mu.Unlock()
		return false
	}
	r.closed = true
	r.mu.Unlock()
	delete(m.rooms, roomID)
	Log.Infof("room removed: room=%s", roomID)
	return true
}

// Rooms 返回当前房间的副本，供 Tick 与管理接口遍历
func (m *RoomManager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

func (m *RoomManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// CloseAll 销毁全部房间并断开所有连接；之后到达的命令与 Tick 都会被忽略
func (m *RoomManager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.Remove(id)
	}
}
