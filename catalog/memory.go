package catalog

import (
	"context"
	"sync"
)

// Memory 进程内目录，用于开发与测试
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	order []string
}

func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]*Room)}
}

func (m *Memory) Create(_ context.Context, name string) (Room, error) {
	r := newRoom(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = &r
	m.order = append(m.order, r.ID)
	return copyRoom(r), nil
}

func (m *Memory) List(_ context.Context, state string) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Room{}
	for _, id := range m.order {
		r := m.rooms[id]
		if state != "" && r.GameState != state {
			continue
		}
		out = append(out, copyRoom(*r))
		if len(out) == listLimit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	return copyRoom(*r), nil
}

func (m *Memory) SetGameState(_ context.Context, id, state string) error {
	if _, err := earlierStates(state); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return ErrNotFound
	}
	if isEarlier(r.GameState, state) {
		r.GameState = state
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func copyRoom(r Room) Room {
	r.Players = append([]Player{}, r.Players...)
	return r
}
