package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
)

// fakeConn 记录投递的消息；full 为 true 时模拟发送队列满
type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	full   bool
	closed bool
}

func (c *fakeConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.msgs = append(c.msgs, b)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) envelopes(t *testing.T) []struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
} {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}, len(c.msgs))
	for i, b := range c.msgs {
		if err := json.Unmarshal(b, &out[i]); err != nil {
			t.Fatalf("decode message %d: %v", i, err)
		}
	}
	return out
}

// seqIDs 生成可预测的 id，便于断言
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestState() *GameState {
	s := NewGameState()
	s.newID = seqIDs()
	return s
}
