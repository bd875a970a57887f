package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount        int64 // 推进过的 Tick 次数
	CommandsAccepted int64 // 已应用的命令数
	Malformed        int64 // 因格式错误被丢弃的消息数
	UnknownKind      int64 // 未识别类型的消息数
	Broadcasts       int64 // 广播次数
	SlowDropped      int64 // 因发送队列满/已关闭被断开的投递数
	TotalTickNs      int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted()    { atomic.AddInt64(&m.CommandsAccepted, 1) }
func (m *RoomMetrics) IncMalformed()   { atomic.AddInt64(&m.Malformed, 1) }
func (m *RoomMetrics) IncUnknownKind() { atomic.AddInt64(&m.UnknownKind, 1) }
func (m *RoomMetrics) IncBroadcast()   { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *RoomMetrics) IncSlowDropped() { atomic.AddInt64(&m.SlowDropped, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":        tick,
		"commands_accepted": atomic.LoadInt64(&m.CommandsAccepted),
		"malformed":         atomic.LoadInt64(&m.Malformed),
		"unknown_kind":      atomic.LoadInt64(&m.UnknownKind),
		"broadcasts":        atomic.LoadInt64(&m.Broadcasts),
		"slow_dropped":      atomic.LoadInt64(&m.SlowDropped),
		"avg_tick_ms":       avgMs,
	}
}
