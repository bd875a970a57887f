package server

import (
	"context"
	"time"
)

const (
	// TicksPerSecond 世界推进频率（10 TPS）
	TicksPerSecond = 10
)

var DefaultTickInterval = time.Duration(1000/TicksPerSecond) * time.Millisecond // 100ms

// TickEngine 进程内唯一的 Tick 循环，是单位位置的唯一写者
type TickEngine struct {
	rooms          *RoomManager
	interval       time.Duration
	scaleByElapsed bool // 按实际流逝时间缩放位移，避免 ticker 抖动造成漂移
}

func NewTickEngine(rooms *RoomManager, interval time.Duration, scaleByElapsed bool) *TickEngine {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &TickEngine{rooms: rooms, interval: interval, scaleByElapsed: scaleByElapsed}
}

// Run 阻塞运行直到 ctx 取消；每次 Tick 完整处理完一个房间再处理下一个
func (e *TickEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			factor := 1.0
			if e.scaleByElapsed {
				factor = float64(now.Sub(last)) / float64(e.interval)
			}
			last = now
			e.Tick(factor)
		}
	}
}

// Tick 推进所有 playing 房间一次，返回推进的房间数。
// 遍历的是注册表副本，已销毁的房间由 Room.Do 跳过。
func (e *TickEngine) Tick(factor float64) int {
	n := 0
	for _, r := range e.rooms.Rooms() {
		if e.advanceRoom(r, factor) {
			n++
		}
	}
	return n
}

// advanceRoom 单个房间出错不影响其他房间
func (e *TickEngine) advanceRoom(r *Room, factor float64) (advanced bool) {
	defer func() {
		if p := recover(); p != nil {
			Log.Errorf("room=%s tick panic: %v", r.ID, p)
			advanced = false
		}
	}()
	start := time.Now()
	r.Do(func(s *GameState) *Envelope {
		if s.Phase() != PhasePlaying {
			return nil
		}
		s.Step(factor)
		advanced = true
		// 整个房间更新完毕后才广播，快照不会出现半个 Tick
		return &Envelope{Type: KindGameState, Data: s.Snapshot()}
	})
	if advanced {
		r.metrics.AddTick(time.Since(start).Nanoseconds())
	}
	return advanced
}
