package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"conquerors/catalog"
)

// PhaseRecorder 房间阶段变化时同步到房间目录
type PhaseRecorder interface {
	SetGameState(ctx context.Context, id, state string) error
}

// CommandRecorder 记录已应用的命令
type CommandRecorder interface {
	Record(roomID string, env Envelope) error
}

// Dispatcher 命令分发：解码入站消息，应用到房间状态并触发广播
type Dispatcher struct {
	rooms   *RoomManager
	phases  PhaseRecorder
	journal CommandRecorder

	pending sync.WaitGroup // 尚未完成的目录同步
}

type DispatcherOption func(*Dispatcher)

func WithPhaseRecorder(p PhaseRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.phases = p }
}

func WithJournal(j CommandRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.journal = j }
}

func NewDispatcher(rooms *RoomManager, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{rooms: rooms}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle 处理一条原始入站消息。格式错误只丢弃本条消息，
// 未知类型记录日志后忽略；返回的 error 仅供调用方观测。
func (d *Dispatcher) Handle(roomID string, raw []byte) error {
	cmd, err := DecodeCommand(raw)
	if err != nil {
		room := d.rooms.Get(roomID)
		switch {
		case errors.Is(err, ErrUnknownKind):
			Log.Warnf("room=%s ignore: %v", roomID, err)
			if room != nil {
				room.metrics.IncUnknownKind()
			}
		default:
			Log.Debugf("room=%s drop: %v", roomID, err)
			if room != nil {
				room.metrics.IncMalformed()
			}
		}
		return err
	}
	d.Apply(roomID, cmd)
	return nil
}

// Apply 将已解码的命令应用到房间；房间不存在或已销毁时返回 false
func (d *Dispatcher) Apply(roomID string, cmd Command) bool {
	room := d.rooms.Get(roomID)
	if room == nil {
		return false
	}
	var started bool
	ok := room.Do(func(s *GameState) *Envelope {
		switch c := cmd.(type) {
		case PlayerJoin:
			s.Join(c.PlayerID, c.Name, c.Civilization)
		case StartGame:
			started = s.Start()
		case UnitMove:
			s.Move(c.UnitID, c.TargetX, c.TargetY)
		case UnitSelect:
			s.Select(c.PlayerID, c.UnitIDs)
		case GetGameState:
			return &Envelope{Type: KindGameState, Data: s.Snapshot()}
		default:
			return nil
		}
		out := &Envelope{Type: cmd.Kind(), Data: cmd}
		// 在房间锁内写日志，日志顺序即应用顺序
		if d.journal != nil {
			if err := d.journal.Record(roomID, *out); err != nil {
				Log.Errorf("room=%s journal: %v", roomID, err)
			}
		}
		return out
	})
	if !ok {
		return false
	}
	room.metrics.IncAccepted()
	if started {
		d.recordPhase(roomID, PhasePlaying)
	}
	return true
}

// Finish 将进行中的房间推进到 finished 并广播快照
func (d *Dispatcher) Finish(roomID string) bool {
	room := d.rooms.Get(roomID)
	if room == nil {
		return false
	}
	var finished bool
	room.Do(func(s *GameState) *Envelope {
		if finished = s.Finish(); !finished {
			return nil
		}
		return &Envelope{Type: KindGameState, Data: s.Snapshot()}
	})
	if finished {
		d.recordPhase(roomID, PhaseFinished)
	}
	return finished
}

// recordPhase 异步同步到目录；目录只接受向前推进，乱序到达的旧阶段会被忽略
func (d *Dispatcher) recordPhase(roomID string, phase Phase) {
	if d.phases == nil {
		return
	}
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := d.phases.SetGameState(ctx, roomID, string(phase))
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			Log.Errorf("room=%s catalog phase=%s: %v", roomID, phase, err)
		}
	}()
}

// Wait 等待所有进行中的目录同步完成，关闭目录前调用
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}
