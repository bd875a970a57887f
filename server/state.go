package server

import (
	"github.com/google/uuid"
)

// Phase 房间的状态机：lobby → playing → finished，只能前进
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

func (p Phase) rank() int {
	switch p {
	case PhaseLobby:
		return 0
	case PhasePlaying:
		return 1
	case PhaseFinished:
		return 2
	}
	return -1
}

// 开局锚点：第一个加入者在左侧，第二个在右侧，之后交替
var anchors = [...]struct{ X, Y float64 }{{100, 300}, {700, 300}}

const villagersPerPlayer = 3

// GameState 一局游戏的权威状态；本身不加锁，由 Room 串行化访问
type GameState struct {
	phase     Phase
	players   map[string]*Player
	order     []string // 加入顺序
	units     map[string]*Unit
	buildings map[string]*Building
	resources map[string]*Resources

	newID func() string
}

// NewGameState 创建空的 lobby 状态
func NewGameState() *GameState {
	return &GameState{
		phase:     PhaseLobby,
		players:   make(map[string]*Player),
		units:     make(map[string]*Unit),
		buildings: make(map[string]*Building),
		resources: make(map[string]*Resources),
		newID:     uuid.NewString,
	}
}

func (s *GameState) Phase() Phase { return s.phase }

// advancePhase 仅允许向前推进
func (s *GameState) advancePhase(to Phase) bool {
	if to.rank() <= s.phase.rank() {
		return false
	}
	s.phase = to
	return true
}

// Join 加入或重新加入；重复 player_id 只覆盖名字与文明
func (s *GameState) Join(playerID, name, civilization string) {
	if civilization == "" {
		civilization = defaultCivilization
	}
	if p, ok := s.players[playerID]; ok {
		p.Name = name
		p.Civilization = civilization
		return
	}
	s.players[playerID] = &Player{
		ID:           playerID,
		Name:         name,
		Civilization: civilization,
		Color:        colorForJoinIndex(len(s.order)),
		Age:          AgeDark,
	}
	s.order = append(s.order, playerID)
	s.resources[playerID] = startingResources(playerID)
}

// Start 离开 lobby 并为每个玩家生成城镇中心和三个村民；非 lobby 时为 no-op
func (s *GameState) Start() bool {
	if s.phase != PhaseLobby {
		return false
	}
	s.advancePhase(PhasePlaying)
	for i, pid := range s.order {
		a := anchors[i%len(anchors)]
		tc := newTownCenter(s.newID(), pid, a.X, a.Y)
		s.buildings[tc.ID] = tc
		for j := 0; j < villagersPerPlayer; j++ {
			v := newVillager(s.newID(), pid, a.X+float64(j*30), a.Y+50)
			s.units[v.ID] = v
		}
	}
	return true
}

// Finish playing → finished
func (s *GameState) Finish() bool {
	if s.phase != PhasePlaying {
		return false
	}
	return s.advancePhase(PhaseFinished)
}

// Move 设定目标点；未知单位为 no-op
func (s *GameState) Move(unitID string, x, y float64) bool {
	u, ok := s.units[unitID]
	if !ok {
		return false
	}
	u.setTarget(x, y)
	return true
}

// Select 先清空该玩家全部单位的选中，再选中 ids 中属于该玩家的单位，返回选中数
func (s *GameState) Select(playerID string, unitIDs []string) int {
	for _, u := range s.units {
		if u.PlayerID == playerID {
			u.Selected = false
		}
	}
	n := 0
	for _, id := range unitIDs {
		u, ok := s.units[id]
		if !ok || u.PlayerID != playerID || u.Selected {
			continue
		}
		u.Selected = true
		n++
	}
	return n
}

// Step 推进一次所有移动中的单位，返回移动的单位数
func (s *GameState) Step(factor float64) int {
	if s.phase != PhasePlaying {
		return 0
	}
	moved := 0
	for _, u := range s.units {
		if u.advance(factor) {
			moved++
		}
	}
	return moved
}

// Unit 返回单位副本
func (s *GameState) Unit(id string) (Unit, bool) {
	u, ok := s.units[id]
	if !ok {
		return Unit{}, false
	}
	return u.clone(), true
}

// UnitsOf 返回某玩家的单位 id（无序）
func (s *GameState) UnitsOf(playerID string) []string {
	var ids []string
	for id, u := range s.units {
		if u.PlayerID == playerID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Snapshot 整个房间状态的可序列化副本
type Snapshot struct {
	Players   map[string]PlayerView `json:"players"`
	Units     map[string]Unit       `json:"units"`
	Resources map[string]Resources  `json:"resources"`
	Buildings map[string]Building   `json:"buildings"`
	GameState Phase                 `json:"game_state"`
}

func (s *GameState) Snapshot() Snapshot {
	snap := Snapshot{
		Players:   make(map[string]PlayerView, len(s.players)),
		Units:     make(map[string]Unit, len(s.units)),
		Resources: make(map[string]Resources, len(s.resources)),
		Buildings: make(map[string]Building, len(s.buildings)),
		GameState: s.phase,
	}
	for id, p := range s.players {
		snap.Players[id] = p.view()
	}
	for id, u := range s.units {
		snap.Units[id] = u.clone()
	}
	for id, r := range s.resources {
		snap.Resources[id] = *r
	}
	for id, b := range s.buildings {
		snap.Buildings[id] = b.clone()
	}
	return snap
}
