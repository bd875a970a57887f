package server

import "math"

// Task 单位当前任务
type Task string

const (
	TaskIdle      Task = "idle"
	TaskMoving    Task = "moving"
	TaskGathering Task = "gathering"
	TaskAttacking Task = "attacking"
)

const (
	// ArrivalThreshold 与目标距离不超过该值即视为到达
	ArrivalThreshold = 2.0

	UnitVillager       = "villager"
	BuildingTownCenter = "town_center"
)

// Unit 可移动单位；Tick 是唯一推进位置的写者
type Unit struct {
	ID             string   `json:"id"`
	PlayerID       string   `json:"player_id"`
	Type           string   `json:"type"`
	X              float64  `json:"x"`
	Y              float64  `json:"y"`
	Health         int      `json:"health"`
	MaxHealth      int      `json:"max_health"`
	Attack         int      `json:"attack"`
	Armor          int      `json:"armor"`
	Speed          float64  `json:"speed"`
	Selected       bool     `json:"selected"`
	AnimationFrame int      `json:"animation_frame"`
	TargetX        *float64 `json:"target_x"`
	TargetY        *float64 `json:"target_y"`
	Task           Task     `json:"task"`
}

// Building 建筑（开局每个玩家一个城镇中心）
type Building struct {
	ID              string   `json:"id"`
	PlayerID        string   `json:"player_id"`
	Type            string   `json:"type"`
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	Health          int      `json:"health"`
	MaxHealth       int      `json:"max_health"`
	Armor           int      `json:"armor"`
	ProductionQueue []string `json:"production_queue"`
}

func newVillager(id, playerID string, x, y float64) *Unit {
	return &Unit{
		ID:        id,
		PlayerID:  playerID,
		Type:      UnitVillager,
		X:         x,
		Y:         y,
		Health:    25,
		MaxHealth: 25,
		Attack:    3,
		Armor:     0,
		Speed:     1.0,
		Task:      TaskIdle,
	}
}

func newTownCenter(id, playerID string, x, y float64) *Building {
	return &Building{
		ID:              id,
		PlayerID:        playerID,
		Type:            BuildingTownCenter,
		X:               x,
		Y:               y,
		Health:          2400,
		MaxHealth:       2400,
		Armor:           0,
		ProductionQueue: []string{},
	}
}

// Moving 当且仅当有目标点时成立
func (u *Unit) Moving() bool {
	return u.Task == TaskMoving && u.TargetX != nil && u.TargetY != nil
}

func (u *Unit) setTarget(x, y float64) {
	u.TargetX, u.TargetY = &x, &y
	u.Task = TaskMoving
}

func (u *Unit) arrive() {
	u.X, u.Y = *u.TargetX, *u.TargetY
	u.TargetX, u.TargetY = nil, nil
	u.Task = TaskIdle
}

// advance 沿直线向目标匀速移动 speed*factor；返回是否发生了变化
func (u *Unit) advance(factor float64) bool {
	if !u.Moving() {
		return false
	}
	// 先各取一半再相减，坐标接近 MaxFloat64 时差值也不会溢出
	hx := *u.TargetX/2 - u.X/2
	hy := *u.TargetY/2 - u.Y/2
	s := math.Max(math.Abs(hx), math.Abs(hy))
	step := u.Speed * factor
	// 零距离也走这里，避免除零
	if s == 0 {
		u.arrive()
		return true
	}
	nx, ny := hx/s, hy/s
	n := math.Hypot(nx, ny) // 落在 [1, √2]
	dist := 2 * s * n       // 可能为 +Inf，只用于比较
	if dist <= ArrivalThreshold || step >= dist {
		u.arrive()
		return true
	}
	u.X += nx / n * step
	u.Y += ny / n * step
	return true
}

func (u *Unit) clone() Unit {
	c := *u
	if u.TargetX != nil {
		x := *u.TargetX
		c.TargetX = &x
	}
	if u.TargetY != nil {
		y := *u.TargetY
		c.TargetY = &y
	}
	return c
}

func (b *Building) clone() Building {
	c := *b
	c.ProductionQueue = append([]string{}, b.ProductionQueue...)
	return c
}
