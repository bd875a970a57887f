// Package catalog 房间目录：房间元数据的创建、查询与阶段同步。
// 实时对局状态不在这里，见 server 包。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("room not found")
	ErrInvalidState = errors.New("unknown game state")
)

const (
	DefaultRoomName   = "New Game"
	DefaultMaxPlayers = 2
	StateLobby        = "lobby"

	// List 单次最多返回的条数
	listLimit = 100
)

// Player 目录中记录的玩家
type Player struct {
	ID           string `json:"id" bson:"id"`
	Name         string `json:"name" bson:"name"`
	Civilization string `json:"civilization" bson:"civilization"`
	Color        string `json:"color" bson:"color"`
	Age          string `json:"age" bson:"age"`
}

// Room 房间目录记录
type Room struct {
	ID         string    `json:"id" bson:"id"`
	Name       string    `json:"name" bson:"name"`
	Players    []Player  `json:"players" bson:"players"`
	MaxPlayers int       `json:"max_players" bson:"max_players"`
	GameState  string    `json:"game_state" bson:"game_state"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// Store 房间目录存储
type Store interface {
	Create(ctx context.Context, name string) (Room, error)
	// List 按创建时间升序返回 game_state 匹配的房间；state 为空时不过滤
	List(ctx context.Context, state string) ([]Room, error)
	Get(ctx context.Context, id string) (Room, error)
	// SetGameState 只向前推进 lobby → playing → finished；
	// 记录已处于相同或更靠后的阶段时不做修改并返回 nil
	SetGameState(ctx context.Context, id, state string) error
	Close() error
}

// 阶段顺序，与实时房间的状态机一致
var stateOrder = []string{StateLobby, "playing", "finished"}

// earlierStates 返回排在 state 之前的阶段
func earlierStates(state string) ([]string, error) {
	for i, st := range stateOrder {
		if st == state {
			return stateOrder[:i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidState, state)
}

func isEarlier(cur, next string) bool {
	before, err := earlierStates(next)
	if err != nil {
		return false
	}
	for _, st := range before {
		if st == cur {
			return true
		}
	}
	return false
}

func newRoom(name string) Room {
	if strings.TrimSpace(name) == "" {
		name = DefaultRoomName
	}
	return Room{
		ID:         uuid.NewString(),
		Name:       name,
		Players:    []Player{},
		MaxPlayers: DefaultMaxPlayers,
		GameState:  StateLobby,
		CreatedAt:  time.Now().UTC(),
	}
}

// Open 按驱动名打开目录存储
func Open(ctx context.Context, driver, dsn, database string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(dsn)
	case "mongo":
		return OpenMongo(ctx, dsn, database)
	default:
		return nil, fmt.Errorf("catalog: unknown driver %q", driver)
	}
}
