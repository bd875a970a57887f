package server

// Age 玩家所处时代
type Age string

const (
	AgeDark     Age = "dark"
	AgeFeudal   Age = "feudal"
	AgeCastle   Age = "castle"
	AgeImperial Age = "imperial"
)

const defaultCivilization = "generic"

// 按加入顺序交替分配的玩家颜色
var playerColors = [...]string{"blue", "red"}

// Player 房间内的玩家（按 player_id 唯一）
type Player struct {
	ID           string
	Name         string
	Civilization string
	Color        string
	Age          Age
}

// PlayerView 快照中的玩家条目
type PlayerView struct {
	Name         string `json:"name"`
	Civilization string `json:"civilization"`
	Color        string `json:"color"`
	Age          Age    `json:"age"`
}

func (p *Player) view() PlayerView {
	return PlayerView{Name: p.Name, Civilization: p.Civilization, Color: p.Color, Age: p.Age}
}

// Resources 玩家资源，加入时初始化为起始资源包
type Resources struct {
	PlayerID string `json:"player_id"`
	Food     int    `json:"food"`
	Wood     int    `json:"wood"`
	Gold     int    `json:"gold"`
	Stone    int    `json:"stone"`
}

func startingResources(playerID string) *Resources {
	return &Resources{PlayerID: playerID, Food: 200, Wood: 200, Gold: 100, Stone: 100}
}

func colorForJoinIndex(i int) string {
	return playerColors[i%len(playerColors)]
}
