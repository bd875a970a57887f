package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// 入站命令类型
const (
	KindPlayerJoin   = "player_join"
	KindUnitMove     = "unit_move"
	KindUnitSelect   = "unit_select"
	KindStartGame    = "start_game"
	KindGetGameState = "get_game_state"

	// 出站快照类型
	KindGameState = "game_state"
)

var (
	// ErrMalformed 非法 JSON 或缺少必填字段：丢弃该条消息，连接保持
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownKind 未识别的命令类型：记录日志后忽略
	ErrUnknownKind = errors.New("unknown message type")
)

// Envelope 入站与出站共用的消息外壳 {type, data}
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Command 入站命令（带类型标签的联合体）
type Command interface {
	Kind() string
}

type PlayerJoin struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	Civilization string `json:"civilization,omitempty"`
}

type UnitMove struct {
	UnitID  string  `json:"unit_id"`
	TargetX float64 `json:"target_x"`
	TargetY float64 `json:"target_y"`
}

type UnitSelect struct {
	UnitIDs  []string `json:"unit_ids"`
	PlayerID string   `json:"player_id"`
}

type StartGame struct{}

type GetGameState struct{}

// Unrecognized 未知类型，仅保留类型名用于日志
type Unrecognized struct {
	Type string
}

func (PlayerJoin) Kind() string     { return KindPlayerJoin }
func (UnitMove) Kind() string       { return KindUnitMove }
func (UnitSelect) Kind() string     { return KindUnitSelect }
func (StartGame) Kind() string      { return KindStartGame }
func (GetGameState) Kind() string   { return KindGetGameState }
func (u Unrecognized) Kind() string { return u.Type }

const envelopeSchema = `{
	"type": "object",
	"required": ["type"],
	"properties": {
		"type": {"type": "string"},
		"data": {"type": "object"}
	}
}`

var dataSchemas = map[string]string{
	KindPlayerJoin: `{
		"type": "object",
		"required": ["player_id", "name"],
		"properties": {
			"player_id": {"type": "string", "minLength": 1},
			"name": {"type": "string"},
			"civilization": {"type": "string"}
		}
	}`,
	KindUnitMove: `{
		"type": "object",
		"required": ["unit_id", "target_x", "target_y"],
		"properties": {
			"unit_id": {"type": "string", "minLength": 1},
			"target_x": {"type": "number"},
			"target_y": {"type": "number"}
		}
	}`,
	KindUnitSelect: `{
		"type": "object",
		"required": ["unit_ids", "player_id"],
		"properties": {
			"unit_ids": {"type": "array", "items": {"type": "string"}},
			"player_id": {"type": "string", "minLength": 1}
		}
	}`,
	KindStartGame:    `{"type": "object"}`,
	KindGetGameState: `{"type": "object"}`,
}

var (
	envelopeValidator = jsonschema.MustCompileString("mem://envelope.json", envelopeSchema)
	dataValidators    = compileDataSchemas()
)

func compileDataSchemas() map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(dataSchemas))
	for kind, src := range dataSchemas {
		out[kind] = jsonschema.MustCompileString("mem://"+kind+".json", src)
	}
	return out
}

// DecodeCommand 解析并校验一条入站消息
func DecodeCommand(raw []byte) (Command, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := envelopeValidator.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	obj := doc.(map[string]any)
	kind := obj["type"].(string)
	v, ok := dataValidators[kind]
	if !ok {
		return Unrecognized{Type: kind}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	data, ok := obj["data"]
	if !ok {
		data = map[string]any{}
	}
	if err := v.Validate(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, kind, err)
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch kind {
	case KindPlayerJoin:
		var c PlayerJoin
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case KindUnitMove:
		var c UnitMove
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case KindUnitSelect:
		var c UnitSelect
		if err := decodeData(env.Data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case KindStartGame:
		return StartGame{}, nil
	default:
		return GetGameState{}, nil
	}
}

func decodeData(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
