package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// 定长格式，保证按字符串排序即按时间排序
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite 基于 modernc.org/sqlite 的目录存储
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			players_json TEXT NOT NULL,
			max_players INTEGER NOT NULL,
			game_state TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_state_created ON rooms(game_state, created_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Create(ctx context.Context, name string) (Room, error) {
	r := newRoom(name)
	players, err := json.Marshal(r.Players)
	if err != nil {
		return Room{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rooms(id,name,players_json,max_players,game_state,created_at) VALUES(?,?,?,?,?,?)`,
		r.ID, r.Name, string(players), r.MaxPlayers, r.GameState, r.CreatedAt.Format(createdLayout))
	if err != nil {
		return Room{}, fmt.Errorf("insert room: %w", err)
	}
	return r, nil
}

func (s *SQLite) List(ctx context.Context, state string) ([]Room, error) {
	q := `SELECT id,name,players_json,max_players,game_state,created_at FROM rooms`
	var args []any
	if state != "" {
		q += ` WHERE game_state=?`
		args = append(args, state)
	}
	q += ` ORDER BY created_at ASC, rowid ASC LIMIT ?`
	args = append(args, listLimit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Room{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id string) (Room, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,players_json,max_players,game_state,created_at FROM rooms WHERE id=?`, id)
	r, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	return r, err
}

func (s *SQLite) SetGameState(ctx context.Context, id, state string) error {
	before, err := earlierStates(state)
	if err != nil {
		return err
	}
	if len(before) == 0 {
		return s.exists(ctx, id)
	}
	q := `UPDATE rooms SET game_state=? WHERE id=? AND game_state IN (?` + strings.Repeat(",?", len(before)-1) + `)`
	args := []any{state, id}
	for _, st := range before {
		args = append(args, st)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// 记录不存在，或阶段已不早于 state
		return s.exists(ctx, id)
	}
	return nil
}

func (s *SQLite) exists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id=?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(sc scanner) (Room, error) {
	var (
		r       Room
		players string
		created string
	)
	if err := sc.Scan(&r.ID, &r.Name, &players, &r.MaxPlayers, &r.GameState, &created); err != nil {
		return Room{}, err
	}
	if err := json.Unmarshal([]byte(players), &r.Players); err != nil {
		return Room{}, fmt.Errorf("room %s players: %w", r.ID, err)
	}
	t, err := time.Parse(createdLayout, created)
	if err != nil {
		return Room{}, fmt.Errorf("room %s created_at: %w", r.ID, err)
	}
	r.CreatedAt = t
	return r, nil
}
