package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flaree/BallsDex-DiscordBot/internal/ball"
	"github.com/flaree/BallsDex-DiscordBot/internal/game"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db         *sql.DB
	insertStmt *sql.Stmt
	ownedStmt  *sql.Stmt
	topStmt    *sql.Stmt
}

var _ Store = (*SQLiteStore)(nil)

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db path: %w", err)
	}

	// DSN notes:
	// - _pragma=busy_timeout sets a lock wait
	// - _pragma=journal_mode(WAL) enables the write-ahead log
	// - _pragma=synchronous(NORMAL) sets the disk synchronizing
	//	 mode to NORMAL (recommended with WAL enabled)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", filepath.Clean(dbPath))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	ins, err := db.Prepare(`
		INSERT INTO caught_balls (guild_id, player_id, ball_id, special_id, attack_bonus, health_bonus, spawned_at, caught_at)
		VALUES (?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	owned, err := db.Prepare(`
		SELECT EXISTS(SELECT 1 FROM caught_balls WHERE player_id = ? AND ball_id = ?)
	`)
	if err != nil {
		_ = ins.Close()
		_ = db.Close()
		return nil, err
	}

	top, err := db.Prepare(`
		SELECT player_id, COUNT(*) AS n
		FROM caught_balls
		WHERE guild_id = ?
		GROUP BY player_id
		ORDER BY n DESC, player_id ASC
		LIMIT ?
	`)
	if err != nil {
		_ = ins.Close()
		_ = owned.Close()
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, insertStmt: ins, ownedStmt: owned, topStmt: top}, nil
}

func (s *SQLiteStore) Close() error {
	if s.insertStmt != nil {
		_ = s.insertStmt.Close()
	}
	if s.ownedStmt != nil {
		_ = s.ownedStmt.Close()
	}
	if s.topStmt != nil {
		_ = s.topStmt.Close()
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS caught_balls (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id      BIGINT  NOT NULL,
			player_id     BIGINT  NOT NULL,
			ball_id       INTEGER NOT NULL,
			special_id    INTEGER NOT NULL DEFAULT 0,
			attack_bonus  INTEGER NOT NULL,
			health_bonus  INTEGER NOT NULL,
			spawned_at    INTEGER NOT NULL,
			caught_at     INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_owned
			ON caught_balls (player_id, ball_id);
		CREATE INDEX IF NOT EXISTS idx_guild
			ON caught_balls (guild_id);

		CREATE TABLE IF NOT EXISTS guild_configs (
			guild_id      BIGINT PRIMARY KEY,
			spawn_channel TEXT   NOT NULL DEFAULT '',
			enabled       INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS blacklisted_users (
			discord_id BIGINT PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS blacklisted_guilds (
			discord_id BIGINT PRIMARY KEY
		);
	`)
	return err
}

// AddCaught inserts one catch and reports whether this is the first time
// the player owns this ball. The ownership check and insert share the
// store's single connection, so the pair stays consistent.
func (s *SQLiteStore) AddCaught(ctx context.Context, c ball.Caught) (int64, bool, error) {
	if s == nil || s.db == nil {
		return 0, false, errors.New("store not initialized")
	}

	if c.CaughtAt.IsZero() {
		c.CaughtAt = time.Now()
	}

	var owned int
	if err := s.ownedStmt.QueryRowContext(ctx, c.PlayerId, c.BallId).Scan(&owned); err != nil {
		return 0, false, err
	}

	res, err := s.insertStmt.ExecContext(ctx,
		c.GuildId,
		c.PlayerId,
		c.BallId,
		c.SpecialId,
		c.AttackBonus,
		c.HealthBonus,
		c.SpawnedAt.Unix(),
		c.CaughtAt.Unix(),
	)
	if err != nil {
		return 0, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, owned == 0, nil
}

func (s *SQLiteStore) GuildConfigs(ctx context.Context) ([]game.GuildConfig, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, spawn_channel, enabled FROM guild_configs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.GuildConfig
	for rows.Next() {
		var (
			cfg     game.GuildConfig
			enabled int
		)
		if err := rows.Scan(&cfg.GuildId, &cfg.SpawnChannel, &enabled); err != nil {
			return nil, err
		}
		cfg.Enabled = enabled != 0
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertGuildConfig(ctx context.Context, cfg game.GuildConfig) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}

	enabled := 0
	if cfg.Enabled {
		enabled = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_configs (guild_id, spawn_channel, enabled)
		VALUES (?,?,?)
		ON CONFLICT(guild_id) DO UPDATE SET spawn_channel = excluded.spawn_channel, enabled = excluded.enabled
	`, cfg.GuildId, cfg.SpawnChannel, enabled)
	return err
}

func (s *SQLiteStore) Blacklists(ctx context.Context) ([]int64, []int64, error) {
	if s == nil || s.db == nil {
		return nil, nil, errors.New("store not initialized")
	}

	users, err := s.scanIds(ctx, `SELECT discord_id FROM blacklisted_users`)
	if err != nil {
		return nil, nil, err
	}
	guilds, err := s.scanIds(ctx, `SELECT discord_id FROM blacklisted_guilds`)
	if err != nil {
		return nil, nil, err
	}
	return users, guilds, nil
}

func (s *SQLiteStore) scanIds(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) TopCatchers(ctx context.Context, guildId int64, limit int) ([]LeaderRow, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.topStmt.QueryContext(ctx, guildId, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderRow, 0, limit)
	for rows.Next() {
		var r LeaderRow
		if err := rows.Scan(&r.PlayerId, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
