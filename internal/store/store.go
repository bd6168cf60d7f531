package store

import (
	"context"

	"github.com/flaree/BallsDex-DiscordBot/internal/game"
)

// LeaderRow is one entry of the per-guild catch leaderboard.
type LeaderRow struct {
	PlayerId int64
	Count    int64
}

type Store interface {
	game.CatchStore
	game.ConfigStore
	TopCatchers(ctx context.Context, guildId int64, limit int) ([]LeaderRow, error)
	Close() error
}
