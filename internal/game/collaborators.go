package game

import (
	"context"
	"errors"

	"github.com/flaree/BallsDex-DiscordBot/internal/ball"
)

// Announcer failure sentinels. Implementations map their transport's errors
// onto these so nothing transport-specific crosses the game boundary.
var (
	ErrAnnounceForbidden = errors.New("missing permission to post in spawn channel")
	ErrChannelGone       = errors.New("spawn channel no longer exists")
)

// Announcer posts the "a wild ball appeared" message and returns the id of
// the posted message, which becomes the catch session key.
type Announcer interface {
	PostAnnouncement(ctx context.Context, channelId string, b ball.Ball, sp *ball.Special) (messageId string, err error)
}

// CatchStore persists a successful catch. firstOwned reports whether the
// player had never owned this ball before.
type CatchStore interface {
	AddCaught(ctx context.Context, c ball.Caught) (id int64, firstOwned bool, err error)
}

// GuildConfig is the per-guild spawning configuration.
type GuildConfig struct {
	GuildId      int64
	SpawnChannel string
	Enabled      bool
}

// ConfigStore is the persistence behind the in-memory guild and blacklist
// caches.
type ConfigStore interface {
	GuildConfigs(ctx context.Context) ([]GuildConfig, error)
	UpsertGuildConfig(ctx context.Context, cfg GuildConfig) error
	Blacklists(ctx context.Context) (users, guilds []int64, err error)
}

// CatalogSource is the pull-based refresh hook for ball definitions and
// special variants.
type CatalogSource interface {
	Load(ctx context.Context) ([]ball.Ball, []ball.Special, error)
}
