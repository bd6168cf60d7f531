package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/flaree/BallsDex-DiscordBot/internal/ball"
	"github.com/flaree/BallsDex-DiscordBot/internal/session"
	"github.com/flaree/BallsDex-DiscordBot/internal/spawn"
)

// Message is one inbound guild message as seen by the core.
type Message struct {
	GuildId   int64
	ChannelId string
	AuthorId  int64
	IsBot     bool // bot or webhook author
}

// SpawnEvent describes one ball that just appeared and is open for catching.
type SpawnEvent struct {
	Key       string // announcement message id, the catch session key
	Ball      ball.Ball
	Special   *ball.Special
	GuildId   int64
	ChannelId string
}

type Config struct {
	MaxAttackBonus int
	MaxHealthBonus int
}

// Core is the spawn-and-catch engine. It owns the catalog, the per-guild
// trigger, the session registry and the in-memory guild/blacklist caches;
// everything else (gateway, persistence, definition source) is a
// collaborator passed in at construction.
type Core struct {
	catalog  *ball.Catalog
	picker   *ball.Picker
	trigger  spawn.Trigger
	sessions *session.Registry

	announcer Announcer
	catches   CatchStore
	configs   ConfigStore
	source    CatalogSource
	clk       spawn.Clock
	cfg       Config

	mu             sync.RWMutex
	guilds         map[int64]GuildConfig
	blacklistUser  map[int64]struct{}
	blacklistGuild map[int64]struct{}
}

func New(catalog *ball.Catalog, trigger spawn.Trigger, picker *ball.Picker, announcer Announcer, catches CatchStore, configs ConfigStore, source CatalogSource, clk spawn.Clock, cfg Config) *Core {
	if clk == nil {
		clk = spawn.RealClock{}
	}
	if catalog == nil {
		catalog = ball.NewCatalog()
	}
	return &Core{
		catalog:        catalog,
		picker:         picker,
		trigger:        trigger,
		sessions:       session.NewRegistry(),
		announcer:      announcer,
		catches:        catches,
		configs:        configs,
		source:         source,
		clk:            clk,
		cfg:            cfg,
		guilds:         make(map[int64]GuildConfig),
		blacklistUser:  make(map[int64]struct{}),
		blacklistGuild: make(map[int64]struct{}),
	}
}

// LoadCaches pulls the catalog, guild configs and blacklists from their
// sources. Called once at startup and again on admin reload.
func (c *Core) LoadCaches(ctx context.Context) error {
	if err := c.ReloadCatalog(ctx); err != nil {
		return err
	}

	cfgs, err := c.configs.GuildConfigs(ctx)
	if err != nil {
		return fmt.Errorf("load guild configs: %w", err)
	}
	users, guildIds, err := c.configs.Blacklists(ctx)
	if err != nil {
		return fmt.Errorf("load blacklists: %w", err)
	}

	guilds := make(map[int64]GuildConfig, len(cfgs))
	for _, g := range cfgs {
		guilds[g.GuildId] = g
	}
	bu := make(map[int64]struct{}, len(users))
	for _, id := range users {
		bu[id] = struct{}{}
	}
	bg := make(map[int64]struct{}, len(guildIds))
	for _, id := range guildIds {
		bg[id] = struct{}{}
	}

	c.mu.Lock()
	c.guilds = guilds
	c.blacklistUser = bu
	c.blacklistGuild = bg
	c.mu.Unlock()

	log.Printf("loaded %d guild(s), %d blacklisted user(s), %d blacklisted guild(s)",
		len(guilds), len(bu), len(bg))
	return nil
}

// ReloadCatalog re-pulls definitions and swaps the catalog wholesale. An
// empty source set is reported and leaves spawning disabled until the next
// successful reload, but is not an error.
func (c *Core) ReloadCatalog(ctx context.Context) error {
	balls, specials, err := c.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	c.catalog.Reload(balls, specials)
	if len(balls) == 0 {
		log.Print("catalog reloaded empty: spawning disabled until next reload")
	} else {
		log.Printf("catalog reloaded: %d ball(s), %d special(s)", len(balls), len(specials))
	}
	return nil
}

func (c *Core) Catalog() *ball.Catalog { return c.catalog }

// OnMessage feeds one guild message through the spawn trigger. If the
// trigger fires, a ball and variant are chosen, the announcement is posted,
// and only then is the catch session opened, so a failed announcement never
// leaves a dangling session. The returned event is nil when nothing spawned.
func (c *Core) OnMessage(ctx context.Context, m Message) (*SpawnEvent, error) {
	if m.IsBot {
		return nil, nil
	}

	c.mu.RLock()
	gcfg, ok := c.guilds[m.GuildId]
	_, userBlocked := c.blacklistUser[m.AuthorId]
	_, guildBlocked := c.blacklistGuild[m.GuildId]
	c.mu.RUnlock()

	if !ok || !gcfg.Enabled || gcfg.SpawnChannel == "" || userBlocked || guildBlocked {
		return nil, nil
	}
	if !c.trigger.Offer(m.GuildId, m.AuthorId) {
		return nil, nil
	}

	b, err := c.picker.PickBall(c.catalog.Enabled())
	if err != nil {
		return nil, err
	}
	now := c.clk.Now()
	sp := c.picker.PickSpecial(c.catalog.Specials(), now)

	msgId, err := c.announcer.PostAnnouncement(ctx, gcfg.SpawnChannel, b, sp)
	if err != nil {
		if errors.Is(err, ErrChannelGone) {
			c.evictGuild(m.GuildId)
			log.Printf("lost spawn channel %s for guild %d", gcfg.SpawnChannel, m.GuildId)
		}
		return nil, fmt.Errorf("announce spawn: %w", err)
	}

	if _, err := c.sessions.Open(msgId, b, sp, m.GuildId, gcfg.SpawnChannel, now); err != nil {
		return nil, err
	}
	return &SpawnEvent{Key: msgId, Ball: b, Special: sp, GuildId: m.GuildId, ChannelId: gcfg.SpawnChannel}, nil
}

// OnCatchAttempt validates one catch attempt against the session keyed by
// the announcement message id. The winning attempt rolls stat bonuses and
// persists the catch before the session is marked caught, so a failed
// persistence keeps the session winnable. Attempts from blacklisted users
// are silently dropped (ResultNone).
func (c *Core) OnCatchAttempt(ctx context.Context, key, candidate string, authorId int64) (session.Result, *ball.Caught, error) {
	c.mu.RLock()
	_, blocked := c.blacklistUser[authorId]
	c.mu.RUnlock()
	if blocked {
		return session.ResultNone, nil, nil
	}

	return c.sessions.Attempt(ctx, key, candidate, authorId, c.materialize)
}

func (c *Core) materialize(ctx context.Context, s *session.Session, authorId int64) (*ball.Caught, error) {
	atk, hp := c.picker.RollBonuses(s.Ball, s.Special, c.cfg.MaxAttackBonus, c.cfg.MaxHealthBonus)
	caught := ball.Caught{
		GuildId:     s.GuildId,
		PlayerId:    authorId,
		BallId:      s.Ball.Id,
		Country:     s.Ball.Country,
		AttackBonus: atk,
		HealthBonus: hp,
		SpawnedAt:   s.SpawnedAt,
		CaughtAt:    c.clk.Now(),
	}
	if s.Special != nil {
		caught.SpecialId = s.Special.Id
		caught.CatchPhrase = s.Special.CatchPhrase
	}

	id, first, err := c.catches.AddCaught(ctx, caught)
	if err != nil {
		return nil, fmt.Errorf("persist catch: %w", err)
	}
	caught.Id = id
	caught.FirstOwned = first
	return &caught, nil
}

// ExplainGuildState returns the spawn trigger diagnostics for a guild.
func (c *Core) ExplainGuildState(guildId int64) (spawn.Snapshot, bool) {
	return c.trigger.Explain(guildId)
}

// AdminClearSession force-closes a catch session.
func (c *Core) AdminClearSession(key string) bool {
	return c.sessions.Close(key)
}

// AdminSetEnabled toggles spawning for a guild, persisting the change and
// updating the cache.
func (c *Core) AdminSetEnabled(ctx context.Context, guildId int64, enabled bool) error {
	c.mu.RLock()
	gcfg, ok := c.guilds[guildId]
	c.mu.RUnlock()
	if !ok {
		gcfg = GuildConfig{GuildId: guildId}
	}
	gcfg.Enabled = enabled

	if err := c.configs.UpsertGuildConfig(ctx, gcfg); err != nil {
		return fmt.Errorf("save guild config: %w", err)
	}
	c.applyGuildConfig(gcfg)
	return nil
}

// AdminSetSpawnChannel points a guild's spawns at a channel and enables it.
func (c *Core) AdminSetSpawnChannel(ctx context.Context, guildId int64, channelId string) error {
	gcfg := GuildConfig{GuildId: guildId, SpawnChannel: channelId, Enabled: true}
	if err := c.configs.UpsertGuildConfig(ctx, gcfg); err != nil {
		return fmt.Errorf("save guild config: %w", err)
	}
	c.applyGuildConfig(gcfg)
	return nil
}

// SweepSessions expires idle sessions. Run periodically by the host.
func (c *Core) SweepSessions(ttl time.Duration) int {
	return c.sessions.Sweep(c.clk.Now(), ttl)
}

func (c *Core) applyGuildConfig(gcfg GuildConfig) {
	c.mu.Lock()
	c.guilds[gcfg.GuildId] = gcfg
	c.mu.Unlock()
}

// evictGuild drops a guild whose spawn channel disappeared; spawning stays
// off until an admin configures a new channel.
func (c *Core) evictGuild(guildId int64) {
	c.mu.Lock()
	if gcfg, ok := c.guilds[guildId]; ok {
		gcfg.SpawnChannel = ""
		c.guilds[guildId] = gcfg
	}
	c.mu.Unlock()
}
