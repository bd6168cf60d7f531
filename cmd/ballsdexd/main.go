package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/flaree/BallsDex-DiscordBot/internal/ball"
	"github.com/flaree/BallsDex-DiscordBot/internal/bot"
	"github.com/flaree/BallsDex-DiscordBot/internal/game"
	"github.com/flaree/BallsDex-DiscordBot/internal/ops"
	"github.com/flaree/BallsDex-DiscordBot/internal/spawn"
	"github.com/flaree/BallsDex-DiscordBot/internal/store"
)

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	st, err := store.OpenSQLite(config.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	session, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		log.Fatal("failed to start session: ", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	if err := session.Open(); err != nil {
		log.Fatal("failed to open session connection: ", err)
	}
	defer session.Close()

	appId := session.State.User.ID

	trigger := spawn.NewMessageTrigger(
		config.SpawnThresholdMin,
		config.SpawnThresholdMax,
		time.Duration(config.SpamWindowSeconds)*time.Second,
		nil,
		nil,
	)
	picker := ball.NewPicker(nil)
	catalog := ball.NewCatalog()
	core := game.New(
		catalog,
		trigger,
		picker,
		bot.NewAnnouncer(session, catalog),
		st,
		st,
		ball.FileSource{Path: config.BallsJson},
		nil,
		game.Config{
			MaxAttackBonus: config.MaxAttackBonus,
			MaxHealthBonus: config.MaxHealthBonus,
		},
	)
	if err := core.LoadCaches(context.Background()); err != nil {
		log.Fatal(err)
	}

	teardown, err := bot.Setup(session, appId, config.DevGuild, core, st)
	if err != nil {
		log.Fatal(err)
	}
	defer teardown()

	stopSweep := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(config.SweepEveryMinutes) * time.Minute)
		defer ticker.Stop()
		ttl := time.Duration(config.SessionTTLMinutes) * time.Minute
		for {
			select {
			case <-ticker.C:
				if n := core.SweepSessions(ttl); n > 0 {
					log.Printf("expired %d catch session(s)", n)
				}
			case <-stopSweep:
				return
			}
		}
	}()
	defer close(stopSweep)

	var opsSrv *ops.Server
	if config.OpsAddr != "" {
		opsSrv = ops.NewServer(core, config.OpsAddr)
		go func() {
			if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("ops server: %v", err)
			}
		}()
	}

	log.Println("ballsdexd running, press ctrl-c to exit")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if opsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opsSrv.Shutdown(ctx)
	}
}
