package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	BallsJson         string
	DiscordToken      string
	DevGuild          string
	DBPath            string
	OpsAddr           string
	SpawnThresholdMin int
	SpawnThresholdMax int
	SpamWindowSeconds int
	MaxAttackBonus    int
	MaxHealthBonus    int
	SessionTTLMinutes int
	SweepEveryMinutes int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	ballsJson := os.Getenv("BALLS_JSON")
	if ballsJson == "" {
		return nil, fmt.Errorf("no BALLS_JSON in environment")
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("no DISCORD_TOKEN in environment")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		return nil, fmt.Errorf("no DB_PATH in environment")
	}

	spawnMin, err := loadInt("SPAWN_THRESHOLD_MIN", 40)
	if err != nil {
		return nil, err
	}
	spawnMax, err := loadInt("SPAWN_THRESHOLD_MAX", 80)
	if err != nil {
		return nil, err
	}
	if spawnMin < 1 || spawnMax < spawnMin {
		return nil, fmt.Errorf("bad spawn thresholds: min=%d max=%d", spawnMin, spawnMax)
	}
	spamWindow, err := loadInt("SPAM_WINDOW_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	maxAtk, err := loadInt("MAX_ATTACK_BONUS", 20)
	if err != nil {
		return nil, err
	}
	maxHp, err := loadInt("MAX_HEALTH_BONUS", 20)
	if err != nil {
		return nil, err
	}
	ttl, err := loadInt("SESSION_TTL_MINUTES", 20)
	if err != nil {
		return nil, err
	}
	sweep, err := loadInt("SWEEP_EVERY_MINUTES", 5)
	if err != nil {
		return nil, err
	}

	return &Config{
		BallsJson:         ballsJson,
		DiscordToken:      token,
		DevGuild:          os.Getenv("DEV_GUILD_ID"),
		DBPath:            dbPath,
		OpsAddr:           os.Getenv("OPS_ADDR"),
		SpawnThresholdMin: spawnMin,
		SpawnThresholdMax: spawnMax,
		SpamWindowSeconds: spamWindow,
		MaxAttackBonus:    maxAtk,
		MaxHealthBonus:    maxHp,
		SessionTTLMinutes: ttl,
		SweepEveryMinutes: sweep,
	}, nil
}

func loadInt(key string, defValue int) (int, error) {
	value := os.Getenv(key)
	if value != "" {
		return strconv.Atoi(value)
	}

	return defValue, nil
}
