package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/server/internal/httpserver"
	"github.com/robalobadob/memory/server/internal/palette"
	"github.com/robalobadob/memory/server/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := palette.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load palette")
	}
	log.Info().Int("symbols", palette.Stats()).Msg("palette loaded")

	db, err := openDB(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	srv := httpserver.New(store.NewMemoryStore(), db, httpserver.Config{
		ResolveDelay: time.Duration(getInt("RESOLVE_DELAY_MS", 1000)) * time.Millisecond,
		DailySalt:    os.Getenv("DAILY_SALT"),
	})
	go sweep(srv, getDuration("SESSION_TTL", 2*time.Hour))
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting memory server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// sweep drops sessions idle for longer than ttl.
func sweep(srv *httpserver.Server, ttl time.Duration) {
	t := time.NewTicker(ttl / 4)
	defer t.Stop()
	for range t.C {
		if n := srv.Sweep(context.Background(), ttl); n > 0 {
			log.Info().Int("removed", n).Msg("idle sessions swept")
		}
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n > 0 {
		return n
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}
