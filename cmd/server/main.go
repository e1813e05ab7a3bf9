package main

import (
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/noorhub/salahtrack/internal/cache"
	"github.com/noorhub/salahtrack/internal/config"
	"github.com/noorhub/salahtrack/internal/db"
	"github.com/noorhub/salahtrack/internal/notify"
	"github.com/noorhub/salahtrack/internal/prayer"
	"github.com/noorhub/salahtrack/internal/timings"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// initialize PostgreSQL
	if err := db.Init(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init failed")
	}

	// run pending migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	store := db.NewStore(db.DB)

	// the connectivity probe picks Redis or the in-process fallback
	appCache := cache.NewWithFallback(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)

	provider := timings.NewClient()
	if cfg.TimingsBaseURL != "" {
		provider.BaseURL = cfg.TimingsBaseURL
	}

	var notifier prayer.Notifier
	if cfg.MQTTBrokerURL != "" {
		publisher, err := notify.NewPublisher(cfg.MQTTBrokerURL, "salahtrack-server")
		if err != nil {
			log.Error().Err(err).Msg("MQTT unavailable, completion events disabled")
		} else {
			defer publisher.Close()
			notifier = publisher
		}
	}

	engine := prayer.NewEngine(store, appCache, provider, notifier)

	r := gin.Default()
	RegisterRoutes(r, cfg, store, appCache, engine)

	log.Info().Str("address", cfg.ServerAddress).Msg("listening")
	if err := r.Run(cfg.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
