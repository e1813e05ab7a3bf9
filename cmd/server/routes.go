package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/noorhub/salahtrack/internal/cache"
	"github.com/noorhub/salahtrack/internal/config"
	"github.com/noorhub/salahtrack/internal/db"
	"github.com/noorhub/salahtrack/internal/http/api"
	authapi "github.com/noorhub/salahtrack/internal/http/api/auth/endpoints"
	prayerapi "github.com/noorhub/salahtrack/internal/http/api/prayers/endpoints"
	"github.com/noorhub/salahtrack/internal/prayer"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, cfg *config.Config, store db.Store, appCache cache.Cache, engine *prayer.Engine) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
		Auth:   false,
	},
		authapi.AuthPublicModule(cfg.JWTSecret, store),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: cfg.JWTSecret,
		Store:     store,
	},
		authapi.AuthSessionModule(cfg.JWTSecret, store, appCache),
		prayerapi.PrayerModule(engine),
	)
}
