package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/michel-pi/shortly/internal/api"
	"github.com/michel-pi/shortly/internal/controller"
	"github.com/michel-pi/shortly/internal/migrations"
	"github.com/michel-pi/shortly/internal/service"
	"github.com/michel-pi/shortly/internal/storage/postgres"
	"github.com/michel-pi/shortly/internal/storage/redis"
	"github.com/michel-pi/shortly/internal/util"

	_ "github.com/lib/pq"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()

	db, dbCleanup, err := util.NewDBConnection(logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	defer dbCleanup()

	if err := migrations.RunMigrations(db, logger); err != nil {
		logger.Fatal(zap.Error(err))
	}

	redisClient, redisCleanup, err := util.NewRedisClient(logger, util.NewRedisConfig())
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	defer redisCleanup()

	store := postgres.NewStorage(db)
	cache := redis.NewCache(redisClient)

	deriver, err := service.NewSecretDeriver(util.NewSecretConfig())
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	codes, err := service.NewShortCodeGenerator(util.NewShortCodeConfig())
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	geo, geoCleanup, err := service.NewCountryResolver(util.NewGeoConfig(), logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	defer geoCleanup()

	tokenConfig := util.NewTokenConfig()
	jwtService := service.NewJWTService(tokenConfig, deriver, cache)
	refreshTokens := service.NewRefreshTokenService(tokenConfig, store)
	authService := service.NewAuthService(store, jwtService, refreshTokens, logger)
	shortLinks := service.NewShortLinkService(store, codes, cache, util.NewLinkCacheConfig(), logger)
	accessKeys := service.NewAccessKeyService(store)
	engagements := service.NewEngagementService(store, geo, logger)

	if err := authService.SeedDefaultAdmin(ctx, util.NewAdminConfig()); err != nil {
		logger.Fatal(zap.Error(err))
	}

	c := controller.NewController(logger, authService, shortLinks, accessKeys, engagements)

	apiServer := api.NewAPI(c, logger, util.NewServerConfig(), jwtService, accessKeys)
	apiServer.Run(ctx)
}
