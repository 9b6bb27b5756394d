package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/handlers/public"
	"github.com/creativedesignseo/taxi-bcn/internal/services"
	"github.com/creativedesignseo/taxi-bcn/pkg/cache"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/creativedesignseo/taxi-bcn/pkg/maps"
	"github.com/creativedesignseo/taxi-bcn/pkg/websocket"
	"github.com/creativedesignseo/taxi-bcn/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Caller:  cfg.Log.Caller,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	provider, err := newMapsProvider(cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create maps provider")
	}

	store := newStore(cfg, appLogger)
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize services
	suggestService, err := services.NewGeoSuggestService(cfg, provider, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create suggest service")
	}
	locationService := services.NewLocationService(cfg, provider, store, appLogger)
	routeService := services.NewRouteService(cfg, provider, appLogger)
	composer := services.NewHandoffComposer(cfg)

	hub := websocket.NewHub(appLogger)
	go hub.Run(ctx)

	formService := services.NewFormService(cfg, suggestService, locationService, routeService, composer, appLogger,
		services.WithObserver(public.NewSnapshotPublisher(hub)),
	)
	go formService.RunJanitor(ctx)

	// Initialize handlers
	wsHandler := websocket.NewHandler(hub, websocket.Config{
		ReadBufferSize:    cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:   cfg.WebSocket.WriteBufferSize,
		SendBufferSize:    cfg.WebSocket.SendBufferSize,
		HandshakeTimeout:  cfg.WebSocket.HandshakeTimeout,
		PingInterval:      cfg.WebSocket.PingInterval,
		PongTimeout:       cfg.WebSocket.PongTimeout,
		MaxConnections:    cfg.WebSocket.MaxConnections,
		EnableCompression: cfg.WebSocket.EnableCompression,
		AllowedOrigins:    cfg.WebSocket.AllowedOrigins,
	}, appLogger)
	formHandler := public.NewFormHandler(formService, wsHandler, appLogger)

	router := routes.NewRouter(routes.RouterDependencies{
		Config:      cfg,
		Logger:      appLogger,
		Store:       store,
		Forms:       formService,
		FormHandler: formHandler,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(map[string]interface{}{
			"addr":     server.Addr,
			"provider": provider.Name(),
		}).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server shutdown failed")
	}
	formService.Shutdown()
}

func newMapsProvider(cfg *config.Config) (maps.MapsProvider, error) {
	switch cfg.Maps.Provider {
	case "google":
		return maps.NewGoogleMapsProvider(maps.GoogleMapsConfig{
			APIKey: cfg.Maps.GoogleMaps.APIKey,
			Radius: cfg.Maps.GoogleMaps.Radius,
		})
	default:
		return maps.NewMapboxProvider(maps.MapboxConfig{
			AccessToken: cfg.Maps.Mapbox.AccessToken,
			SearchAPI:   cfg.Maps.Mapbox.SearchAPI,
			Timeout:     cfg.Maps.Timeout,
		}), nil
	}
}

// newStore connects to redis when enabled and falls back to an in-process
// store otherwise.
func newStore(cfg *config.Config, log *logger.Logger) cache.Store {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache()
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		KeyPrefix:    cfg.Redis.KeyPrefix,
	})
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using in-memory cache")
		return cache.NewMemoryCache()
	}
	return redisCache
}
