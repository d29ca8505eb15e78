// cmd/server/main.go - alertmap realtime alert server
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alertmap/internal/config"
	"alertmap/internal/database"
	"alertmap/internal/handlers"
	"alertmap/internal/middleware"
	"alertmap/internal/repository"
	"alertmap/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	// Версия приложения
	appVersion = "1.0.0"
	buildTime  = "unknown"
	gitCommit  = "unknown"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.Load()

	// Настраиваем логирование
	setupLogging(cfg)

	// Выводим информацию о запуске
	printStartupInfo(cfg)

	repo, closeStore, err := openStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("❌ Failed to open alert store")
	}
	defer closeStore()

	wsHub := handlers.NewHub()
	go wsHub.Run()
	defer wsHub.Shutdown()

	alertService := services.NewAlertService(repo, wsHub)

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitDuration)
		defer rateLimiter.Stop()
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:      cfg,
		Alerts:      handlers.NewAlertHandler(alertService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, alertService),
		Hub:         wsHub,
		RateLimiter: rateLimiter,
		Version:     appVersion,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler: router,
		// WriteTimeout не задаем: websocket соединения живут долго
		ReadTimeout:    15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logrus.Infof("🚀 alertmap server v%s starting...", appVersion)
		logrus.Infof("🌐 Server running on http://%s:%s", cfg.Host, cfg.Port)
		logrus.Infof("📡 WebSocket endpoint: ws://%s:%s/ws", cfg.Host, cfg.Port)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("❌ Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wsHub.Broadcast(handlers.MessageTypeSystem, map[string]interface{}{
		"message": "Server is shutting down",
	})

	// Даем хабу разослать системное сообщение
	time.Sleep(1 * time.Second)
	wsHub.Shutdown()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("⚠️  Server forced to shutdown")
	} else {
		logrus.Info("✅ Server gracefully stopped")
	}
}

// openStore выбирает хранилище по STORE_DRIVER
func openStore(cfg *config.Config) (repository.AlertRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logrus.Warn("Using in-memory alert store, alerts are lost on restart")
		return repository.NewMemoryAlertRepository(), func() {}, nil

	case config.StoreDriverMongo:
		logrus.Info("🔌 Connecting to MongoDB...")
		db, err := database.NewMongoDB(cfg)
		if err != nil {
			return nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeout)*time.Second)
		defer cancel()
		if err := db.CreateIndexes(ctx); err != nil {
			logrus.WithError(err).Warn("⚠️  Failed to create indexes")
		}

		closeFn := func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("⚠️  Error disconnecting from MongoDB")
			}
		}
		return repository.NewMongoAlertRepository(db.Database), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		gin.SetMode(gin.DebugMode)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func printStartupInfo(cfg *config.Config) {
	logrus.Info("================================================================================")
	logrus.Info("🗺️  alertmap server")
	logrus.Infof("📌 Version: %s | Build: %s | Commit: %s", appVersion, buildTime, gitCommit)
	logrus.Infof("🌍 Environment: %s", cfg.Environment)
	logrus.Info("🔧 Configuration:")
	logrus.Infof("   • Host: %s", cfg.Host)
	logrus.Infof("   • Port: %s", cfg.Port)
	logrus.Infof("   • Store: %s", cfg.StoreDriver)
	if cfg.StoreDriver == config.StoreDriverMongo {
		logrus.Infof("   • Database: %s", cfg.DatabaseName)
	}
	logrus.Infof("   • CORS Origins: %v", cfg.AllowedOrigins)
	if cfg.RateLimitEnabled {
		logrus.Infof("   • Rate Limit: %d requests per %s", cfg.RateLimitRequests, cfg.RateLimitDuration)
	}
	logrus.Info("================================================================================")
}
