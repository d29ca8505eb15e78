// cmd/client/main.go - alertmap terminal client
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"alertmap/internal/app"
	"alertmap/internal/config"
	"alertmap/internal/feed"
	"alertmap/internal/identity"
	"alertmap/internal/locate"
	"alertmap/internal/mapview"
	"alertmap/internal/notify"
	"alertmap/internal/toast"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configPath := pflag.StringP("config", "c", config.DefaultClientConfigPath(), "path to the config file")
	pflag.Parse()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "alertmap: %v\n", err)
		os.Exit(1)
	}

	if err := setupLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "alertmap: %v\n", err)
		os.Exit(1)
	}

	// Ошибка хранилища не фатальна: работаем с общим id
	var storage identity.Storage
	if ring, err := identity.OpenKeyring(cfg.KeyringDir); err != nil {
		logrus.WithError(err).Warn("Keyring unavailable")
	} else {
		storage = ring
	}
	clientID := identity.GetOrCreateClientID(storage)

	locator, err := buildLocator(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "alertmap: %v\n", err)
		os.Exit(1)
	}

	events := app.NewEvents()
	toasts := toast.NewQueue(
		toast.WithTTL(cfg.ToastTTL),
		toast.WithOnChange(events.OnToastsChanged),
	)

	// Разрешение на системные уведомления запрашиваем один раз при старте
	notifier := notify.NewWebhookNotifier(cfg.NotifyWebhookURL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	granted := notifier.RequestPermission(ctx)
	cancel()

	dispatcher := notify.NewDispatcher(
		notify.NewSound(os.Stderr),
		notify.Vibration{Device: notify.NoVibrator{}},
		notifier,
		notify.ToastEffect{Queue: toasts},
	)

	feedClient := feed.New(cfg.ServerURL)
	shell := app.NewShell(app.ShellDeps{
		ClientID:   clientID,
		Store:      feedClient,
		Locator:    locator,
		Dispatcher: dispatcher,
		Toasts:     toasts,
		Map:        mapview.New(80, 16),
	})

	logrus.WithFields(logrus.Fields{
		"server":        cfg.ServerURL,
		"client_id":     clientID,
		"locator":       cfg.Locator,
		"notifications": granted,
	}).Info("Client starting")

	program := tea.NewProgram(app.NewModel(shell, feedClient, events), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		logrus.WithError(err).Error("Client exited with error")
		fmt.Fprintf(os.Stderr, "alertmap: %v\n", err)
		shell.Close()
		os.Exit(1)
	}
	shell.Close()
}

func buildLocator(cfg *config.ClientConfig) (locate.Locator, error) {
	if cfg.Locator == config.LocatorStatic {
		return locate.NewStatic(cfg.Lat, cfg.Lng)
	}
	return locate.NewIPLocator(cfg.IPLocatorURL), nil
}

// setupLogging пишет лог в файл с ротацией, чтобы не портить экран
func setupLogging(cfg *config.ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	logrus.SetOutput(&lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	})
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	return nil
}
