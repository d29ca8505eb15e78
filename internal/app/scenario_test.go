package app

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"alertmap/internal/config"
	"alertmap/internal/feed"
	"alertmap/internal/handlers"
	"alertmap/internal/locate"
	"alertmap/internal/mapview"
	"alertmap/internal/models"
	"alertmap/internal/repository"
	"alertmap/internal/services"
	"alertmap/internal/toast"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// client is one running application against a shared server
type client struct {
	mu    sync.Mutex
	shell *Shell
	feed  *feed.Client
	syncs int
}

func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := handlers.NewHub()
	go hub.Run()

	alertService := services.NewAlertService(repository.NewMemoryAlertRepository(), hub)
	router := handlers.NewRouter(handlers.RouterDeps{
		Config:    &config.Config{AllowedOrigins: []string{"*"}},
		Alerts:    handlers.NewAlertHandler(alertService),
		WebSocket: handlers.NewWebSocketHandler(hub, alertService),
		Hub:       hub,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return srv.URL
}

func startClient(t *testing.T, url, clientID string) *client {
	t.Helper()

	locator, err := locate.NewStatic(40.0, -3.7)
	require.NoError(t, err)

	c := &client{feed: feed.New(url)}
	c.shell = NewShell(ShellDeps{
		ClientID: clientID,
		Store:    c.feed,
		Locator:  locator,
		Toasts:   toast.NewQueue(toast.WithTTL(time.Hour)),
		Map:      mapview.New(60, 20),
	})

	sub, err := c.feed.SubscribeAll(context.Background(), func(alerts []models.Alert) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.syncs++
		c.shell.Notify(context.Background(), c.shell.HandleSnapshot(alerts))
	})
	require.NoError(t, err)
	c.shell.Attach(sub)

	t.Cleanup(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.shell.Close()
	})

	require.Eventually(t, func() bool { return c.syncCount() > 0 }, 2*time.Second, 10*time.Millisecond)
	return c
}

func (c *client) syncCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncs
}

func (c *client) alertCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.shell.Alerts())
}

func (c *client) toasts() []models.Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shell.Toasts().Items()
}

func TestScenario_SelfPostIsNotNotified(t *testing.T) {
	url := startServer(t)

	a := startClient(t, url, "client-a")
	b := startClient(t, url, "client-b")

	a.mu.Lock()
	err := a.shell.Post(context.Background(), "flood on 5th")
	a.mu.Unlock()
	require.NoError(t, err)

	require.Eventually(t, func() bool { return a.alertCount() == 1 && b.alertCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return len(b.toasts()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, b.toasts()[0].Message, "flood on 5th")
	assert.Empty(t, a.toasts())

	a.mu.Lock()
	assert.Equal(t, 0, a.shell.Pending().Len())
	a.mu.Unlock()
}

func TestScenario_HistoryIsNotNotified(t *testing.T) {
	url := startServer(t)

	writer := feed.New(url)
	for _, d := range []string{"one", "two"} {
		_, err := writer.Append(context.Background(), models.NewRecord(d, 1, 1, "someone", time.Now()))
		require.NoError(t, err)
	}

	c := startClient(t, url, "client-c")
	require.Eventually(t, func() bool { return c.alertCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, c.toasts())
}
