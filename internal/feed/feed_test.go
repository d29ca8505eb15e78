package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"alertmap/internal/config"
	"alertmap/internal/handlers"
	"alertmap/internal/models"
	"alertmap/internal/repository"
	"alertmap/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *handlers.Hub) {
	return newServerWithRepo(t, repository.NewMemoryAlertRepository())
}

func newServerWithRepo(t *testing.T, repo repository.AlertRepository) (*httptest.Server, *handlers.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := handlers.NewHub()
	go hub.Run()

	alertService := services.NewAlertService(repo, hub)
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
	return srv, hub
}

// recorder collects callback deliveries
type recorder struct {
	mu        sync.Mutex
	snapshots [][]models.Alert
	added     []models.Alert
}

func (r *recorder) onSnapshot(alerts []models.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, alerts)
}

func (r *recorder) onAdded(alert models.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, alert)
}

func (r *recorder) snapshotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) lastSnapshot() []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

func (r *recorder) addedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.added)
}

func TestClient_AppendAndList(t *testing.T) {
	srv, _ := newServer(t)
	client := New(srv.URL)
	ctx := context.Background()

	_, ok, err := client.LatestTimestamp(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := client.Append(ctx, models.AlertRecord{Description: "flood on 5th", Lat: 40.0, Lng: -3.7, CreatedAt: 1000})
	require.NoError(t, err)
	assert.NoError(t, services.ValidateID(id))

	alerts, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, id, alerts[0].ID)

	ts, ok, err := client.LatestTimestamp(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), ts)
}

func TestClient_BeginCommit(t *testing.T) {
	srv, _ := newServer(t)
	client := New(srv.URL)
	ctx := context.Background()

	id := client.Begin()
	created, err := client.Commit(ctx, id, models.AlertRecord{Description: "fire", CreatedAt: 1})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)

	// Повторная запись с тем же id отклоняется
	_, err = client.Commit(ctx, id, models.AlertRecord{Description: "fire", CreatedAt: 1})
	assert.ErrorIs(t, err, ErrStoreWrite)
}

func TestClient_CommitFailures(t *testing.T) {
	t.Run("validation error", func(t *testing.T) {
		srv, _ := newServer(t)
		client := New(srv.URL)

		_, err := client.Commit(context.Background(), client.Begin(), models.AlertRecord{Description: "  "})
		assert.ErrorIs(t, err, ErrStoreWrite)
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client := New(url)
		_, err := client.Append(context.Background(), models.AlertRecord{Description: "x"})
		assert.ErrorIs(t, err, ErrStoreWrite)
	})
}

func TestSubscribeAll(t *testing.T) {
	srv, _ := newServer(t)
	client := New(srv.URL)
	ctx := context.Background()

	_, err := client.Append(ctx, models.AlertRecord{Description: "existing", CreatedAt: 1})
	require.NoError(t, err)

	rec := &recorder{}
	sub, err := client.SubscribeAll(ctx, rec.onSnapshot)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return rec.snapshotCount() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, rec.lastSnapshot(), 1)

	_, err = client.Append(ctx, models.AlertRecord{Description: "new", CreatedAt: 2})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.lastSnapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	last := rec.lastSnapshot()
	assert.Equal(t, "existing", last[0].Description)
	assert.Equal(t, "new", last[1].Description)
}

func TestSubscribeAll_InitialDeliveryWithoutWrites(t *testing.T) {
	srv, _ := newServer(t)
	client := New(srv.URL)
	ctx := context.Background()

	// Данные записаны до подписки, после нее записей нет
	_, err := client.Append(ctx, models.AlertRecord{Description: "one", CreatedAt: 1})
	require.NoError(t, err)
	_, err = client.Append(ctx, models.AlertRecord{Description: "two", CreatedAt: 2})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		rec := &recorder{}
		sub, err := client.SubscribeAll(ctx, rec.onSnapshot)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return rec.snapshotCount() == 1 }, 2*time.Second, 5*time.Millisecond)
		assert.Len(t, rec.lastSnapshot(), 2)
		sub.Unsubscribe()
	}
}

func TestSubscribeAll_EmptyStore(t *testing.T) {
	srv, _ := newServer(t)
	client := New(srv.URL)

	rec := &recorder{}
	sub, err := client.SubscribeAll(context.Background(), rec.onSnapshot)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return rec.snapshotCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	last := rec.lastSnapshot()
	assert.NotNil(t, last)
	assert.Empty(t, last)
}

func TestSubscribeNewOnly(t *testing.T) {
	srv, hub := newServer(t)
	client := New(srv.URL)
	ctx := context.Background()

	_, err := client.Append(ctx, models.AlertRecord{Description: "old", CreatedAt: 1})
	require.NoError(t, err)

	rec := &recorder{}
	sub, err := client.SubscribeNewOnly(ctx, rec.onAdded)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return hub.GetConnectionsCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = client.Append(ctx, models.AlertRecord{Description: "fresh", CreatedAt: 2})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.addedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, "fresh", rec.added[0].Description)
	rec.mu.Unlock()
}

func TestUnsubscribe(t *testing.T) {
	srv, _ := newServer(t)
	client := New(srv.URL)
	ctx := context.Background()

	rec := &recorder{}
	sub, err := client.SubscribeAll(ctx, rec.onSnapshot)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.snapshotCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	sub.Unsubscribe()
	sub.Unsubscribe()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
	assert.NoError(t, sub.Err())

	_, err = client.Append(ctx, models.AlertRecord{Description: "after", CreatedAt: 2})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.snapshotCount())
}

func TestUnsubscribe_FromCallback(t *testing.T) {
	srv, _ := newServer(t)
	client := New(srv.URL)

	var sub *Subscription
	var mu sync.Mutex
	calls := 0
	ready := make(chan struct{})

	var err error
	sub, err = client.SubscribeAll(context.Background(), func([]models.Alert) {
		<-ready
		mu.Lock()
		calls++
		mu.Unlock()
		sub.Unsubscribe()
	})
	require.NoError(t, err)
	close(ready)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestSubscription_ServerGone(t *testing.T) {
	srv, hub := newServer(t)
	client := New(srv.URL)

	sub, err := client.SubscribeAll(context.Background(), func([]models.Alert) {})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	hub.Shutdown()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not end")
	}
	assert.True(t, errors.Is(sub.Err(), ErrFeedClosed))
}

func TestSubscribe_Unreachable(t *testing.T) {
	client := New("http://127.0.0.1:1")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.SubscribeAll(ctx, func([]models.Alert) {})
	assert.Error(t, err)
}

// scriptedServer отдает подписчику заранее заданные сообщения
func scriptedServer(t *testing.T, messages ...map[string]interface{}) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, msg := range messages {
			payload, _ := json.Marshal(msg)
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
		// Держим соединение, пока клиент не отпишется
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func snapshotMessage(version int64, ids ...string) map[string]interface{} {
	alerts := make([]map[string]interface{}, 0, len(ids))
	for i, id := range ids {
		alerts = append(alerts, map[string]interface{}{"id": id, "description": id, "createdAt": i + 1})
	}
	return map[string]interface{}{"type": "snapshot", "version": version, "data": alerts}
}

func TestSubscribeAll_SnapshotVersions(t *testing.T) {
	srv := scriptedServer(t,
		snapshotMessage(2, "a", "b"),
		snapshotMessage(1, "a"),           // устарел
		snapshotMessage(2, "a"),           // та же версия
		snapshotMessage(3, "a", "b", "c"), // новее
		snapshotMessage(4, "a", "b", "c"), // тот же список, новая версия
	)

	rec := &recorder{}
	sub, err := New(srv.URL).SubscribeAll(context.Background(), rec.onSnapshot)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return rec.snapshotCount() == 3 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.snapshots, 3)
	assert.Len(t, rec.snapshots[0], 2)
	assert.Len(t, rec.snapshots[1], 3)
	assert.Len(t, rec.snapshots[2], 3)
}

func TestSubscribeAll_FirstSnapshotAlwaysAccepted(t *testing.T) {
	srv := scriptedServer(t, snapshotMessage(0), snapshotMessage(1, "a"))

	rec := &recorder{}
	sub, err := New(srv.URL).SubscribeAll(context.Background(), rec.onSnapshot)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return rec.snapshotCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.snapshots[0])
	assert.Len(t, rec.snapshots[1], 1)
}

// delayedRepo выдает Seq до того, как запись становится видимой
type delayedRepo struct {
	*repository.MemoryAlertRepository

	mu      sync.Mutex
	seq     int64
	visible []models.Alert

	holdFor   string
	allocated chan struct{}
	release   chan struct{}
}

func (r *delayedRepo) Insert(ctx context.Context, alert *models.Alert) error {
	r.mu.Lock()
	r.seq++
	alert.Seq = r.seq
	r.mu.Unlock()

	if alert.Description == r.holdFor {
		close(r.allocated)
		<-r.release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = append(r.visible, *alert)
	return nil
}

func (r *delayedRepo) List(ctx context.Context) ([]models.Alert, error) {
	r.mu.Lock()
	out := make([]models.Alert, len(r.visible))
	copy(out, r.visible)
	r.mu.Unlock()

	models.SortAlerts(out)
	return out, nil
}

func TestSubscribeAll_OutOfOrderInsertsAreDelivered(t *testing.T) {
	repo := &delayedRepo{
		MemoryAlertRepository: repository.NewMemoryAlertRepository(),
		holdFor:               "A",
		allocated:             make(chan struct{}),
		release:               make(chan struct{}),
	}
	srv, _ := newServerWithRepo(t, repo)
	client := New(srv.URL)
	ctx := context.Background()

	_, err := client.Append(ctx, models.AlertRecord{Description: "first", CreatedAt: 1})
	require.NoError(t, err)

	rec := &recorder{}
	sub, err := client.SubscribeAll(ctx, rec.onSnapshot)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.Eventually(t, func() bool { return rec.snapshotCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := client.Append(ctx, models.AlertRecord{Description: "A", CreatedAt: 2})
		done <- err
	}()
	<-repo.allocated

	_, err = client.Append(ctx, models.AlertRecord{Description: "B", CreatedAt: 3})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(rec.lastSnapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)

	close(repo.release)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool { return len(rec.lastSnapshot()) == 3 }, 2*time.Second, 10*time.Millisecond)
	descriptions := []string{}
	for _, a := range rec.lastSnapshot() {
		descriptions = append(descriptions, a.Description)
	}
	assert.Equal(t, []string{"first", "A", "B"}, descriptions)
}
