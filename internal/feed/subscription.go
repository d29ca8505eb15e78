package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"alertmap/internal/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	modeSnapshot = "snapshot"
	modeAdded    = "added"

	typeSnapshot   = "snapshot"
	typeAlertAdded = "alert_added"
)

type envelope struct {
	Type    string          `json:"type"`
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Subscription is a live feed. Callbacks run one at a time on a single
// goroutine, in the order the server emitted them.
type Subscription struct {
	conn *websocket.Conn

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	errMu sync.Mutex
	err   error
}

// SubscribeAll delivers the complete ordered list on every change, starting
// with the current contents.
func (c *Client) SubscribeAll(ctx context.Context, cb func([]models.Alert)) (*Subscription, error) {
	var lastVersion int64
	first := true

	return c.subscribe(ctx, modeSnapshot, func(env envelope) {
		if env.Type != typeSnapshot {
			return
		}
		// Снимки могут прийти не по порядку: устаревшие отбрасываем
		if !first && env.Version <= lastVersion {
			return
		}
		first = false
		lastVersion = env.Version
		cb(decodeAlerts(env.Data))
	})
}

// SubscribeNewOnly delivers each alert appended after the subscription was
// established, one call per alert.
func (c *Client) SubscribeNewOnly(ctx context.Context, cb func(models.Alert)) (*Subscription, error) {
	return c.subscribe(ctx, modeAdded, func(env envelope) {
		if env.Type != typeAlertAdded {
			return
		}
		alert, ok := decodeAlert(env.Data)
		if !ok {
			return
		}
		cb(alert)
	})
}

func (c *Client) subscribe(ctx context.Context, mode string, handle func(envelope)) (*Subscription, error) {
	wsURL, err := c.wsURL(mode)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", wsURL, err)
	}

	s := &Subscription{
		conn: conn,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.readLoop(handle)

	return s, nil
}

func (s *Subscription) readLoop(handle func(envelope)) {
	defer close(s.done)
	defer s.conn.Close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.isStopped() {
				s.setErr(err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logrus.WithError(err).Debug("Skipping malformed feed message")
			continue
		}

		if s.isStopped() {
			return
		}
		handle(env)
	}
}

func (s *Subscription) isStopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// Unsubscribe stops delivery. It is idempotent, safe to call after the feed
// has already ended or from inside a callback; no callback starts after it
// returns.
func (s *Subscription) Unsubscribe() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline(),
		)
		s.conn.Close()
	})
}

// Done is closed when the feed ends for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the feed ended; nil after Unsubscribe or while running.
func (s *Subscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = errors.Join(ErrFeedClosed, err)
	}
}

// ErrFeedClosed marks a feed that was closed by the server or the network
var ErrFeedClosed = errors.New("alert feed closed")
