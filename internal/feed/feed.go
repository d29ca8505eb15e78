// Package feed is the client-side adapter over the alert server: it writes
// alerts over REST and delivers live updates from the websocket hub.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alertmap/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrStoreWrite wraps every failed durable write
var ErrStoreWrite = errors.New("alert store write failed")

const (
	defaultTimeout   = 15 * time.Second
	handshakeTimeout = 10 * time.Second
)

// Client talks to one alert server
type Client struct {
	baseURL string
	rest    *resty.Client
	dialer  *websocket.Dialer
}

func New(baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json"),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Begin allocates an alert id before anything is written, so the caller can
// register it as pending ahead of the remote echo.
func (c *Client) Begin() string {
	return primitive.NewObjectID().Hex()
}

// Commit durably writes record under an id obtained from Begin.
func (c *Client) Commit(ctx context.Context, id string, record models.AlertRecord) (*models.Alert, error) {
	var created models.Alert
	var apiErr apiError

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(record).
		SetResult(&created).
		SetError(&apiErr).
		Put("/api/v1/alerts/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: server returned %d: %s", ErrStoreWrite, resp.StatusCode(), apiErr.message(resp))
	}

	if created.ID == "" {
		created = record.ToAlert(id)
	}
	return &created, nil
}

// Append is Begin followed by Commit.
func (c *Client) Append(ctx context.Context, record models.AlertRecord) (string, error) {
	id := c.Begin()
	if _, err := c.Commit(ctx, id, record); err != nil {
		return "", err
	}
	return id, nil
}

// List fetches the full ordered list once.
func (c *Client) List(ctx context.Context) ([]models.Alert, error) {
	var body struct {
		Alerts []models.Alert `json:"alerts"`
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/v1/alerts")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch alerts: server returned %d", resp.StatusCode())
	}

	return sanitize(body.Alerts), nil
}

// LatestTimestamp returns createdAt of the most recent alert; ok is false
// when the store is empty.
func (c *Client) LatestTimestamp(ctx context.Context) (int64, bool, error) {
	var body struct {
		CreatedAt int64 `json:"created_at"`
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/v1/alerts/latest")
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch latest timestamp: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.IsError() {
		return 0, false, fmt.Errorf("failed to fetch latest timestamp: server returned %d", resp.StatusCode())
	}
	return body.CreatedAt, true, nil
}

func (c *Client) wsURL(mode string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"mode": []string{mode}}.Encode()
	return u.String(), nil
}

type apiError struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func (e apiError) message(resp *resty.Response) string {
	if e.Error == "" {
		return strings.TrimSpace(string(resp.Body()))
	}
	if e.Details != nil {
		return fmt.Sprintf("%s (%v)", e.Error, e.Details)
	}
	return e.Error
}
