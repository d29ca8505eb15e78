// Package locate acquires the device position for a new alert. Every call
// is a single attempt; callers decide what to show on failure.
package locate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"alertmap/internal/models"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrUnavailable means no position could be determined
	ErrUnavailable = errors.New("location unavailable")
	// ErrDenied means the user or the provider refused to share it
	ErrDenied = errors.New("location permission denied")
)

// DefaultIPLocatorURL - ip-api совместимый сервис
const DefaultIPLocatorURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

type Locator interface {
	CurrentPosition(ctx context.Context) (models.Position, error)
}

// LocatorFunc adapts a function to Locator
type LocatorFunc func(ctx context.Context) (models.Position, error)

func (f LocatorFunc) CurrentPosition(ctx context.Context) (models.Position, error) {
	return f(ctx)
}

// Static always reports the configured position
type Static struct {
	Position models.Position
}

func NewStatic(lat, lng float64) (*Static, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("invalid static position %f, %f", lat, lng)
	}
	return &Static{Position: models.Position{Lat: lat, Lng: lng}}, nil
}

func (s *Static) CurrentPosition(ctx context.Context) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.Position, nil
}

// IPLocator estimates the position from the public IP address
type IPLocator struct {
	url    string
	client *resty.Client
}

func NewIPLocator(url string) *IPLocator {
	if url == "" {
		url = DefaultIPLocatorURL
	}
	return &IPLocator{
		url: url,
		client: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Accept", "application/json"),
	}
}

type ipAPIResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

func (l *IPLocator) CurrentPosition(ctx context.Context) (models.Position, error) {
	var body ipAPIResponse

	resp, err := l.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(l.url)
	if err != nil {
		return models.Position{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusForbidden, resp.StatusCode() == http.StatusUnauthorized:
		return models.Position{}, fmt.Errorf("%w: provider returned %d", ErrDenied, resp.StatusCode())
	case resp.IsError():
		return models.Position{}, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode())
	}

	if body.Status != "" && body.Status != "success" {
		return models.Position{}, fmt.Errorf("%w: %s", ErrUnavailable, body.Message)
	}
	if body.Lat == nil || body.Lon == nil {
		return models.Position{}, fmt.Errorf("%w: no coordinates in response", ErrUnavailable)
	}

	return models.Position{Lat: *body.Lat, Lng: *body.Lon}, nil
}
