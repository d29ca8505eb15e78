package locate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"alertmap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	s, err := NewStatic(40, -3.7)
	require.NoError(t, err)

	pos, err := s.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Position{Lat: 40, Lng: -3.7}, pos)

	_, err = NewStatic(91, 0)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.CurrentPosition(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestIPLocator(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    models.Position
		wantErr error
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"status":"success","lat":40.4168,"lon":-3.7038}`,
			want:   models.Position{Lat: 40.4168, Lng: -3.7038},
		},
		{
			name:    "provider failure",
			status:  http.StatusOK,
			body:    `{"status":"fail","message":"private range"}`,
			wantErr: ErrUnavailable,
		},
		{
			name:    "missing coordinates",
			status:  http.StatusOK,
			body:    `{"status":"success"}`,
			wantErr: ErrUnavailable,
		},
		{
			name:    "forbidden",
			status:  http.StatusForbidden,
			body:    `{}`,
			wantErr: ErrDenied,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{}`,
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			pos, err := NewIPLocator(srv.URL).CurrentPosition(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pos)
		})
	}
}

func TestIPLocator_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewIPLocator(url).CurrentPosition(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLocatorFunc(t *testing.T) {
	var l Locator = LocatorFunc(func(context.Context) (models.Position, error) {
		return models.Position{}, ErrDenied
	})
	_, err := l.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, ErrDenied)
}
