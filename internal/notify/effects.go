package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"alertmap/internal/models"

	"github.com/go-resty/resty/v2"
)

// ErrUnsupported is returned by effects the current device cannot perform
var ErrUnsupported = errors.New("not supported on this device")

// Шаблоны звука и вибрации, мс
var (
	BellPattern      = []time.Duration{0, 150 * time.Millisecond, 150 * time.Millisecond}
	VibrationPattern = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}
)

// Sound rings the terminal bell once per pattern step, waiting the step's
// delay first.
type Sound struct {
	out     io.Writer
	pattern []time.Duration
	sleep   func(time.Duration)
}

func NewSound(out io.Writer) *Sound {
	return &Sound{out: out, pattern: BellPattern, sleep: time.Sleep}
}

func (s *Sound) Name() string { return "sound" }

func (s *Sound) Fire(ctx context.Context, _ models.Alert) error {
	if s.out == nil {
		return ErrUnsupported
	}
	for _, d := range s.pattern {
		if d > 0 {
			s.sleep(d)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(s.out, "\a"); err != nil {
			return fmt.Errorf("writing bell: %w", err)
		}
	}
	return nil
}

// Vibrator drives a haptic device
type Vibrator interface {
	Vibrate(pattern []time.Duration) error
}

// NoVibrator is the terminal case: there is nothing to vibrate.
type NoVibrator struct{}

func (NoVibrator) Vibrate([]time.Duration) error { return ErrUnsupported }

// Vibration adapts a Vibrator to Effect
type Vibration struct {
	Device Vibrator
}

func (v Vibration) Name() string { return "vibration" }

func (v Vibration) Fire(context.Context, models.Alert) error {
	if v.Device == nil {
		return ErrUnsupported
	}
	return v.Device.Vibrate(VibrationPattern)
}

// Toaster receives in-app toasts
type Toaster interface {
	Enqueue(models.Toast)
}

// ToastEffect enqueues a toast for the alert
type ToastEffect struct {
	Queue Toaster
}

func (t ToastEffect) Name() string { return "toast" }

func (t ToastEffect) Fire(_ context.Context, alert models.Alert) error {
	t.Queue.Enqueue(models.ToastForAlert(alert))
	return nil
}

// PushMessage - тело системного уведомления
type PushMessage struct {
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Priority string                 `json:"priority"`
	Sound    string                 `json:"sound,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// WebhookNotifier delivers system notifications by POSTing to a webhook
// (ntfy, gotify or a desktop bridge). Nothing is sent until
// RequestPermission succeeded.
type WebhookNotifier struct {
	url     string
	client  *resty.Client
	granted atomic.Bool
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// RequestPermission probes the webhook once. Any 2xx or 405 answer means
// the endpoint exists and notifications are allowed.
func (w *WebhookNotifier) RequestPermission(ctx context.Context) bool {
	if w.url == "" {
		return false
	}

	resp, err := w.client.R().SetContext(ctx).Head(w.url)
	if err != nil {
		return false
	}
	ok := resp.IsSuccess() || resp.StatusCode() == http.StatusMethodNotAllowed
	w.granted.Store(ok)
	return ok
}

func (w *WebhookNotifier) Granted() bool {
	return w.granted.Load()
}

func (w *WebhookNotifier) Name() string { return "system notification" }

func (w *WebhookNotifier) Fire(ctx context.Context, alert models.Alert) error {
	if !w.granted.Load() {
		return nil
	}

	msg := PushMessage{
		Title:    models.ToastTitleNewAlert,
		Body:     alert.Description,
		Priority: "high",
		Sound:    "default",
		Data: map[string]interface{}{
			"alert_id":   alert.ID,
			"lat":        alert.Lat,
			"lng":        alert.Lng,
			"created_at": alert.CreatedAt,
		},
	}

	resp, err := w.client.R().SetContext(ctx).SetBody(msg).Post(w.url)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification request failed with status: %d", resp.StatusCode())
	}
	return nil
}
