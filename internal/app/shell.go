// Package app is the client application: the Shell owns all client state
// and the Model wraps it in a terminal UI.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"alertmap/internal/locate"
	"alertmap/internal/mapview"
	"alertmap/internal/models"
	"alertmap/internal/notify"
	"alertmap/internal/toast"
	"alertmap/internal/utils"

	"github.com/sirupsen/logrus"
)

// PostState - этап публикации алерта
type PostState int

const (
	StateIdle PostState = iota
	StateAcquiringLocation
	StateSubmitting
)

func (s PostState) String() string {
	switch s {
	case StateAcquiringLocation:
		return "acquiring location"
	case StateSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

// Тексты уведомлений пользователю
const (
	NoticePostFailed   = "Could not publish the alert. Make sure location access is allowed and try again."
	NoticeLocateFailed = "Could not get your location."
	noticeLocation     = "Current location: %s"
)

// AlertWriter is the write side of the alert store
type AlertWriter interface {
	Begin() string
	Commit(ctx context.Context, id string, record models.AlertRecord) (*models.Alert, error)
}

// Unsubscriber is a live feed the shell stops on Close
type Unsubscriber interface {
	Unsubscribe()
}

// Shell holds the client state. It is driven from a single event loop and
// must not be called concurrently, except Notify which only touches
// thread-safe collaborators.
type Shell struct {
	clientID   string
	store      AlertWriter
	locator    locate.Locator
	dispatcher *notify.Dispatcher
	toasts     *toast.Queue
	mapView    *mapview.View

	reconciler *notify.Reconciler
	pending    *notify.PendingPosts
	sub        Unsubscriber

	alerts      []models.Alert
	state       PostState
	description string
	notice      string
	lastFix     *models.Position
	closed      atomic.Bool

	now func() time.Time
}

type ShellDeps struct {
	ClientID   string
	Store      AlertWriter
	Locator    locate.Locator
	Dispatcher *notify.Dispatcher
	Toasts     *toast.Queue
	Map        *mapview.View
}

func NewShell(deps ShellDeps) *Shell {
	if deps.Toasts == nil {
		deps.Toasts = toast.NewQueue()
	}
	if deps.Map == nil {
		deps.Map = mapview.New(80, 20)
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = notify.NewDispatcher(notify.ToastEffect{Queue: deps.Toasts})
	}

	return &Shell{
		clientID:   deps.ClientID,
		store:      deps.Store,
		locator:    deps.Locator,
		dispatcher: deps.Dispatcher,
		toasts:     deps.Toasts,
		mapView:    deps.Map,
		reconciler: notify.NewReconciler(deps.ClientID),
		pending:    notify.NewPendingPosts(),
		now:        time.Now,
	}
}

// Attach registers the subscription that Close will stop
func (s *Shell) Attach(sub Unsubscriber) {
	if s.closed.Load() {
		sub.Unsubscribe()
		return
	}
	s.sub = sub
}

// HandleSnapshot applies a full alert list and returns the alerts that
// should be announced to the user.
func (s *Shell) HandleSnapshot(alerts []models.Alert) []models.Alert {
	if s.closed.Load() {
		return nil
	}

	sorted := make([]models.Alert, len(alerts))
	copy(sorted, alerts)
	models.SortAlerts(sorted)

	s.alerts = sorted
	s.mapView.SetAlerts(sorted)
	return s.reconciler.Reconcile(sorted, s.pending)
}

// Notify fires the side effects for alerts. Failures are logged only.
// Nothing fires once the shell is closed, even mid-batch.
func (s *Shell) Notify(ctx context.Context, alerts []models.Alert) {
	for _, alert := range alerts {
		if s.closed.Load() {
			return
		}
		_ = s.dispatcher.Dispatch(ctx, alert)
	}
}

// CanPost is false while a post is in flight or after Close
func (s *Shell) CanPost() bool {
	return !s.closed.Load() && s.state == StateIdle
}

// BeginPost starts the post flow. Blank descriptions are ignored.
func (s *Shell) BeginPost(description string) bool {
	description = strings.TrimSpace(description)
	if description == "" || !s.CanPost() {
		return false
	}
	s.description = description
	s.state = StateAcquiringLocation
	return true
}

// LocationAcquired moves to Submitting. The id is registered as pending
// before the caller commits it, so an early echo is recognised.
func (s *Shell) LocationAcquired(pos models.Position) (string, models.AlertRecord, bool) {
	if s.closed.Load() || s.state != StateAcquiringLocation {
		return "", models.AlertRecord{}, false
	}

	s.lastFix = &pos
	s.state = StateSubmitting

	id := s.store.Begin()
	s.pending.Add(id)
	return id, models.NewRecord(s.description, pos.Lat, pos.Lng, s.clientID, s.now()), true
}

// LocationFailed aborts the post with a notice
func (s *Shell) LocationFailed(err error) {
	if s.closed.Load() || s.state != StateAcquiringLocation {
		return
	}
	logrus.WithError(err).Info("Failed to acquire location")
	s.notice = NoticePostFailed
	s.state = StateIdle
}

// PostCommitted finishes the flow. It reports whether the description
// input should be cleared.
func (s *Shell) PostCommitted(id string, err error) bool {
	if s.closed.Load() || s.state != StateSubmitting {
		return false
	}
	s.state = StateIdle

	if err != nil {
		s.pending.Remove(id)
		logrus.WithError(err).WithField("alert_id", id).Warn("Failed to publish alert")
		s.notice = NoticePostFailed
		return false
	}

	s.description = ""
	return true
}

// Post runs the whole flow synchronously: location first, then the write.
func (s *Shell) Post(ctx context.Context, description string) error {
	if !s.BeginPost(description) {
		return nil
	}

	pos, err := s.locator.CurrentPosition(ctx)
	if err != nil {
		s.LocationFailed(err)
		return err
	}

	id, record, ok := s.LocationAcquired(pos)
	if !ok {
		return nil
	}
	_, err = s.store.Commit(ctx, id, record)
	s.PostCommitted(id, err)
	return err
}

// ShowLocation sets the "locate me" notice
func (s *Shell) ShowLocation(pos models.Position, err error) {
	if s.closed.Load() {
		return
	}
	if err != nil {
		s.notice = NoticeLocateFailed
		return
	}
	s.lastFix = &pos
	s.notice = fmt.Sprintf(noticeLocation, pos)
}

// Locate is the synchronous "locate me" action
func (s *Shell) Locate(ctx context.Context) {
	pos, err := s.locator.CurrentPosition(ctx)
	s.ShowLocation(pos, err)
}

func (s *Shell) DismissNotice() {
	s.notice = ""
}

// FlyTo centers the map on the i-th alert of Latest()
func (s *Shell) FlyTo(i int) bool {
	latest := s.Latest()
	if s.closed.Load() || i < 0 || i >= len(latest) {
		return false
	}
	s.mapView.FlyTo(latest[i].Lat, latest[i].Lng)
	return true
}

// Latest returns the alerts newest first
func (s *Shell) Latest() []models.Alert {
	out := make([]models.Alert, len(s.alerts))
	for i, a := range s.alerts {
		out[len(s.alerts)-1-i] = a
	}
	return out
}

// DistanceLabel - расстояние от последней известной позиции
func (s *Shell) DistanceLabel(a models.Alert) string {
	if s.lastFix == nil {
		return ""
	}
	return utils.FormatDistance(utils.CalculateDistance(*s.lastFix, a.Position()))
}

func (s *Shell) Alerts() []models.Alert { return s.alerts }
func (s *Shell) State() PostState { return s.state }
func (s *Shell) Notice() string { return s.notice }
func (s *Shell) Toasts() *toast.Queue { return s.toasts }
func (s *Shell) Map() *mapview.View { return s.mapView }
func (s *Shell) Pending() *notify.PendingPosts { return s.pending }
func (s *Shell) Closed() bool { return s.closed.Load() }

// Close stops the feed and the toast timers. Every later call is a no-op.
func (s *Shell) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.toasts.Close()
}
