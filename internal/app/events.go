package app

import (
	"alertmap/internal/models"

	tea "github.com/charmbracelet/bubbletea"
)

// Events carries feed and toast notifications from background goroutines
// into the Bubble Tea loop.
type Events struct {
	snapshots chan []models.Alert
	toasts    chan struct{}
}

func NewEvents() *Events {
	return &Events{
		snapshots: make(chan []models.Alert, 1),
		toasts:    make(chan struct{}, 1),
	}
}

// OnSnapshot is the feed callback. Only the newest undelivered list is
// kept: lists are cumulative, so a skipped one loses nothing.
func (e *Events) OnSnapshot(alerts []models.Alert) {
	for {
		select {
		case e.snapshots <- alerts:
			return
		default:
		}
		select {
		case <-e.snapshots:
		default:
		}
	}
}

// OnToastsChanged is the toast queue hook
func (e *Events) OnToastsChanged() {
	select {
	case e.toasts <- struct{}{}:
	default:
	}
}

type snapshotMsg struct {
	alerts []models.Alert
}

type toastsChangedMsg struct{}

func (e *Events) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{alerts: <-e.snapshots}
	}
}

func (e *Events) waitForToasts() tea.Cmd {
	return func() tea.Msg {
		<-e.toasts
		return toastsChangedMsg{}
	}
}
