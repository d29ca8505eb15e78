package notify

import (
	"alertmap/internal/identity"
	"alertmap/internal/models"
)

// Reconciler tracks which alerts were already shown. It is not safe for
// concurrent use; the owner calls it from one event loop.
type Reconciler struct {
	clientID    string
	seen        map[string]struct{}
	initialized bool
}

// NewReconciler creates a reconciler for the local client id. The
// placeholder id is shared by every client without storage, so it never
// counts as authorship.
func NewReconciler(clientID string) *Reconciler {
	if clientID == identity.PlaceholderClientID {
		clientID = ""
	}
	return &Reconciler{
		clientID: clientID,
		seen:     make(map[string]struct{}),
	}
}

// Reconcile takes the full current list and returns the alerts to notify
// about, in list order. The first call after construction or Reset only
// records what exists.
func (r *Reconciler) Reconcile(alerts []models.Alert, pending *PendingPosts) []models.Alert {
	var fresh []models.Alert
	for _, a := range alerts {
		if _, ok := r.seen[a.ID]; !ok {
			fresh = append(fresh, a)
		}
	}

	initial := !r.initialized
	r.initialized = true
	r.seen = models.AlertIDs(alerts)

	if initial {
		// Свои отложенные посты тоже считаются увиденными
		if pending != nil {
			for _, a := range fresh {
				pending.Take(a.ID)
			}
		}
		return nil
	}

	var notify []models.Alert
	for _, a := range fresh {
		if pending != nil && pending.Take(a.ID) {
			continue
		}
		if a.IsAuthoredBy(r.clientID) {
			continue
		}
		notify = append(notify, a)
	}
	return notify
}

// Reset makes the next delivery an initial sync again, e.g. after
// resubscribing.
func (r *Reconciler) Reset() {
	r.initialized = false
	r.seen = make(map[string]struct{})
}

func (r *Reconciler) Seen(id string) bool {
	_, ok := r.seen[id]
	return ok
}

func (r *Reconciler) Initialized() bool {
	return r.initialized
}
