package feed

import (
	"encoding/json"
	"sort"
	"time"

	"alertmap/internal/models"
)

// wireAlert accepts both the list form and the keyed-object form of the
// collection; every field may be absent.
type wireAlert struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	CreatedAt   int64   `json:"createdAt"`
	ClientID    string  `json:"clientId"`
	Seq         int64   `json:"seq"`
}

func (w wireAlert) toAlert(id string) models.Alert {
	if id == "" {
		id = w.ID
	}
	return models.Alert{
		ID:          id,
		Description: w.Description,
		Lat:         w.Lat,
		Lng:         w.Lng,
		CreatedAt:   w.CreatedAt,
		ClientID:    w.ClientID,
		Seq:         w.Seq,
	}
}

// decodeAlerts never fails: anything unreadable is an empty collection, and
// an unreadable entry is dropped on its own.
func decodeAlerts(raw json.RawMessage) []models.Alert {
	alerts := []models.Alert{}
	if len(raw) == 0 {
		return alerts
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if a, ok := decodeAlert(item); ok {
				alerts = append(alerts, a)
			}
		}
		return sanitize(alerts)
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil {
		for id, item := range keyed {
			var w wireAlert
			if err := json.Unmarshal(item, &w); err != nil {
				continue
			}
			alerts = append(alerts, w.toAlert(id))
		}
		// Порядок обхода map случайный, фиксируем его до стабильной сортировки
		sort.Slice(alerts, func(i, j int) bool { return alerts[i].ID < alerts[j].ID })
		return sanitize(alerts)
	}

	return alerts
}

func decodeAlert(raw json.RawMessage) (models.Alert, bool) {
	var w wireAlert
	if err := json.Unmarshal(raw, &w); err != nil || w.ID == "" {
		return models.Alert{}, false
	}
	return w.toAlert(""), true
}

// sanitize drops entries without id and restores the (createdAt, seq) order
func sanitize(alerts []models.Alert) []models.Alert {
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.ID != "" {
			out = append(out, a)
		}
	}
	models.SortAlerts(out)
	return out
}

func deadline() time.Time {
	return time.Now().Add(time.Second)
}
