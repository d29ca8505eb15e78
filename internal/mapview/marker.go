package mapview

import (
	"strings"
	"time"

	"alertmap/internal/models"
)

// TimeLayout - формат времени в подписи маркера
const TimeLayout = "2006-01-02 15:04:05"

// Marker is one alert on the map
type Marker struct {
	ID       string
	Position models.Position
	Title    string
	Time     string
	Coords   string
}

// Markers returns one marker per alert, in list order.
func Markers(alerts []models.Alert) []Marker {
	markers := make([]Marker, 0, len(alerts))
	for _, a := range alerts {
		markers = append(markers, Marker{
			ID:       a.ID,
			Position: a.Position(),
			Title:    a.Description,
			Time:     FormatTime(a.CreatedAt),
			Coords:   a.Position().String(),
		})
	}
	return markers
}

// Popup is the text shown when the marker is selected
func (m Marker) Popup() string {
	return strings.Join([]string{m.Title, m.Time, m.Coords}, "\n")
}

// FormatTime renders epoch milliseconds in local time
func FormatTime(ms int64) string {
	return time.UnixMilli(ms).Local().Format(TimeLayout)
}
