// internal/models/alert.go
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxDescriptionLength ограничивает длину текста алерта (в рунах)
const MaxDescriptionLength = 500

// Alert - опубликованное сообщение об инциденте. После создания не меняется.
type Alert struct {
	ID          string  `bson:"_id" json:"id"`
	Description string  `bson:"description" json:"description"`
	Lat         float64 `bson:"lat" json:"lat"`
	Lng         float64 `bson:"lng" json:"lng"`
	CreatedAt   int64   `bson:"created_at" json:"createdAt"` // миллисекунды с эпохи
	ClientID    string  `bson:"client_id,omitempty" json:"clientId,omitempty"`

	// Порядковый номер вставки, выдается хранилищем. Используется только
	// для разрешения равных CreatedAt.
	Seq int64 `bson:"seq" json:"seq"`
}

// AlertRecord - то, что клиент отправляет на запись (без id)
type AlertRecord struct {
	Description string  `json:"description" binding:"required,max=2000"`
	Lat         float64 `json:"lat" binding:"min=-90,max=90"`
	Lng         float64 `json:"lng" binding:"min=-180,max=180"`
	CreatedAt   int64   `json:"createdAt" binding:"min=0"`
	ClientID    string  `json:"clientId,omitempty" binding:"max=128"`
}

// NewRecord собирает запись для отправки с текущим временем
func NewRecord(description string, lat, lng float64, clientID string, now time.Time) AlertRecord {
	return AlertRecord{
		Description: strings.TrimSpace(description),
		Lat:         lat,
		Lng:         lng,
		CreatedAt:   now.UnixMilli(),
		ClientID:    clientID,
	}
}

// Normalize обрезает пробелы и проверяет поля, которые не покрываются биндингом
func (r *AlertRecord) Normalize() error {
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		return fmt.Errorf("description must not be empty")
	}
	if len([]rune(r.Description)) > MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLength)
	}
	if r.Lat < -90 || r.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", r.Lat)
	}
	if r.Lng < -180 || r.Lng > 180 {
		return fmt.Errorf("longitude %f out of range", r.Lng)
	}
	return nil
}

// ToAlert превращает запись в алерт с заданным id
func (r AlertRecord) ToAlert(id string) Alert {
	return Alert{
		ID:          id,
		Description: r.Description,
		Lat:         r.Lat,
		Lng:         r.Lng,
		CreatedAt:   r.CreatedAt,
		ClientID:    r.ClientID,
	}
}

// Time возвращает время создания
func (a *Alert) Time() time.Time {
	return time.UnixMilli(a.CreatedAt)
}

// IsAuthoredBy проверяет автора. Пустой clientID никому не принадлежит.
func (a *Alert) IsAuthoredBy(clientID string) bool {
	return clientID != "" && a.ClientID == clientID
}

// Less задает полный порядок: CreatedAt, затем порядок вставки
func (a *Alert) Less(b *Alert) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.Seq < b.Seq
}

// SortAlerts сортирует по (CreatedAt, Seq). Сортировка стабильная,
// так что при одинаковых ключах сохраняется порядок доставки.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Less(&alerts[j])
	})
}

// AlertIDs возвращает множество id
func AlertIDs(alerts []Alert) map[string]struct{} {
	ids := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		ids[a.ID] = struct{}{}
	}
	return ids
}
