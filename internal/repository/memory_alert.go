// internal/repository/memory_alert.go
package repository

import (
	"context"
	"sync"

	"alertmap/internal/models"
)

// MemoryAlertRepository держит алерты в памяти процесса
type MemoryAlertRepository struct {
	mu     sync.RWMutex
	alerts []models.Alert
	ids    map[string]struct{}
	seq    int64
}

var _ AlertRepository = (*MemoryAlertRepository)(nil)

func NewMemoryAlertRepository() *MemoryAlertRepository {
	return &MemoryAlertRepository{
		alerts: make([]models.Alert, 0, 128),
		ids:    make(map[string]struct{}),
	}
}

func (m *MemoryAlertRepository) Insert(ctx context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.ids[alert.ID]; exists {
		return ErrDuplicateID
	}

	m.seq++
	alert.Seq = m.seq
	m.alerts = append(m.alerts, *alert)
	m.ids[alert.ID] = struct{}{}
	return nil
}

func (m *MemoryAlertRepository) List(ctx context.Context) ([]models.Alert, error) {
	m.mu.RLock()
	out := make([]models.Alert, len(m.alerts))
	copy(out, m.alerts)
	m.mu.RUnlock()

	models.SortAlerts(out)
	return out, nil
}

func (m *MemoryAlertRepository) Latest(ctx context.Context) (*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.Alert
	for i := range m.alerts {
		if latest == nil || latest.Less(&m.alerts[i]) {
			latest = &m.alerts[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}
