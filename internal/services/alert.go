// internal/services/alert.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alertmap/internal/models"
	"alertmap/internal/repository"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidID     = errors.New("invalid alert id")
	ErrInvalidRecord = errors.New("invalid alert record")
)

// Типы событий, которые сервис публикует подписчикам
const (
	EventSnapshot   = "snapshot"
	EventAlertAdded = "alert_added"
)

// Publisher рассылает изменения подписчикам (websocket hub)
type Publisher interface {
	PublishSnapshot(alerts []models.Alert, version int64)
	PublishAdded(alert models.Alert)
}

type AlertService struct {
	repo      repository.AlertRepository
	publisher Publisher

	// snapshotMutex упорядочивает чтение списка и выдачу версии:
	// снимок, прочитанный позже, всегда получает большую версию
	snapshotMutex sync.Mutex
	version       int64
}

func NewAlertService(repo repository.AlertRepository, publisher Publisher) *AlertService {
	return &AlertService{
		repo:      repo,
		publisher: publisher,
	}
}

// NewAlertID выделяет id заранее, до записи
func NewAlertID() string {
	return primitive.NewObjectID().Hex()
}

// ValidateID проверяет, что id имеет формат ObjectID
func ValidateID(id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	return nil
}

// Create записывает алерт. Пустой id означает, что его выделяет сервер.
func (s *AlertService) Create(ctx context.Context, id string, record models.AlertRecord) (*models.Alert, error) {
	if id == "" {
		id = NewAlertID()
	} else if err := ValidateID(id); err != nil {
		return nil, err
	}

	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().UnixMilli()
	}
	if err := record.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	alert := record.ToAlert(id)
	if err := s.repo.Insert(ctx, &alert); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"alert_id":   alert.ID,
		"seq":        alert.Seq,
		"created_at": alert.CreatedAt,
	}).Info("Alert created")

	s.publish(ctx, alert)
	return &alert, nil
}

func (s *AlertService) publish(ctx context.Context, alert models.Alert) {
	if s.publisher == nil {
		return
	}

	s.publisher.PublishAdded(alert)

	s.snapshotMutex.Lock()
	defer s.snapshotMutex.Unlock()

	alerts, err := s.repo.List(ctx)
	if err != nil {
		// Подписчики получат актуальный снимок со следующим изменением
		logrus.WithError(err).Warn("Failed to load snapshot for broadcast")
		return
	}
	s.version++
	s.publisher.PublishSnapshot(alerts, s.version)
}

// Snapshot возвращает текущий список с версией последнего разосланного
// снимка. Список читается после той рассылки, поэтому не меньше ее.
func (s *AlertService) Snapshot(ctx context.Context) ([]models.Alert, int64, error) {
	s.snapshotMutex.Lock()
	defer s.snapshotMutex.Unlock()

	alerts, err := s.repo.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	return alerts, s.version, nil
}

func (s *AlertService) List(ctx context.Context) ([]models.Alert, error) {
	return s.repo.List(ctx)
}

// LatestTimestamp возвращает CreatedAt последнего алерта; ok=false, если алертов нет
func (s *AlertService) LatestTimestamp(ctx context.Context) (int64, bool, error) {
	latest, err := s.repo.Latest(ctx)
	if err != nil {
		return 0, false, err
	}
	if latest == nil {
		return 0, false, nil
	}
	return latest.CreatedAt, true, nil
}
