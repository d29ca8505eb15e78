// internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"alertmap/internal/models"
)

// ErrDuplicateID - алерт с таким id уже записан
var ErrDuplicateID = errors.New("alert id already exists")

// AlertRepository - хранилище алертов, только добавление
type AlertRepository interface {
	// Insert выдает алерту Seq и сохраняет его
	Insert(ctx context.Context, alert *models.Alert) error

	// List возвращает все алерты, упорядоченные по (CreatedAt, Seq)
	List(ctx context.Context) ([]models.Alert, error)

	// Latest возвращает последний алерт или nil, если коллекция пуста
	Latest(ctx context.Context) (*models.Alert, error)
}
