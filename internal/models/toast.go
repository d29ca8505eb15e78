package models

import "fmt"

// Toast - временное уведомление в интерфейсе клиента. ID совпадает с id алерта.
type Toast struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// Заголовки уведомлений
const (
	ToastTitleNewAlert = "New alert"
	ToastTitleSystem   = "System"
)

// ToastForAlert строит тост для нового алерта
func ToastForAlert(a Alert) Toast {
	return Toast{
		ID:      a.ID,
		Title:   ToastTitleNewAlert,
		Message: fmt.Sprintf("%s (%.5f, %.5f)", a.Description, a.Lat, a.Lng),
	}
}
