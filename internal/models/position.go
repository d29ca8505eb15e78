package models

import "fmt"

// Position - географическая точка в градусах
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Position) String() string {
	return fmt.Sprintf("%.5f, %.5f", p.Lat, p.Lng)
}

// Position возвращает координаты алерта
func (a *Alert) Position() Position {
	return Position{Lat: a.Lat, Lng: a.Lng}
}
