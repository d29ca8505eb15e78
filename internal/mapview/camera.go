// Package mapview is a terminal map of the alerts. It keeps no alert state
// of its own: markers, bounds and the fitted camera are derived from the
// list it is given.
package mapview

import (
	"math"

	"alertmap/internal/models"
)

// Параметры камеры, как у тайловой карты
const (
	MinZoom = 0
	MaxZoom = 18

	// InitialZoom - зум на последнем алерте при старте
	InitialZoom = 13
	// WorldZoom - зум пустой карты
	WorldZoom = 2
	// FlyToZoom - зум после перелета к алерту
	FlyToZoom = 16

	// FitPadding - отступ при подгонке под границы, px
	FitPadding = 40

	// Мировая ширина на нулевом зуме и размер символа терминала, px
	worldSize  = 256
	cellWidth  = 8
	cellHeight = 16
)

// Camera is the visible center and zoom level
type Camera struct {
	Center models.Position
	Zoom   float64
}

// InitialCamera centers on the most recent alert, or shows the whole world
// when there are none. alerts must be ordered oldest first.
func InitialCamera(alerts []models.Alert) Camera {
	if len(alerts) == 0 {
		return Camera{Zoom: WorldZoom}
	}
	last := alerts[len(alerts)-1]
	return Camera{Center: last.Position(), Zoom: InitialZoom}
}

// Bounds is the smallest lat/lng box containing a set of points
type Bounds struct {
	SouthWest models.Position
	NorthEast models.Position
}

// BoundsOf returns the box around all alerts; ok is false for an empty list.
func BoundsOf(alerts []models.Alert) (b Bounds, ok bool) {
	if len(alerts) == 0 {
		return Bounds{}, false
	}

	b.SouthWest = alerts[0].Position()
	b.NorthEast = alerts[0].Position()
	for _, a := range alerts[1:] {
		b.SouthWest.Lat = math.Min(b.SouthWest.Lat, a.Lat)
		b.SouthWest.Lng = math.Min(b.SouthWest.Lng, a.Lng)
		b.NorthEast.Lat = math.Max(b.NorthEast.Lat, a.Lat)
		b.NorthEast.Lng = math.Max(b.NorthEast.Lng, a.Lng)
	}
	return b, true
}

func (b Bounds) Center() models.Position {
	return models.Position{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
	}
}

func (b Bounds) Contains(p models.Position) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// FitCamera returns the camera showing b inside a cols x rows viewport with
// FitPadding on every side. Zoom snaps down to an integer level.
func FitCamera(b Bounds, cols, rows int) Camera {
	width := float64(cols*cellWidth - 2*FitPadding)
	height := float64(rows*cellHeight - 2*FitPadding)

	zoom := float64(MaxZoom)
	spanLng := b.NorthEast.Lng - b.SouthWest.Lng
	spanLat := b.NorthEast.Lat - b.SouthWest.Lat

	// Точка или вьюпорт меньше отступов: максимальный зум по центру
	if width > 0 && height > 0 && (spanLng > 0 || spanLat > 0) {
		scale := math.Inf(1)
		if spanLng > 0 {
			scale = math.Min(scale, width/spanLng)
		}
		if spanLat > 0 {
			scale = math.Min(scale, height/spanLat)
		}
		zoom = math.Floor(math.Log2(scale * 360 / worldSize))
	}

	return Camera{Center: b.Center(), Zoom: clampZoom(zoom)}
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// pixelsPerDegree for an equirectangular projection at zoom z
func pixelsPerDegree(zoom float64) float64 {
	return worldSize * math.Exp2(zoom) / 360
}
