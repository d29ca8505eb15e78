package mapview

import (
	"strings"
	"testing"
	"time"

	"alertmap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alertAt(id string, lat, lng float64, createdAt int64) models.Alert {
	return models.Alert{ID: id, Description: "alert " + id, Lat: lat, Lng: lng, CreatedAt: createdAt}
}

func TestInitialCamera(t *testing.T) {
	assert.Equal(t, Camera{Zoom: WorldZoom}, InitialCamera(nil))

	alerts := []models.Alert{alertAt("a", 1, 2, 1), alertAt("b", 40, -3.7, 2)}
	assert.Equal(t, Camera{Center: models.Position{Lat: 40, Lng: -3.7}, Zoom: InitialZoom}, InitialCamera(alerts))
}

func TestBoundsOf(t *testing.T) {
	_, ok := BoundsOf(nil)
	assert.False(t, ok)

	b, ok := BoundsOf([]models.Alert{alertAt("a", 40, -4, 1), alertAt("b", 41, -3, 2), alertAt("c", 40.5, -3.5, 3)})
	require.True(t, ok)
	assert.Equal(t, models.Position{Lat: 40, Lng: -4}, b.SouthWest)
	assert.Equal(t, models.Position{Lat: 41, Lng: -3}, b.NorthEast)
	assert.Equal(t, models.Position{Lat: 40.5, Lng: -3.5}, b.Center())
	assert.True(t, b.Contains(models.Position{Lat: 40.2, Lng: -3.9}))
}

func TestFitCamera(t *testing.T) {
	b := Bounds{SouthWest: models.Position{Lat: 40, Lng: -4}, NorthEast: models.Position{Lat: 41, Lng: -3}}

	cam := FitCamera(b, 80, 24)
	assert.Equal(t, float64(8), cam.Zoom)
	assert.Equal(t, b.Center(), cam.Center)

	// Одна точка - максимальный зум
	point := Bounds{SouthWest: models.Position{Lat: 1, Lng: 1}, NorthEast: models.Position{Lat: 1, Lng: 1}}
	assert.Equal(t, float64(MaxZoom), FitCamera(point, 80, 24).Zoom)

	world := Bounds{SouthWest: models.Position{Lat: -90, Lng: -180}, NorthEast: models.Position{Lat: 90, Lng: 180}}
	assert.Equal(t, float64(MinZoom), FitCamera(world, 40, 12).Zoom)
}

func TestMarkers(t *testing.T) {
	a := alertAt("a", 40.123456, -3.7, 1700000000000)
	markers := Markers([]models.Alert{a})
	require.Len(t, markers, 1)

	m := markers[0]
	assert.Equal(t, "a", m.ID)
	assert.Equal(t, "40.12346, -3.70000", m.Coords)
	assert.Equal(t, FormatTime(a.CreatedAt), m.Time)
	assert.Equal(t, "alert a\n"+m.Time+"\n40.12346, -3.70000", m.Popup())
}

func TestView_EmptyList(t *testing.T) {
	v := New(40, 10)
	v.SetAlerts(nil)

	assert.Equal(t, Camera{Zoom: WorldZoom}, v.Camera())
	assert.Empty(t, v.Markers())

	out := v.Render()
	assert.Equal(t, 10, len(strings.Split(out, "\n")))
	assert.NotContains(t, out, "o")
}

func TestView_SetAlertsFitsAll(t *testing.T) {
	v := New(80, 24)
	alerts := []models.Alert{
		alertAt("a", 40, -4, 1),
		alertAt("b", 41, -3, 2),
		alertAt("c", 40.5, -3.5, 3),
	}
	v.SetAlerts(alerts)

	for _, a := range alerts {
		_, _, ok := v.Project(a.Position())
		assert.True(t, ok, a.ID)
	}
	assert.Equal(t, 3, strings.Count(v.Render(), "o"))

	// Пустой список не сбивает камеру
	cam := v.Camera()
	v.SetAlerts(nil)
	assert.Equal(t, cam, v.Camera())
}

func TestView_RenderCounts(t *testing.T) {
	v := New(20, 5)
	v.SetAlerts([]models.Alert{alertAt("a", 10, 10, 1), alertAt("b", 10, 10, 2)})
	assert.Equal(t, 1, strings.Count(v.Render(), "2"))

	assert.Empty(t, New(0, 0).Render())
}

func TestView_FlyTo(t *testing.T) {
	start := time.Unix(1000, 0)
	v := New(80, 24)
	v.now = func() time.Time { return start }
	v.SetAlerts([]models.Alert{alertAt("a", 0, 0, 1), alertAt("b", 10, 10, 2)})
	from := v.Camera()

	v.FlyTo(40, -3.7)
	assert.True(t, v.Animating())

	assert.True(t, v.Step(start.Add(FlyDuration/2)))
	mid := v.Camera()
	assert.Greater(t, mid.Zoom, from.Zoom)
	assert.Less(t, mid.Zoom, float64(FlyToZoom))

	assert.False(t, v.Step(start.Add(FlyDuration)))
	assert.Equal(t, Camera{Center: models.Position{Lat: 40, Lng: -3.7}, Zoom: FlyToZoom}, v.Camera())
	assert.False(t, v.Animating())
	assert.False(t, v.Step(start.Add(2*FlyDuration)))
}

func TestView_SetAlertsCancelsFlight(t *testing.T) {
	v := New(80, 24)
	v.FlyTo(1, 1)
	v.SetAlerts([]models.Alert{alertAt("a", 5, 5, 1)})
	assert.False(t, v.Animating())
}
