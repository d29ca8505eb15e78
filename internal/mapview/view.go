package mapview

import (
	"math"
	"strings"
	"sync"
	"time"

	"alertmap/internal/models"
)

// FlyDuration - длительность анимации перелета
const FlyDuration = 1500 * time.Millisecond

// Commander moves the map on request of the shell
type Commander interface {
	FlyTo(lat, lng float64)
}

type flight struct {
	from, to Camera
	start    time.Time
}

// View renders a list of alerts into a cols x rows character grid.
type View struct {
	mu sync.Mutex

	cols, rows int
	markers    []Marker
	camera     Camera
	anim       *flight
	placed     bool
	now        func() time.Time
}

var _ Commander = (*View)(nil)

func New(cols, rows int) *View {
	return &View{
		cols:   cols,
		rows:   rows,
		camera: InitialCamera(nil),
		now:    time.Now,
	}
}

func (v *View) Resize(cols, rows int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cols, v.rows = cols, rows
}

func (v *View) Size() (cols, rows int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cols, v.rows
}

// SetAlerts replaces the displayed list and fits the camera around it. An
// empty list keeps the current camera.
func (v *View) SetAlerts(alerts []models.Alert) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.markers = Markers(alerts)

	if !v.placed {
		v.placed = true
		v.camera = InitialCamera(alerts)
	}

	b, ok := BoundsOf(alerts)
	if !ok {
		return
	}
	v.anim = nil
	v.camera = FitCamera(b, v.cols, v.rows)
}

// FlyTo starts an animated move to (lat, lng) at FlyToZoom.
func (v *View) FlyTo(lat, lng float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.anim = &flight{
		from:  v.camera,
		to:    Camera{Center: models.Position{Lat: lat, Lng: lng}, Zoom: FlyToZoom},
		start: v.now(),
	}
}

// Step advances the animation to now and reports whether it is still running.
func (v *View) Step(now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.anim == nil {
		return false
	}

	t := float64(now.Sub(v.anim.start)) / float64(FlyDuration)
	if t >= 1 {
		v.camera = v.anim.to
		v.anim = nil
		return false
	}
	if t < 0 {
		t = 0
	}

	e := easeInOut(t)
	from, to := v.anim.from, v.anim.to
	v.camera = Camera{
		Center: models.Position{
			Lat: lerp(from.Center.Lat, to.Center.Lat, e),
			Lng: lerp(from.Center.Lng, to.Center.Lng, e),
		},
		Zoom: lerp(from.Zoom, to.Zoom, e),
	}
	return true
}

func (v *View) Animating() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.anim != nil
}

func (v *View) Camera() Camera {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.camera
}

func (v *View) Markers() []Marker {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Marker(nil), v.markers...)
}

// Render draws the visible markers. Cells holding several alerts show their
// count, more than nine show '*'.
func (v *View) Render() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cols <= 0 || v.rows <= 0 {
		return ""
	}

	counts := make([][]int, v.rows)
	for i := range counts {
		counts[i] = make([]int, v.cols)
	}
	for _, m := range v.markers {
		x, y, ok := v.project(m.Position)
		if ok {
			counts[y][x]++
		}
	}

	var sb strings.Builder
	sb.Grow((v.cols + 1) * v.rows)
	for y, row := range counts {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for _, n := range row {
			switch {
			case n == 0:
				sb.WriteByte('.')
			case n == 1:
				sb.WriteByte('o')
			case n <= 9:
				sb.WriteByte(byte('0' + n))
			default:
				sb.WriteByte('*')
			}
		}
	}
	return sb.String()
}

// Project returns the cell of p in the current viewport
func (v *View) Project(p models.Position) (x, y int, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.project(p)
}

func (v *View) project(p models.Position) (int, int, bool) {
	ppd := pixelsPerDegree(v.camera.Zoom)
	fx := (p.Lng-v.camera.Center.Lng)*ppd/cellWidth + float64(v.cols)/2
	fy := (v.camera.Center.Lat-p.Lat)*ppd/cellHeight + float64(v.rows)/2

	x, y := int(math.Floor(fx)), int(math.Floor(fy))
	if x < 0 || y < 0 || x >= v.cols || y >= v.rows {
		return 0, 0, false
	}
	return x, y, true
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}
