package utils

import (
	"math"
	"strconv"

	"alertmap/internal/models"
)

const earthRadiusKm = 6371

// Вычисляет расстояние между двумя точками в километрах используя формулу Haversine
func CalculateDistance(p1, p2 models.Position) float64 {
	lat1Rad := toRadians(p1.Lat)
	lon1Rad := toRadians(p1.Lng)
	lat2Rad := toRadians(p2.Lat)
	lon2Rad := toRadians(p2.Lng)

	deltaLat := lat2Rad - lat1Rad
	deltaLon := lon2Rad - lon1Rad

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// FormatDistance - короткая подпись для списка
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return strconv.Itoa(int(math.Round(km*1000))) + " m"
	case km < 100:
		return strconv.FormatFloat(km, 'f', 1, 64) + " km"
	default:
		return strconv.Itoa(int(math.Round(km))) + " km"
	}
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}
