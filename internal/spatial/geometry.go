package spatial

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// PointInCircle reports whether point lies within radiusKm of center (boundary inclusive)
func PointInCircle(point, center Point, radiusKm float64) bool {
	return Distance(point.Lat, point.Lon, center.Lat, center.Lon) <= radiusKm
}

// PathLength calculates the total geodesic length of a path (sequence of points) in kilometers
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var totalDist float64
	for i := 1; i < len(points); i++ {
		totalDist += Distance(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}

	return totalDist
}
