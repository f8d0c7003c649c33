package spatial

import (
	"math"
	"sort"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// Centroid calculates the geographic centroid of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}
}

// RadiusOfGyration calculates the radius of gyration for a set of points
// This measures the spatial dispersion around the centroid
func RadiusOfGyration(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}

	center := Centroid(points)

	var sumSquaredDist float64
	for _, p := range points {
		dist := HaversineDistance(center.Lat, center.Lon, p.Lat, p.Lon)
		sumSquaredDist += dist * dist
	}

	return math.Sqrt(sumSquaredDist / float64(len(points)))
}

// BoundingBox calculates the bounding box of a set of points
// Returns (minLat, minLon, maxLat, maxLon)
func BoundingBox(points []Point) (float64, float64, float64, float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}

	minLat, maxLat := points[0].Lat, points[0].Lat
	minLon, maxLon := points[0].Lon, points[0].Lon

	for _, p := range points[1:] {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}

	return minLat, minLon, maxLat, maxLon
}

// ConvexHull computes the convex hull of a set of points using the
// Andrew monotone chain algorithm. The hull is returned in counter-clockwise
// order without the closing point. Degenerate inputs (fewer than 3 distinct
// points) return the distinct points themselves.
func ConvexHull(points []Point) []Point {
	pts := make([]Point, len(points))
	copy(pts, points)

	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Lon != pts[j].Lon {
			return pts[i].Lon < pts[j].Lon
		}
		return pts[i].Lat < pts[j].Lat
	})

	// drop duplicates
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq

	if len(pts) < 3 {
		return pts
	}

	cross := func(o, a, b Point) float64 {
		return (a.Lon-o.Lon)*(b.Lat-o.Lat) - (a.Lat-o.Lat)*(b.Lon-o.Lon)
	}

	var lower []Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []Point
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	// concatenate, dropping the duplicated endpoints
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)

	// collinear input collapses to the two extremes
	if len(hull) < 3 {
		return []Point{pts[0], pts[len(pts)-1]}
	}
	return hull
}

// BufferBox returns a square polygon of the given radius (meters) around a
// center point. Used as the extent of locations whose members collapse to a
// single point or a line.
func BufferBox(center Point, radius float64) []Point {
	box := make([]Point, 0, 4)
	for _, bearing := range []float64{45, 135, 225, 315} {
		lat, lon := DestinationPoint(center.Lat, center.Lon, bearing, radius*math.Sqrt2)
		box = append(box, Point{Lat: lat, Lon: lon})
	}
	return box
}

// SimplifyPath simplifies a path using the Ramer-Douglas-Peucker algorithm
// epsilon: maximum distance (meters) from the simplified path
func SimplifyPath(points []Point, epsilon float64) []Point {
	if len(points) < 3 {
		return points
	}

	// Find the point with maximum distance from the line segment
	maxDist := 0.0
	maxIndex := 0

	for i := 1; i < len(points)-1; i++ {
		dist := perpendicularDistance(points[i], points[0], points[len(points)-1])
		if dist > maxDist {
			maxDist = dist
			maxIndex = i
		}
	}

	// If max distance is greater than epsilon, recursively simplify
	if maxDist > epsilon {
		left := SimplifyPath(points[:maxIndex+1], epsilon)
		right := SimplifyPath(points[maxIndex:], epsilon)

		// Combine results (remove duplicate middle point)
		result := make([]Point, len(left)+len(right)-1)
		copy(result, left)
		copy(result[len(left):], right[1:])
		return result
	}

	// If max distance is less than epsilon, return endpoints
	return []Point{points[0], points[len(points)-1]}
}

// perpendicularDistance calculates the perpendicular distance from a point to a line segment
func perpendicularDistance(point, lineStart, lineEnd Point) float64 {
	x0, y0 := point.Lat, point.Lon
	x1, y1 := lineStart.Lat, lineStart.Lon
	x2, y2 := lineEnd.Lat, lineEnd.Lon

	num := math.Abs((y2-y1)*x0 - (x2-x1)*y0 + x2*y1 - y2*x1)
	den := math.Sqrt((y2-y1)*(y2-y1) + (x2-x1)*(x2-x1))

	if den == 0 {
		return HaversineDistance(point.Lat, point.Lon, lineStart.Lat, lineStart.Lon)
	}

	// Convert to meters (approximate)
	metersPerDegree := 111320.0
	return (num / den) * metersPerDegree
}
