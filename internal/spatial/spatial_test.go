package spatial

import (
	"math"
	"testing"
	"time"
)

func TestHaversineDistance(t *testing.T) {
	// one degree of latitude at the equator is about 111.19 km
	d := HaversineDistance(0, 0, 1, 0)
	if math.Abs(d-111195) > 200 {
		t.Fatalf("expected ~111195m, got %v", d)
	}
	if HaversineDistance(47.37, 8.54, 47.37, 8.54) != 0 {
		t.Fatalf("distance of a point to itself must be zero")
	}
}

func TestCentroid(t *testing.T) {
	c := Centroid([]Point{{Lat: 0, Lon: 0}, {Lat: 2, Lon: 0}, {Lat: 1, Lon: 3}})
	if math.Abs(c.Lat-1) > 1e-9 || math.Abs(c.Lon-1) > 1e-9 {
		t.Fatalf("expected centroid (1,1), got %+v", c)
	}
}

func TestRadiusOfGyration(t *testing.T) {
	// two points 2 degrees apart: every point is ~111.19km from the centroid
	r := RadiusOfGyration([]Point{{Lat: 0, Lon: 0}, {Lat: 2, Lon: 0}})
	if math.Abs(r-111195) > 300 {
		t.Fatalf("expected ~111195m, got %v", r)
	}
	if RadiusOfGyration([]Point{{Lat: 1, Lon: 1}}) != 0 {
		t.Fatalf("single point has zero radius of gyration")
	}
}

func TestBoundingBox(t *testing.T) {
	minLat, minLon, maxLat, maxLon := BoundingBox([]Point{
		{Lat: 1, Lon: -3}, {Lat: -2, Lon: 0}, {Lat: 0.5, Lon: 4},
	})
	if minLat != -2 || minLon != -3 || maxLat != 1 || maxLon != 4 {
		t.Fatalf("bounding box wrong: %v %v %v %v", minLat, minLon, maxLat, maxLon)
	}
}

func TestConvexHull(t *testing.T) {
	square := []Point{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 0}, {Lat: 1, Lon: 1},
		{Lat: 0.5, Lon: 0.5}, // interior point
	}
	hull := ConvexHull(square)
	if len(hull) != 4 {
		t.Fatalf("expected 4 hull points, got %d", len(hull))
	}
	for _, p := range hull {
		if p.Lat == 0.5 {
			t.Fatalf("interior point must not be on the hull")
		}
	}

	line := []Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 0}, {Lat: 2, Lon: 0}}
	if h := ConvexHull(line); len(h) >= 3 {
		t.Fatalf("collinear points cannot form a polygon, got %d points", len(h))
	}
}

func TestBufferBox(t *testing.T) {
	box := BufferBox(Point{Lat: 47, Lon: 8}, 100)
	if len(box) != 4 {
		t.Fatalf("expected 4 corners, got %d", len(box))
	}
	for i, p := range box {
		d := Distance(Point{Lat: 47, Lon: 8}, p)
		// corners sit at radius * sqrt(2)
		if math.Abs(d-100*math.Sqrt2) > 1 {
			t.Fatalf("corner %d at distance %v, expected ~%v", i, d, 100*math.Sqrt2)
		}
	}
}

func TestSimplifyPath(t *testing.T) {
	path := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0.00001, Lon: 0.5}, // negligible deviation
		{Lat: 0, Lon: 1},
		{Lat: 1, Lon: 1},
	}
	got := SimplifyPath(path, 50)
	if len(got) != 3 {
		t.Fatalf("expected the near-collinear point to be dropped, got %d points", len(got))
	}
}

func TestSpeed(t *testing.T) {
	if v := Speed(100, 10*time.Second); v != 10 {
		t.Fatalf("expected 10 m/s, got %v", v)
	}
	if v := Speed(100, 0); !math.IsNaN(v) {
		t.Fatalf("zero duration must yield NaN, got %v", v)
	}
	if v := Speed(100, -time.Second); !math.IsNaN(v) {
		t.Fatalf("negative duration must yield NaN, got %v", v)
	}
}

func TestKmhMsRoundTrip(t *testing.T) {
	if v := MsToKmh(KmhToMs(100)); math.Abs(v-100) > 1e-9 {
		t.Fatalf("expected 100, got %v", v)
	}
}
