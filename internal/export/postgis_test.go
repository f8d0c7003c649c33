package export

import (
	"testing"

	"github.com/jharte/mobility-backend-go/internal/spatial"
)

func TestPointWKT(t *testing.T) {
	got := pointWKT(47.3769, 8.5417)
	if got != "POINT(8.5417 47.3769)" {
		t.Errorf("pointWKT = %q, want lon/lat order", got)
	}
}

func TestLineStringWKT(t *testing.T) {
	got := lineStringWKT([]spatial.Point{{Lat: 47, Lon: 8}, {Lat: 47.1, Lon: 8.1}})
	want := "LINESTRING(8 47, 8.1 47.1)"
	if got != want {
		t.Errorf("lineStringWKT = %q, want %q", got, want)
	}
}

func TestPolygonWKTClosesRing(t *testing.T) {
	got := polygonWKT([]spatial.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}})
	want := "POLYGON((0 0, 1 0, 1 1, 0 0))"
	if got != want {
		t.Errorf("polygonWKT = %q, want %q", got, want)
	}
}

func TestPolygonWKTKeepsClosedRing(t *testing.T) {
	ring := []spatial.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 0}}
	got := polygonWKT(ring)
	want := "POLYGON((0 0, 1 0, 1 1, 0 0))"
	if got != want {
		t.Errorf("polygonWKT = %q, want %q", got, want)
	}
}
