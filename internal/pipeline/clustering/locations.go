// Package clustering groups recurring staypoints into persistent locations
// using density-based clustering over staypoint centers. Distances are always
// computed with a haversine metric, never as planar math on raw lon/lat.
package clustering

import (
	"fmt"

	"github.com/jharte/mobility-backend-go/internal/models"
	"github.com/jharte/mobility-backend-go/internal/pipeline"
	"github.com/jharte/mobility-backend-go/internal/spatial"
)

// Config holds the clustering parameters.
type Config struct {
	Epsilon    float64 // meters, neighborhood radius
	MinSamples int     // minimum neighborhood size for a core point
	PerUser    bool    // cluster each user independently instead of dataset-wide
}

// Validate fails fast on out-of-range configuration.
func (c Config) Validate() error {
	if c.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be positive, got %v", pipeline.ErrInvalidConfig, c.Epsilon)
	}
	if c.MinSamples < 1 {
		return fmt.Errorf("%w: min_samples must be >= 1, got %d", pipeline.ErrInvalidConfig, c.MinSamples)
	}
	return nil
}

// Result carries the input staypoints annotated with location ids and the
// generated locations. Noise staypoints keep a nil LocationID.
type Result struct {
	Staypoints []models.Staypoint
	Locations  []models.Location
}

// Generate clusters staypoints into locations. With PerUser=true clustering
// runs independently per user and location ids are offset so they stay
// unique across the dataset; with PerUser=false a single dataset-wide run
// lets one physical place host staypoints of several users, and the
// resulting locations carry no user id.
func Generate(sps []models.Staypoint, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(sps) == 0 {
		return Result{}, nil
	}

	if cfg.PerUser {
		return generatePerUser(sps, cfg), nil
	}
	return generateDataset(sps, cfg), nil
}

func generatePerUser(sps []models.Staypoint, cfg Config) Result {
	var out Result
	idOffset := int64(1) // location ids start at 1

	for _, group := range pipeline.GroupStaypointsByUser(sps) {
		labels := dbscan(centers(group.Staypoints), cfg.Epsilon, cfg.MinSamples)

		clusters := annotate(group.Staypoints, labels, idOffset)
		uid := group.UserID
		for _, c := range clusters {
			loc := buildLocation(c, cfg.Epsilon)
			loc.UserID = &uid
			out.Locations = append(out.Locations, loc)
		}
		out.Staypoints = append(out.Staypoints, group.Staypoints...)
		idOffset += int64(len(clusters))
	}
	return out
}

func generateDataset(sps []models.Staypoint, cfg Config) Result {
	annotated := append([]models.Staypoint(nil), sps...)
	labels := dbscan(centers(annotated), cfg.Epsilon, cfg.MinSamples)

	clusters := annotate(annotated, labels, 1)
	out := Result{Staypoints: annotated}
	for _, c := range clusters {
		out.Locations = append(out.Locations, buildLocation(c, cfg.Epsilon))
	}
	return out
}

// cluster collects the members of one location.
type cluster struct {
	id      int64
	members []spatial.Point
}

func centers(sps []models.Staypoint) []spatial.Point {
	pts := make([]spatial.Point, len(sps))
	for i, sp := range sps {
		pts[i] = spatial.Point{Lat: sp.Latitude, Lon: sp.Longitude}
	}
	return pts
}

// annotate writes offset cluster labels into the staypoints and returns the
// clusters in label order. Noise staypoints are left without a location.
func annotate(sps []models.Staypoint, labels []int, idOffset int64) []cluster {
	byLabel := make(map[int]*cluster)
	var order []int
	for i := range sps {
		if labels[i] == noise {
			sps[i].LocationID = nil
			continue
		}
		id := idOffset + int64(labels[i])
		sps[i].LocationID = &id

		c, ok := byLabel[labels[i]]
		if !ok {
			c = &cluster{id: id}
			byLabel[labels[i]] = c
			order = append(order, labels[i])
		}
		c.members = append(c.members, spatial.Point{Lat: sps[i].Latitude, Lon: sps[i].Longitude})
	}

	clusters := make([]cluster, 0, len(order))
	for _, label := range order {
		clusters = append(clusters, *byLabel[label])
	}
	return clusters
}

// buildLocation derives the center and extent of a cluster. The extent is
// the convex hull of member staypoints; clusters collapsing to a point or a
// line get an epsilon buffer instead, so the extent is always a polygon.
func buildLocation(c cluster, epsilon float64) models.Location {
	center := spatial.Centroid(c.members)
	extent := spatial.ConvexHull(c.members)
	if len(extent) < 3 {
		extent = spatial.BufferBox(center, epsilon)
	}
	return models.Location{
		ID:     c.id,
		Center: center,
		Extent: extent,
	}
}
