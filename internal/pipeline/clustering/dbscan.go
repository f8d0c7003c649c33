package clustering

import "github.com/jharte/mobility-backend-go/internal/spatial"

// noise is the label of points below the density threshold.
const noise = -1

// dbscan runs density-based clustering over points with a haversine metric.
// eps is the neighborhood radius in meters, minSamples the minimum
// neighborhood size (including the point itself) for a core point. Labels
// are returned in order of cluster discovery, so a fixed input ordering
// yields identical labels across runs.
func dbscan(points []spatial.Point, eps float64, minSamples int) []int {
	const unvisited = -2

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	regionQuery := func(i int) []int {
		var neighbors []int
		for j := range points {
			if spatial.Distance(points[i], points[j]) <= eps {
				neighbors = append(neighbors, j)
			}
		}
		return neighbors
	}

	cluster := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		neighbors := regionQuery(i)
		if len(neighbors) < minSamples {
			labels[i] = noise
			continue
		}

		labels[i] = cluster
		// expand the cluster over the density-reachable set
		for k := 0; k < len(neighbors); k++ {
			j := neighbors[k]
			if labels[j] == noise {
				labels[j] = cluster // border point
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			jNeighbors := regionQuery(j)
			if len(jNeighbors) >= minSamples {
				neighbors = append(neighbors, jNeighbors...)
			}
		}
		cluster++
	}
	return labels
}
