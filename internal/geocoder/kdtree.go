package geocoder

// kdNode is one node of a balanced, static 2-D k-d tree over (lat, lon) in
// degree space. Built once from a sorted slice and never mutated, so
// queries need no locking once construction returns.
type kdNode struct {
	point       place
	axis        int // 0 = latitude, 1 = longitude
	left, right *kdNode
}

// buildKDTree builds a balanced tree by recursively splitting on the
// median of alternating axes. Using the median keeps expected query depth
// at O(log N) regardless of input ordering.
func buildKDTree(points []place) *kdNode {
	return build(points, 0)
}

func build(points []place, depth int) *kdNode {
	if len(points) == 0 {
		return nil
	}
	axis := depth % 2
	sortByAxis(points, axis)

	mid := len(points) / 2
	node := &kdNode{point: points[mid], axis: axis}
	node.left = build(points[:mid], depth+1)
	node.right = build(points[mid+1:], depth+1)
	return node
}

// sortByAxis sorts points by the given axis with quickSortByKey, a
// three-way-partition quicksort; the tree is built once at startup so
// asymptotics here don't matter as much as correctness.
func sortByAxis(points []place, axis int) {
	key := func(p place) float64 {
		if axis == 0 {
			return p.Lat
		}
		return p.Lon
	}
	quickSortByKey(points, key)
}

func quickSortByKey(points []place, key func(place) float64) {
	if len(points) < 2 {
		return
	}
	pivot := key(points[len(points)/2])
	lt, eq, gt := 0, 0, 0
	for _, p := range points {
		switch v := key(p); {
		case v < pivot:
			lt++
		case v > pivot:
			gt++
		default:
			eq++
		}
	}
	buf := make([]place, len(points))
	li, ei, gi := 0, lt, lt+eq
	for _, p := range points {
		switch v := key(p); {
		case v < pivot:
			buf[li] = p
			li++
		case v > pivot:
			buf[gi] = p
			gi++
		default:
			buf[ei] = p
			ei++
		}
	}
	copy(points, buf)
	quickSortByKey(points[:lt], key)
	quickSortByKey(points[lt+eq:], key)
}

// nearest returns the point in the tree closest to (lat, lon) under
// squared Euclidean distance in degree space — an approximation the
// design accepts because queries look for nearest, not absolute distance
// (spec.md §4.3).
func (n *kdNode) nearest(lat, lon float64) (place, bool) {
	if n == nil {
		return place{}, false
	}
	best := n.point
	bestDist := sqDist(best, lat, lon)
	n.search(lat, lon, &best, &bestDist)
	return best, true
}

func (n *kdNode) search(lat, lon float64, best *place, bestDist *float64) {
	if n == nil {
		return
	}
	d := sqDist(n.point, lat, lon)
	if d < *bestDist {
		*bestDist = d
		*best = n.point
	}

	var axisVal, queryVal float64
	if n.axis == 0 {
		axisVal, queryVal = n.point.Lat, lat
	} else {
		axisVal, queryVal = n.point.Lon, lon
	}

	near, far := n.left, n.right
	if queryVal > axisVal {
		near, far = n.right, n.left
	}

	near.search(lat, lon, best, bestDist)

	// Only descend into the far side if the splitting plane itself is
	// closer than the current best candidate — the standard k-d tree
	// pruning criterion.
	diff := queryVal - axisVal
	if diff*diff < *bestDist {
		far.search(lat, lon, best, bestDist)
	}
}

func sqDist(p place, lat, lon float64) float64 {
	dLat := p.Lat - lat
	dLon := p.Lon - lon
	return dLat*dLat + dLon*dLon
}
