package quant

// KDTree is a complete-binary-array-layout k-d tree: the node at array index
// i has children at 2i+1 and 2i+2. It is leaf-exclusive — every occupied
// node, not just the leaves, holds a value — built once from a slice of
// values and a level-parameterized comparator, then queried with
// branch-and-bound nearest-neighbor search. This generalizes the teacher's
// RGB-specific ColorNode tree (buildKDTree/nearestNeighbor) into a reusable
// container via Go generics: the palette output mapper (C8) builds one over
// palette indices, and any other caller can build one over whatever value
// type it holds without duplicating the recursion. Median-cut's optional
// fast lookup (C6) does not use it; it descends its own partition instead.
type KDTree[V any] struct {
	nodes []kdNode[V]
}

type kdNode[V any] struct {
	value    V
	level    int
	occupied bool
}

// Less compares two values at a given tree level, picking a splitting
// dimension from the level the way the teacher's chooseSplitAxis picks an
// axis per depth (for RGB: dimension = level mod 3).
type Less[V any] func(a, b V, level int) bool

// BuildKDTree partitions values in place by repeatedly splitting on the
// median element at each level, the way the reference kd_tree::fill_node
// recurses on sorted slices. The median index is len(values)/2 (rounded
// down, so for an even count it is the upper of the two middle elements),
// so two implementations given the same input produce the same tree shape.
func BuildKDTree[V any](values []V, less Less[V]) *KDTree[V] {
	t := &KDTree[V]{}
	if len(values) == 0 {
		return t
	}
	fillNode(t, 0, values, 0, less)
	return t
}

func fillNode[V any](t *KDTree[V], arrayIndex int, values []V, level int, less Less[V]) {
	if len(values) == 0 {
		return
	}
	sortByLevel(values, level, less)

	allocNode(t, arrayIndex)
	median := len(values) / 2
	t.nodes[arrayIndex] = kdNode[V]{
		value:    values[median],
		level:    level,
		occupied: true,
	}

	if median > 0 {
		fillNode(t, 2*arrayIndex+1, values[:median], level+1, less)
	}
	if median+1 < len(values) {
		fillNode(t, 2*arrayIndex+2, values[median+1:], level+1, less)
	}
}

func allocNode[V any](t *KDTree[V], arrayIndex int) {
	if arrayIndex >= len(t.nodes) {
		grown := make([]kdNode[V], arrayIndex+1)
		copy(grown, t.nodes)
		t.nodes = grown
	}
}

// sortByLevel is an insertion sort: build ranges are small (the output
// mapper builds over a palette of at most 256 entries), so the simplicity
// of insertion sort beats the closure overhead of sort.Slice at every
// recursion level.
func sortByLevel[V any](values []V, level int, less Less[V]) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && less(values[j], values[j-1], level); j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

// DistFunc computes the true distance between a stored value and a query.
type DistFunc[V any, Q any] func(value V, query Q) int64

// PlaneDistFunc computes a signed pseudo-distance between a stored value and
// a query at a given tree level: its magnitude is comparable to DistFunc on
// the same scale, and its sign says which side of the splitting plane the
// query falls on. Preserve both properties in any replacement metric.
type PlaneDistFunc[V any, Q any] func(value V, query Q, level int) int64

// FindNearest performs branch-and-bound nearest-neighbor descent: at each
// node, update the best candidate if the node's own distance improves on
// it, then descend the nearer side first and only cross into the farther
// side if the splitting plane is closer than the current best distance. The
// root is seeded as the initial best before recursion starts, matching the
// reference find_nearest/find_nearest_node split (the root's self-distance
// update is excluded inside the recursive step since it was already used to
// seed the bound).
func FindNearest[V any, Q any](t *KDTree[V], query Q, distFn DistFunc[V, Q], planeDistFn PlaneDistFunc[V, Q]) (V, int, bool) {
	var zero V
	if len(t.nodes) == 0 || !t.nodes[0].occupied {
		return zero, -1, false
	}

	bestIndex := 0
	bestDist := distFn(t.nodes[0].value, query)
	findNearestNode(t, 0, query, distFn, planeDistFn, &bestIndex, &bestDist)

	return t.nodes[bestIndex].value, bestIndex, true
}

func findNearestNode[V any, Q any](t *KDTree[V], arrayIndex int, query Q, distFn DistFunc[V, Q], planeDistFn PlaneDistFunc[V, Q], bestIndex *int, bestDist *int64) {
	node := &t.nodes[arrayIndex]

	if arrayIndex != 0 {
		d := distFn(node.value, query)
		if d < *bestDist {
			*bestDist = d
			*bestIndex = arrayIndex
		}
	}

	planeDist := planeDistFn(node.value, query, node.level)

	child0 := 2*arrayIndex + 1
	child1 := 2*arrayIndex + 2
	hasChild0 := child0 < len(t.nodes) && t.nodes[child0].occupied
	hasChild1 := child1 < len(t.nodes) && t.nodes[child1].occupied

	if planeDist >= 0 {
		if hasChild1 {
			findNearestNode(t, child1, query, distFn, planeDistFn, bestIndex, bestDist)
		}
		if hasChild0 && planeDist < *bestDist {
			findNearestNode(t, child0, query, distFn, planeDistFn, bestIndex, bestDist)
		}
	} else {
		if hasChild0 {
			findNearestNode(t, child0, query, distFn, planeDistFn, bestIndex, bestDist)
		}
		if hasChild1 && -planeDist < *bestDist {
			findNearestNode(t, child1, query, distFn, planeDistFn, bestIndex, bestDist)
		}
	}
}

// Len reports how many occupied nodes the tree holds.
func (t *KDTree[V]) Len() int {
	n := 0
	for _, node := range t.nodes {
		if node.occupied {
			n++
		}
	}
	return n
}
