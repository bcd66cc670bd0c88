package anomaly

import (
	"math"
	"math/rand"
	"sort"
)

const (
	defaultTrees      = 100
	defaultSampleSize = 256
)

// forest is an isolation forest over float64 feature vectors. Trees are
// built sequentially from a single seeded source, so the fitted model is a
// pure function of the seed and the input matrix.
type forest struct {
	rng        *rand.Rand
	trees      []*node
	numTrees   int
	sampleSize int
	fitSample  int // actual per-tree sample after clamping to the data size
	limit      int // max tree depth
}

// node is one isolation-tree node. Leaves carry the size of the sample that
// reached them; internal nodes split on feature < split.
type node struct {
	feature     int
	split       float64
	left, right *node
	size        int
}

func newForest(seed int64, trees, sampleSize int) *forest {
	return &forest{
		rng:        rand.New(rand.NewSource(seed)),
		numTrees:   trees,
		sampleSize: sampleSize,
	}
}

// Fit builds the ensemble on a subsample of data per tree.
func (f *forest) Fit(data [][]float64) {
	sample := f.sampleSize
	if sample > len(data) {
		sample = len(data)
	}
	f.fitSample = sample
	f.limit = int(math.Ceil(math.Log2(float64(sample))))
	f.trees = make([]*node, 0, f.numTrees)
	idx := make([]int, sample)
	for t := 0; t < f.numTrees; t++ {
		for i := range idx {
			idx[i] = f.rng.Intn(len(data))
		}
		f.trees = append(f.trees, f.build(data, idx, 0))
	}
}

func (f *forest) build(data [][]float64, idx []int, depth int) *node {
	if depth >= f.limit || len(idx) <= 1 {
		return &node{size: len(idx)}
	}
	features := len(data[0])
	feature := f.rng.Intn(features)
	lo, hi := data[idx[0]][feature], data[idx[0]][feature]
	for _, i := range idx[1:] {
		v := data[i][feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return &node{size: len(idx)}
	}
	split := lo + f.rng.Float64()*(hi-lo)
	var left, right []int
	for _, i := range idx {
		if data[i][feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature: feature,
		split:   split,
		left:    f.build(data, left, depth+1),
		right:   f.build(data, right, depth+1),
	}
}

// pathLength traverses one tree for a point, adding the average unbuilt
// subtree depth at the leaf.
func pathLength(n *node, point []float64, depth int) float64 {
	for n.left != nil {
		if point[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + avgPath(n.size)
}

// avgPath is the expected path length of an unsuccessful BST search over n
// items, the normalization constant of the method.
func avgPath(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}

// Score returns the anomaly score of a point in (0, 1); values near 1 are
// isolated quickly and therefore anomalous.
func (f *forest) Score(point []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += pathLength(t, point, 0)
	}
	mean := sum / float64(len(f.trees))
	return math.Pow(2, -mean/avgPath(f.fitSample))
}

// Outliers classifies the contamination fraction of data with the highest
// scores as outliers and returns their indices, ascending. Ties at the
// cutoff resolve toward lower indices so the result is deterministic.
func (f *forest) Outliers(data [][]float64, contamination float64) []int {
	if len(data) == 0 || contamination <= 0 {
		return nil
	}
	type scored struct {
		idx   int
		score float64
	}
	all := make([]scored, len(data))
	for i, p := range data {
		all[i] = scored{idx: i, score: f.Score(p)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].score > all[b].score })

	n := int(math.Ceil(contamination * float64(len(data))))
	if n > len(data) {
		n = len(data)
	}
	out := make([]int, 0, n)
	for _, s := range all[:n] {
		out = append(out, s.idx)
	}
	sort.Ints(out)
	return out
}
