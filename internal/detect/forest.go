package detect

import (
	"math"
	"math/rand"

	"github.com/homesense/sensorsim/internal/dataset"
	"github.com/homesense/sensorsim/pkg/types"
)

// forestTree is a single isolation tree.
type forestTree struct {
	splitFeature int
	splitValue   float64
	left         *forestTree
	right        *forestTree
	size         int
	isLeaf       bool
}

// Forest is a seedable isolation forest. Identical (data, seed) pairs train
// identical forests, so detection runs stay reproducible like generation
// runs.
type Forest struct {
	trees         []*forestTree
	numTrees      int
	subSampleSize int
	maxDepth      int
	rng           *rand.Rand
}

// NewForest builds an untrained forest. Zero parameters take the usual
// defaults: 100 trees, 256-point subsamples, depth ceil(log2(subsample)).
func NewForest(numTrees, subSampleSize int, seed int64) *Forest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if subSampleSize <= 0 {
		subSampleSize = 256
	}
	return &Forest{
		trees:         make([]*forestTree, 0, numTrees),
		numTrees:      numTrees,
		subSampleSize: subSampleSize,
		maxDepth:      int(math.Ceil(math.Log2(float64(subSampleSize)))),
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// Fit trains the forest on row feature vectors.
func (f *Forest) Fit(points [][]float64) {
	if len(points) == 0 {
		return
	}
	for i := 0; i < f.numTrees; i++ {
		sample := f.sample(points)
		f.trees = append(f.trees, f.buildTree(sample, 0))
	}
}

// Score returns the isolation score in [0,1] for one point; higher means
// more anomalous. An untrained forest scores everything 0.5.
func (f *Forest) Score(point []float64) float64 {
	if len(f.trees) == 0 {
		return 0.5
	}
	total := 0.0
	for _, t := range f.trees {
		total += f.pathLength(t, point, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/averagePathLength(f.subSampleSize))
}

// Flags scores every point and thresholds the result.
func (f *Forest) Flags(points [][]float64, threshold float64) []bool {
	flags := make([]bool, len(points))
	for i, p := range points {
		flags[i] = f.Score(p) > threshold
	}
	return flags
}

// FeatureMatrix builds the forest's row features from a dataset: every
// numeric sensor channel plus a cyclic time-of-day encoding, so values are
// judged in the context of when they occur.
func FeatureMatrix(tbl *dataset.Table) [][]float64 {
	var cols []*dataset.Column
	for _, name := range types.FloatChannels {
		if c, ok := tbl.Column(name); ok && c.Kind == dataset.Float {
			cols = append(cols, c)
		}
	}

	points := make([][]float64, tbl.Len())
	for i := range points {
		row := make([]float64, 0, len(cols)+2)
		for _, c := range cols {
			row = append(row, c.Float[i])
		}
		ts := tbl.Timestamps[i]
		minute := float64(ts.Hour()*60 + ts.Minute())
		angle := 2 * math.Pi * minute / (24 * 60)
		row = append(row, math.Sin(angle), math.Cos(angle))
		points[i] = row
	}
	return points
}

func (f *Forest) sample(points [][]float64) [][]float64 {
	size := f.subSampleSize
	if size > len(points) {
		size = len(points)
	}
	shuffled := make([][]float64, len(points))
	copy(shuffled, points)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := f.rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:size]
}

func (f *Forest) buildTree(points [][]float64, depth int) *forestTree {
	if len(points) <= 1 || depth >= f.maxDepth || allIdentical(points) {
		return &forestTree{size: len(points), isLeaf: true}
	}

	feature := f.rng.Intn(len(points[0]))
	lo, hi := featureRange(points, feature)
	split := lo + f.rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, p := range points {
		if p[feature] < split {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &forestTree{size: len(points), isLeaf: true}
	}

	return &forestTree{
		splitFeature: feature,
		splitValue:   split,
		left:         f.buildTree(left, depth+1),
		right:        f.buildTree(right, depth+1),
		size:         len(points),
	}
}

func (f *Forest) pathLength(t *forestTree, point []float64, depth int) float64 {
	if t.isLeaf {
		return float64(depth) + averagePathLength(t.size)
	}
	if point[t.splitFeature] < t.splitValue {
		return f.pathLength(t.left, point, depth+1)
	}
	return f.pathLength(t.right, point, depth+1)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search, used to normalize isolation depths.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	harmonic := math.Log(float64(n-1)) + 0.5772156649
	return 2*harmonic - 2*float64(n-1)/float64(n)
}

func allIdentical(points [][]float64) bool {
	first := points[0]
	for _, p := range points[1:] {
		for j := range first {
			if math.Abs(p[j]-first[j]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

func featureRange(points [][]float64, feature int) (float64, float64) {
	lo, hi := points[0][feature], points[0][feature]
	for _, p := range points {
		v := p[feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
