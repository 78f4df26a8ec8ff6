// Package model implements the binary risk classifier: a random forest
// trained from feedback-labeled readings, the predictor that serves it, and
// the on-disk artifact store that versions it.
//
// No maintained Go library exposes forest training with balanced class
// weights and calibrated per-class probabilities, so the forest is
// implemented here. It is intentionally small: three features, two classes,
// axis-aligned splits on weighted Gini impurity.
package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TrainParams controls forest training. All randomness flows from Seed, so
// identical inputs and params reproduce an identical forest.
type TrainParams struct {
	Trees           int
	Seed            int64
	BalancedWeights bool // class weights inversely proportional to class frequency
	MinLeaf         int  // minimum samples per leaf, default 1
}

// Forest is a trained ensemble of decision trees over a fixed-width feature
// vector. The zero value is unusable; construct via Train or artifact load.
type Forest struct {
	NumFeatures int     `json:"num_features"`
	Trees       []*Node `json:"trees"`
}

// Node is one tree node. Interior nodes route on Feature <= Threshold;
// leaves carry the weighted class distribution observed during training.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      *Node     `json:"l,omitempty"`
	Right     *Node     `json:"r,omitempty"`
	Probs     []float64 `json:"p,omitempty"`
}

func (n *Node) leaf() bool { return n.Left == nil }

// Train fits a random forest on the given samples. Labels must be 0 or 1.
func Train(features [][]float64, labels []int, params TrainParams) (*Forest, error) {
	if len(features) == 0 {
		return nil, errors.New("train: empty dataset")
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf("train: %d feature rows but %d labels", len(features), len(labels))
	}
	width := len(features[0])
	if width == 0 {
		return nil, errors.New("train: zero-width feature vector")
	}
	for i, row := range features {
		if len(row) != width {
			return nil, fmt.Errorf("train: row %d has width %d, want %d", i, len(row), width)
		}
	}
	for i, y := range labels {
		if y != 0 && y != 1 {
			return nil, fmt.Errorf("train: label %d at row %d, want 0 or 1", y, i)
		}
	}
	if params.Trees <= 0 {
		return nil, errors.New("train: tree count must be positive")
	}
	minLeaf := params.MinLeaf
	if minLeaf <= 0 {
		minLeaf = 1
	}

	weights := sampleWeights(labels, params.BalancedWeights)
	rng := rand.New(rand.NewSource(params.Seed))
	mtry := max(1, int(math.Sqrt(float64(width))))

	forest := &Forest{NumFeatures: width, Trees: make([]*Node, params.Trees)}
	for t := range forest.Trees {
		idx := bootstrap(len(labels), rng)
		forest.Trees[t] = buildNode(features, labels, weights, idx, mtry, minLeaf, rng)
	}
	return forest, nil
}

// PredictProba returns the class probability distribution [p(normal),
// p(risk)] averaged over all trees.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != f.NumFeatures {
		return nil, fmt.Errorf("predict: got %d features, want %d", len(x), f.NumFeatures)
	}
	if len(f.Trees) == 0 {
		return nil, errors.New("predict: forest has no trees")
	}
	sum := make([]float64, 2)
	for _, root := range f.Trees {
		p := root.route(x)
		sum[0] += p[0]
		sum[1] += p[1]
	}
	n := float64(len(f.Trees))
	return []float64{sum[0] / n, sum[1] / n}, nil
}

// Predict returns the majority class and the risk-class probability.
func (f *Forest) Predict(x []float64) (int, float64, error) {
	probs, err := f.PredictProba(x)
	if err != nil {
		return 0, 0, err
	}
	class := 0
	if probs[1] > probs[0] {
		class = 1
	}
	return class, probs[1], nil
}

func (n *Node) route(x []float64) []float64 {
	for !n.leaf() {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Probs
}

// sampleWeights assigns each sample its class weight. Balanced weighting
// uses n_samples / (n_classes * class_count), compensating class imbalance
// in the feedback history.
func sampleWeights(labels []int, balanced bool) []float64 {
	w := make([]float64, len(labels))
	if !balanced {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	var counts [2]float64
	for _, y := range labels {
		counts[y]++
	}
	var classWeight [2]float64
	n := float64(len(labels))
	for c := range classWeight {
		if counts[c] > 0 {
			classWeight[c] = n / (2 * counts[c])
		}
	}
	for i, y := range labels {
		w[i] = classWeight[y]
	}
	return w
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

func buildNode(features [][]float64, labels []int, weights []float64, idx []int, mtry, minLeaf int, rng *rand.Rand) *Node {
	var counts [2]float64
	for _, i := range idx {
		counts[labels[i]] += weights[i]
	}
	total := counts[0] + counts[1]

	if counts[0] == 0 || counts[1] == 0 || len(idx) < 2*minLeaf {
		return leafNode(counts, total)
	}

	feature, threshold, ok := bestSplit(features, labels, weights, idx, mtry, minLeaf, rng)
	if !ok {
		return leafNode(counts, total)
	}

	var left, right []int
	for _, i := range idx {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildNode(features, labels, weights, left, mtry, minLeaf, rng),
		Right:     buildNode(features, labels, weights, right, mtry, minLeaf, rng),
	}
}

func leafNode(counts [2]float64, total float64) *Node {
	if total == 0 {
		return &Node{Probs: []float64{0.5, 0.5}}
	}
	return &Node{Probs: []float64{counts[0] / total, counts[1] / total}}
}

// bestSplit searches a random subset of mtry features for the weighted-Gini
// minimizing threshold. Returns ok=false when no split separates the
// samples, which ends recursion at this node.
func bestSplit(features [][]float64, labels []int, weights []float64, idx []int, mtry, minLeaf int, rng *rand.Rand) (int, float64, bool) {
	width := len(features[0])
	candidates := rng.Perm(width)[:mtry]

	bestGini := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	for _, f := range candidates {
		sorted := make([]int, len(idx))
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool {
			return features[sorted[a]][f] < features[sorted[b]][f]
		})

		var leftCounts [2]float64
		rightCounts := classCounts(labels, weights, sorted)

		for pos := 0; pos < len(sorted)-1; pos++ {
			i := sorted[pos]
			leftCounts[labels[i]] += weights[i]
			rightCounts[labels[i]] -= weights[i]

			cur, next := features[i][f], features[sorted[pos+1]][f]
			if cur == next {
				continue
			}
			if pos+1 < minLeaf || len(sorted)-pos-1 < minLeaf {
				continue
			}

			g := weightedGini(leftCounts) + weightedGini(rightCounts)
			if g < bestGini {
				bestGini = g
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func classCounts(labels []int, weights []float64, idx []int) [2]float64 {
	var counts [2]float64
	for _, i := range idx {
		counts[labels[i]] += weights[i]
	}
	return counts
}

// weightedGini returns gini impurity scaled by the partition's weight mass,
// so summing the two sides compares splits directly.
func weightedGini(counts [2]float64) float64 {
	total := counts[0] + counts[1]
	if total == 0 {
		return 0
	}
	p0 := counts[0] / total
	p1 := counts[1] / total
	return total * (1 - p0*p0 - p1*p1)
}
