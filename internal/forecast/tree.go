package forecast

import (
	"sort"
)

// TrainParams tune the boosted ensemble.
type TrainParams struct {
	Rounds       int     `json:"rounds"`
	MaxDepth     int     `json:"max_depth"`
	MinLeaf      int     `json:"min_leaf"`
	Bins         int     `json:"bins"`
	LearningRate float64 `json:"learning_rate"`
}

// DefaultTrainParams returns the standard regression settings.
func DefaultTrainParams() TrainParams {
	return TrainParams{
		Rounds:       400,
		MaxDepth:     6,
		MinLeaf:      20,
		Bins:         32,
		LearningRate: 0.05,
	}
}

// Node is one split or leaf of a regression tree, stored flat by index.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a depth-limited regression tree over feature rows.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for one feature row.
func (t *Tree) Predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Ensemble is a gradient-boosted sum of regression trees under squared
// loss: a constant base prediction plus learning-rate-scaled tree outputs.
type Ensemble struct {
	Base         float64 `json:"base"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []Tree  `json:"trees"`
}

// Predict sums the base value and every tree's contribution for one row.
func (e *Ensemble) Predict(row []float64) float64 {
	out := e.Base
	for i := range e.Trees {
		out += e.LearningRate * e.Trees[i].Predict(row)
	}
	return out
}

// TrainEnsemble fits boosted regression trees to (X, y). Split candidates
// are quantile histogram edges computed once over the full matrix, so each
// round scans at most Bins thresholds per feature. Boosting stops early
// when residuals collapse to zero.
func TrainEnsemble(X [][]float64, y []float64, p TrainParams) *Ensemble {
	e := &Ensemble{Base: mean(y), LearningRate: p.LearningRate}
	if len(X) == 0 {
		return e
	}

	candidates := splitCandidates(X, p.Bins)

	residual := make([]float64, len(y))
	for i, v := range y {
		residual[i] = v - e.Base
	}

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}

	for round := 0; round < p.Rounds; round++ {
		if sumSquares(residual) == 0 {
			break
		}
		t := growTree(X, residual, indices, candidates, p)
		e.Trees = append(e.Trees, t)
		for i, row := range X {
			residual[i] -= p.LearningRate * t.Predict(row)
		}
	}
	return e
}

// splitCandidates returns per-feature quantile thresholds, at most bins
// per feature, deduplicated.
func splitCandidates(X [][]float64, bins int) [][]float64 {
	if bins < 2 {
		bins = 2
	}
	numCols := len(X[0])
	out := make([][]float64, numCols)

	vals := make([]float64, len(X))
	for f := 0; f < numCols; f++ {
		for i, row := range X {
			vals[i] = row[f]
		}
		sort.Float64s(vals)

		var edges []float64
		for b := 1; b < bins; b++ {
			q := vals[len(vals)*b/bins]
			if len(edges) == 0 || q > edges[len(edges)-1] {
				edges = append(edges, q)
			}
		}
		out[f] = edges
	}
	return out
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func growTree(X [][]float64, target []float64, indices []int, candidates [][]float64, p TrainParams) Tree {
	t := Tree{}
	grow(&t, X, target, indices, candidates, p, 0)
	return t
}

// grow appends a subtree for the given sample set and returns its root index.
func grow(t *Tree, X [][]float64, target []float64, indices []int, candidates [][]float64, p TrainParams, depth int) int {
	if depth >= p.MaxDepth || len(indices) < 2*p.MinLeaf {
		return appendLeaf(t, target, indices)
	}

	best, ok := bestSplit(X, target, indices, candidates, p.MinLeaf)
	if !ok {
		return appendLeaf(t, target, indices)
	}

	var left, right []int
	for _, i := range indices {
		if X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Feature: best.feature, Threshold: best.threshold})
	l := grow(t, X, target, left, candidates, p, depth+1)
	r := grow(t, X, target, right, candidates, p, depth+1)
	t.Nodes[idx].Left = l
	t.Nodes[idx].Right = r
	return idx
}

func appendLeaf(t *Tree, target []float64, indices []int) int {
	sum := 0.0
	for _, i := range indices {
		sum += target[i]
	}
	v := 0.0
	if len(indices) > 0 {
		v = sum / float64(len(indices))
	}
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Leaf: true, Value: v})
	return idx
}

// bestSplit maximizes the SSE reduction of splitting the sample set, using
// sum/count accumulators per histogram bucket so each (feature, threshold)
// pair costs one pass over the samples per feature.
func bestSplit(X [][]float64, target []float64, indices []int, candidates [][]float64, minLeaf int) (split, bool) {
	total := 0.0
	for _, i := range indices {
		total += target[i]
	}
	n := float64(len(indices))
	parentScore := total * total / n

	best := split{gain: 0}
	found := false

	for f := range candidates {
		edges := candidates[f]
		if len(edges) == 0 {
			continue
		}
		// bucket b holds samples with value <= edges[b]; the last bucket
		// holds the remainder.
		sums := make([]float64, len(edges)+1)
		counts := make([]int, len(edges)+1)
		for _, i := range indices {
			b := sort.SearchFloat64s(edges, X[i][f])
			sums[b] += target[i]
			counts[b]++
		}

		leftSum, leftCount := 0.0, 0
		for b := 0; b < len(edges); b++ {
			leftSum += sums[b]
			leftCount += counts[b]
			rightCount := len(indices) - leftCount
			if leftCount < minLeaf || rightCount < minLeaf {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(leftCount) + rightSum*rightSum/float64(rightCount)
			gain := score - parentScore
			if gain > best.gain+1e-12 {
				best = split{feature: f, threshold: edges[b], gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func sumSquares(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return sum
}
