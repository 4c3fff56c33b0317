package model

import (
	"math/rand/v2"
	"sort"
)

// TreeNode is one node of a fitted tree in flattened form. Leaf nodes carry
// the value, split nodes carry the feature, threshold, and child indexes.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a CART regression tree. Splits minimize the summed squared error
// of the children; leaves predict the mean label of their samples.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// FitTree grows a regression tree on the full data. The seed only matters
// when MaxFeatures restricts the per-split candidate features.
func FitTree(X [][]float64, y []float64, p Params, seed int64) (*Tree, error) {
	if err := checkMatrix(X, y); err != nil {
		return nil, err
	}
	p = p.withDefaults()

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	return fitTree(X, y, idx, p, rand.New(rand.NewPCG(uint64(seed), 0))), nil
}

// Predict implements Regressor.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Leaf {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

// Depth returns the number of split levels along the deepest path.
func (t *Tree) Depth() int {
	return t.depth(0)
}

func (t *Tree) depth(i int) int {
	node := t.Nodes[i]
	if node.Leaf {
		return 0
	}

	left, right := t.depth(node.Left), t.depth(node.Right)
	if left > right {
		return left + 1
	}

	return right + 1
}

// fitTree builds a tree over the given sample indexes (duplicates allowed,
// which is how bootstrap sampling enters).
func fitTree(X [][]float64, y []float64, idx []int, p Params, rng *rand.Rand) *Tree {
	b := &treeBuilder{X: X, y: y, params: p, rng: rng}
	b.build(idx, 0)

	return &Tree{Nodes: b.nodes}
}

type treeBuilder struct {
	X      [][]float64
	y      []float64
	params Params
	rng    *rand.Rand
	nodes  []TreeNode
}

// sseImprovementEps guards against splits whose gain is only float noise.
const sseImprovementEps = 1e-9

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{})

	var sum, sq float64
	for _, i := range idx {
		sum += b.y[i]
		sq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sq - sum*sum/n

	atMaxDepth := b.params.MaxDepth > 0 && depth >= b.params.MaxDepth
	if atMaxDepth || len(idx) < 2*b.params.MinLeaf || len(idx) < 2 || sse <= sseImprovementEps {
		b.nodes[id] = TreeNode{Leaf: true, Value: mean}

		return id
	}

	feature, threshold, ok := b.bestSplit(idx, sum, sq, sse)
	if !ok {
		b.nodes[id] = TreeNode{Leaf: true, Value: mean}

		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.nodes[id] = TreeNode{Feature: feature, Threshold: threshold}
	leftID := b.build(left, depth+1)
	rightID := b.build(right, depth+1)
	b.nodes[id].Left = leftID
	b.nodes[id].Right = rightID

	return id
}

// bestSplit scans candidate features for the threshold with the lowest
// combined child SSE, computed incrementally over the sorted sample order.
func (b *treeBuilder) bestSplit(idx []int, sum, sq, parentSSE float64) (int, float64, bool) {
	width := len(b.X[0])
	features := b.candidateFeatures(width)

	bestScore := parentSSE - sseImprovementEps
	bestFeature, bestThreshold, found := 0, 0.0, false

	order := make([]int, len(idx))
	for _, f := range features {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })

		var sumL, sqL float64
		for s := 1; s < len(order); s++ {
			yv := b.y[order[s-1]]
			sumL += yv
			sqL += yv * yv

			prev, cur := b.X[order[s-1]][f], b.X[order[s]][f]
			if prev == cur {
				continue
			}
			if s < b.params.MinLeaf || len(order)-s < b.params.MinLeaf {
				continue
			}

			nL, nR := float64(s), float64(len(order)-s)
			sseL := sqL - sumL*sumL/nL
			sseR := (sq - sqL) - (sum-sumL)*(sum-sumL)/nR
			if score := sseL + sseR; score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (prev + cur) / 2
				found = true
			}
		}
	}

	return bestFeature, bestThreshold, found
}

func (b *treeBuilder) candidateFeatures(width int) []int {
	k := b.params.MaxFeatures
	if k <= 0 || k >= width {
		features := make([]int, width)
		for i := range features {
			features[i] = i
		}

		return features
	}

	return b.rng.Perm(width)[:k]
}
