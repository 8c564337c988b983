package algo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// ErrNoAssignment is returned when some start cannot reach any free goal.
var ErrNoAssignment = errors.New("no complete target assignment")

// Assignment pairs starts with goals.
type Assignment struct {
	Goals    []core.NodeID // Goals[i] is the goal of starts[i]
	Makespan float64       // Longest assigned distance
	Cost     float64       // Sum of assigned distances
}

// AssignTargets assigns one goal to each start. It first finds the smallest
// makespan admitting a complete matching (bottleneck assignment), then picks
// the minimum-cost matching among pairs no longer than that makespan.
// There must be at least as many goals as starts.
func AssignTargets(d *core.DistanceTable, starts, goals []core.NodeID) (*Assignment, error) {
	n, m := len(starts), len(goals)
	if n == 0 {
		return &Assignment{}, nil
	}
	if m < n {
		return nil, fmt.Errorf("%d starts, %d goals: %w", n, m, ErrNoAssignment)
	}

	cost := make([][]float64, n)
	var levels []float64
	for i, s := range starts {
		cost[i] = make([]float64, m)
		for j, g := range goals {
			c := d.Dist(s, g)
			cost[i][j] = c
			if c < core.Unreachable {
				levels = append(levels, c)
			}
		}
	}
	sort.Float64s(levels)

	// Smallest level with a perfect matching.
	k := sort.Search(len(levels), func(k int) bool {
		return maxMatching(cost, levels[k]) == n
	})
	if k == len(levels) {
		return nil, ErrNoAssignment
	}
	makespan := levels[k]

	big := core.Unreachable * float64(n+1)
	restricted := make([][]float64, n)
	for i := range cost {
		restricted[i] = make([]float64, m)
		for j, c := range cost[i] {
			if c <= makespan {
				restricted[i][j] = c
			} else {
				restricted[i][j] = big
			}
		}
	}

	cols := hungarian(restricted)
	out := &Assignment{Goals: make([]core.NodeID, n), Makespan: makespan}
	for i, j := range cols {
		out.Goals[i] = goals[j]
		out.Cost += cost[i][j]
	}
	return out, nil
}

// maxMatching returns the size of a maximum matching using only pairs with
// cost <= limit (Kuhn's augmenting paths).
func maxMatching(cost [][]float64, limit float64) int {
	m := len(cost[0])
	owner := make([]int, m)
	for j := range owner {
		owner[j] = -1
	}

	var augment func(i int, seen []bool) bool
	augment = func(i int, seen []bool) bool {
		for j, c := range cost[i] {
			if c > limit || seen[j] {
				continue
			}
			seen[j] = true
			if owner[j] < 0 || augment(owner[j], seen) {
				owner[j] = i
				return true
			}
		}
		return false
	}

	matched := 0
	for i := range cost {
		if augment(i, make([]bool, m)) {
			matched++
		}
	}
	return matched
}

// hungarian solves the rectangular assignment problem (rows <= cols) and
// returns the column of each row. Successive shortest paths with potentials.
func hungarian(a [][]float64) []int {
	n, m := len(a), len(a[0])
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1) // p[j]: row matched to column j, 1-based
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		used := make([]bool, m+1)
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := a[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	cols := make([]int, n)
	for j := 1; j <= m; j++ {
		if p[j] != 0 {
			cols[p[j]-1] = j - 1
		}
	}
	return cols
}
