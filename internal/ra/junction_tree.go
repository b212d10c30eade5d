package ra

import "sort"

// JunctionTree is the clique forest of a decomposable model. Cliques are the
// model's relations; each non-root clique carries the separator to its
// parent (the intersection of the two variable sets). Roots are the lowest
// clique index of each component.
type JunctionTree struct {
	Valid   bool
	Cliques []*Relation

	// Parent[i] is the parent clique index, -1 for roots.
	Parent []int
	// Separators[i] is the separator between clique i and its parent,
	// nil for roots.
	Separators []*Relation

	// Deterministic traversal orders: PostOrder visits children before
	// parents, PreOrder the reverse.
	PostOrder []int
	PreOrder  []int
}

type jtEdge struct {
	a, b   int
	weight int
}

// BuildJunctionTree constructs a maximum-weight spanning forest over the
// junction graph (nodes = relations, edge weight = |shared variables|) and
// validates the running-intersection property: for every variable, the
// cliques containing it must form a connected subtree. A spanning edge whose
// separator swallows a whole endpoint clique means one relation is nested in
// its neighbor; such trees are rejected, so nested or duplicated relations
// are reported as loops and fit through IPF.
func BuildJunctionTree(m *Model, vl *VariableList) *JunctionTree {
	n := m.Size()
	jt := &JunctionTree{
		Valid:      true,
		Cliques:    m.Relations(),
		Parent:     make([]int, n),
		Separators: make([]*Relation, n),
	}
	for i := range jt.Parent {
		jt.Parent[i] = -1
	}
	if n == 0 {
		return jt
	}

	var edges []jtEdge
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if w := jt.Cliques[i].SharedCount(jt.Cliques[j]); w > 0 {
				edges = append(edges, jtEdge{a: i, b: j, weight: w})
			}
		}
	}
	// Kruskal over descending weight; ties break toward lower clique
	// indices so the tree is deterministic.
	sort.Slice(edges, func(x, y int) bool {
		if edges[x].weight != edges[y].weight {
			return edges[x].weight > edges[y].weight
		}
		if edges[x].a != edges[y].a {
			return edges[x].a < edges[y].a
		}
		return edges[x].b < edges[y].b
	})

	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(u int) int {
		if parent[u] != u {
			parent[u] = find(parent[u])
		}
		return parent[u]
	}
	union := func(u, v int) bool {
		ru, rv := find(u), find(v)
		if ru == rv {
			return false
		}
		if rank[ru] < rank[rv] {
			ru, rv = rv, ru
		}
		parent[rv] = ru
		if rank[ru] == rank[rv] {
			rank[ru]++
		}
		return true
	}

	adj := make([][]int, n)
	var treeEdges []jtEdge
	for _, e := range edges {
		if union(e.a, e.b) {
			treeEdges = append(treeEdges, e)
			adj[e.a] = append(adj[e.a], e.b)
			adj[e.b] = append(adj[e.b], e.a)
		}
	}

	// Root each component at its lowest clique index and lay out the
	// traversal orders, visiting children in ascending index.
	visited := make([]bool, n)
	for root := 0; root < n; root++ {
		if visited[root] {
			continue
		}
		stack := []int{root}
		visited[root] = true
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			jt.PreOrder = append(jt.PreOrder, c)
			children := append([]int{}, adj[c]...)
			sort.Ints(children)
			// reversed push keeps ascending visit order
			for i := len(children) - 1; i >= 0; i-- {
				ch := children[i]
				if visited[ch] {
					continue
				}
				visited[ch] = true
				jt.Parent[ch] = c
				jt.Separators[ch] = jt.Cliques[ch].Intersect(jt.Cliques[c])
				stack = append(stack, ch)
			}
		}
	}
	jt.PostOrder = make([]int, len(jt.PreOrder))
	for i, c := range jt.PreOrder {
		jt.PostOrder[len(jt.PreOrder)-1-i] = c
	}

	// Degenerate separators: a separator equal to an endpoint clique means
	// a nested relation.
	for i := 0; i < n; i++ {
		s := jt.Separators[i]
		if s == nil {
			continue
		}
		if s.Size() == jt.Cliques[i].Size() || s.Size() == jt.Cliques[jt.Parent[i]].Size() {
			jt.Valid = false
			return jt
		}
	}

	// Running intersection: for each variable, cliques containing it minus
	// spanning edges carrying it must leave exactly one piece.
	for v := 0; v < vl.Len(); v++ {
		vi := VariableIndex(v)
		cliqueCount := 0
		for _, c := range jt.Cliques {
			if c.Contains(vi) {
				cliqueCount++
			}
		}
		if cliqueCount <= 1 {
			continue
		}
		edgeCount := 0
		for i := 0; i < n; i++ {
			if jt.Separators[i] != nil && jt.Separators[i].Contains(vi) {
				edgeCount++
			}
		}
		if cliqueCount-edgeCount != 1 {
			jt.Valid = false
			return jt
		}
	}
	return jt
}

// SmallestCliqueContaining returns the index of the smallest clique holding
// v, or -1 when no clique covers it. Used for marginal queries.
func (jt *JunctionTree) SmallestCliqueContaining(v VariableIndex) int {
	best := -1
	for i, c := range jt.Cliques {
		if !c.Contains(v) {
			continue
		}
		if best == -1 || c.Size() < jt.Cliques[best].Size() {
			best = i
		}
	}
	return best
}
