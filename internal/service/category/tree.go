package category

import (
	"sort"

	"coinboard/internal/domain"
)

// TreeStats reports rows BuildTree could not place.
type TreeStats struct {
	// Truncated counts nodes omitted because they sit below maxDepth.
	Truncated int
	// Unreachable counts rows with no path to a root (dangling parent or a cycle).
	Unreachable int
}

// BuildTree assembles a flat category list into root-first trees ordered by name.
// Roots have depth 1; nothing deeper than maxDepth is emitted.
func BuildTree(flat []domain.Category, maxDepth int) ([]domain.CategoryNode, TreeStats) {
	children := make(map[int64][]domain.Category, len(flat))
	var roots []domain.Category
	for _, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}
	sortCategories(roots)
	for k := range children {
		sortCategories(children[k])
	}

	var stats TreeStats
	placed := 0
	var build func(c domain.Category, depth int) domain.CategoryNode
	build = func(c domain.Category, depth int) domain.CategoryNode {
		placed++
		node := domain.CategoryNode{Category: c, Depth: depth, Children: []domain.CategoryNode{}}
		kids := children[c.ID]
		if depth >= maxDepth {
			stats.Truncated += countSubtree(kids, children)
			return node
		}
		for _, k := range kids {
			node.Children = append(node.Children, build(k, depth+1))
		}
		return node
	}

	out := make([]domain.CategoryNode, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r, 1))
	}
	stats.Unreachable = len(flat) - placed - stats.Truncated
	return out, stats
}

func countSubtree(kids []domain.Category, children map[int64][]domain.Category) int {
	n := 0
	seen := map[int64]bool{}
	stack := append([]domain.Category(nil), kids...)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		n++
		stack = append(stack, children[c.ID]...)
	}
	return n
}

func sortCategories(cs []domain.Category) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Name != cs[j].Name {
			return cs[i].Name < cs[j].Name
		}
		return cs[i].ID < cs[j].ID
	})
}
