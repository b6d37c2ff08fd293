package repository

import "sort"

// TreeNode is the slice of a category row needed to rebuild the tree.
type TreeNode struct {
	ID       uint
	ParentID *uint
	Position int
	Lft      int `gorm:"column:_lft"`
	Rgt      int `gorm:"column:_rgt"`
	Depth    int
}

type Bounds struct {
	Lft   int
	Rgt   int
	Depth int
}

// NestedSetBounds numbers the forest described by nodes depth-first.
// Siblings are ordered by position, then id. Nodes whose parent is missing
// are treated as roots, and so is the lowest id of any cycle.
func NestedSetBounds(nodes []TreeNode) map[uint]Bounds {
	known := make(map[uint]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	children := make(map[uint][]TreeNode)
	var roots []TreeNode
	for _, n := range nodes {
		if n.ParentID == nil || !known[*n.ParentID] || *n.ParentID == n.ID {
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	less := func(s []TreeNode) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].Position != s[j].Position {
				return s[i].Position < s[j].Position
			}
			return s[i].ID < s[j].ID
		}
	}
	sort.Slice(roots, less(roots))
	for id := range children {
		s := children[id]
		sort.Slice(s, less(s))
	}

	bounds := make(map[uint]Bounds, len(nodes))
	counter := 1

	var walk func(n TreeNode, depth int)
	walk = func(n TreeNode, depth int) {
		lft := counter
		counter++
		bounds[n.ID] = Bounds{Lft: lft, Depth: depth}
		for _, c := range children[n.ID] {
			if _, seen := bounds[c.ID]; seen {
				continue
			}
			walk(c, depth+1)
		}
		bounds[n.ID] = Bounds{Lft: lft, Rgt: counter, Depth: depth}
		counter++
	}

	for _, r := range roots {
		walk(r, 0)
	}

	// Whatever is left hangs off a cycle; cut it at its lowest id.
	if len(bounds) < len(nodes) {
		rest := make([]TreeNode, 0, len(nodes)-len(bounds))
		for _, n := range nodes {
			if _, ok := bounds[n.ID]; !ok {
				rest = append(rest, n)
			}
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })
		for _, n := range rest {
			if _, ok := bounds[n.ID]; !ok {
				walk(n, 0)
			}
		}
	}

	return bounds
}
