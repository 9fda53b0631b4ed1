package message

import "sort"

// Order is the sibling ordering policy applied while building a tree.
type Order string

const (
	OrderOldest Order = "oldest"
	OrderNewest Order = "newest"
)

// Visibility selects which records a caller wants in a tree. The builder
// itself never filters; the thread service applies this before building.
type Visibility struct {
	IncludeDeleted bool `json:"include_deleted"`
	IncludeDrafts  bool `json:"include_drafts"`
}

var (
	// VisibleOnly is the reader-facing default.
	VisibleOnly = Visibility{}
	// Everything includes deleted and draft records, used for closure
	// computation so restore can reach already-deleted descendants.
	Everything = Visibility{IncludeDeleted: true, IncludeDrafts: true}
)

func (v Visibility) Admits(m *Message) bool {
	if m.Deleted && !v.IncludeDeleted {
		return false
	}
	if m.Draft && !v.IncludeDrafts {
		return false
	}
	return true
}

type Node struct {
	Message  *Message `json:"message"`
	Children []*Node  `json:"children,omitempty"`
}

// Tree is the materialized reply structure of one thread. Roots holds the
// genuine thread root first, followed by any orphans promoted to
// secondary roots. The node arena is indexed by message id so subtree
// traversals stay O(subtree size).
type Tree struct {
	Roots []*Node `json:"roots"`

	index map[uint64]*Node
}

// BuildTree links a flat record set into an ordered tree. A record whose
// declared parent is absent from the input set is promoted to a secondary
// root rather than dropped. Identical inputs always produce structurally
// identical trees: siblings are ordered by creation time per the given
// Order, with the monotonic message id breaking ties.
func BuildTree(records []*Message, order Order) *Tree {
	byID := make(map[uint64]*Message, len(records))
	for _, m := range records {
		byID[m.ID] = m
	}

	byParent := make(map[uint64][]*Message)
	var roots []*Message
	for _, m := range records {
		if m.ParentID == nil {
			roots = append(roots, m)
			continue
		}
		if _, ok := byID[*m.ParentID]; !ok {
			// Orphan: parent deleted or filtered out of the input set.
			roots = append(roots, m)
			continue
		}
		byParent[*m.ParentID] = append(byParent[*m.ParentID], m)
	}

	sortSiblings(roots, order)
	for _, siblings := range byParent {
		sortSiblings(siblings, order)
	}

	t := &Tree{index: make(map[uint64]*Node, len(records))}
	for _, root := range roots {
		t.Roots = append(t.Roots, t.link(root, byParent))
	}
	return t
}

func (t *Tree) link(m *Message, byParent map[uint64][]*Message) *Node {
	n := &Node{Message: m}
	t.index[m.ID] = n
	for _, child := range byParent[m.ID] {
		n.Children = append(n.Children, t.link(child, byParent))
	}
	return n
}

func sortSiblings(siblings []*Message, order Order) {
	sort.SliceStable(siblings, func(i, j int) bool {
		a, b := siblings[i], siblings[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		if order == OrderNewest {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// Node returns the tree node holding the given message id, or nil. The
// index is rebuilt lazily after a tree round-trips through the cache.
func (t *Tree) Node(id uint64) *Node {
	if t.index == nil {
		t.index = make(map[uint64]*Node)
		var walk func(n *Node)
		walk = func(n *Node) {
			t.index[n.Message.ID] = n
			for _, c := range n.Children {
				walk(c)
			}
		}
		for _, r := range t.Roots {
			walk(r)
		}
	}
	return t.index[id]
}

// Subtree returns the id closure of the given anchor: the anchor itself
// followed by all transitive descendants in depth-first order. A missing
// anchor yields nil.
func (t *Tree) Subtree(anchorID uint64) []uint64 {
	n := t.Node(anchorID)
	if n == nil {
		return nil
	}
	var ids []uint64
	var walk func(n *Node)
	walk = func(n *Node) {
		ids = append(ids, n.Message.ID)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return ids
}

// Size reports the total node count across all roots.
func (t *Tree) Size() int {
	var count func(n *Node) int
	count = func(n *Node) int {
		total := 1
		for _, c := range n.Children {
			total += count(c)
		}
		return total
	}
	total := 0
	for _, r := range t.Roots {
		total += count(r)
	}
	return total
}
