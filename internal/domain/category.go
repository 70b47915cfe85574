package domain

import (
	"context"
	"fmt"
)

// Category is a node of the content category tree. Depth 1 is root level.
// The core never mutates tree shape; categories are administered elsewhere.
type Category struct {
	ID       int64
	Name     string
	Depth    int
	ParentID *int64
	ChildIDs []int64
}

// CategoryTree is an id-indexed arena over categories. Walks are explicit
// loops over ids with a visited set, so corrupt parent links surface as
// ErrCategoryCycle instead of looping forever.
type CategoryTree struct {
	nodes map[int64]*Category
	roots []int64
}

// NewCategoryTree builds a tree from a flat list. Child order follows input
// order; callers pass categories already sorted for display. Every category
// must be reachable from a root: parent links that loop among non-root
// categories yield ErrCategoryCycle.
func NewCategoryTree(categories []Category) (*CategoryTree, error) {
	t := &CategoryTree{nodes: make(map[int64]*Category, len(categories))}

	for i := range categories {
		c := categories[i]
		c.ChildIDs = nil
		if _, dup := t.nodes[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %d", c.ID)
		}
		t.nodes[c.ID] = &c
	}

	for i := range categories {
		c := t.nodes[categories[i].ID]
		if c.ParentID == nil {
			t.roots = append(t.roots, c.ID)
			continue
		}
		parent, ok := t.nodes[*c.ParentID]
		if !ok {
			return nil, fmt.Errorf("category %d references parent %d: %w", c.ID, *c.ParentID, ErrCategoryNotFound)
		}
		parent.ChildIDs = append(parent.ChildIDs, c.ID)
	}

	if err := t.checkReachable(categories); err != nil {
		return nil, err
	}
	return t, nil
}

// checkReachable walks down from the roots. A category the walk never reaches
// sits on, or below, a parent cycle.
func (t *CategoryTree) checkReachable(categories []Category) error {
	reached := make(map[int64]struct{}, len(t.nodes))
	stack := append([]int64(nil), t.roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached[id] = struct{}{}
		stack = append(stack, t.nodes[id].ChildIDs...)
	}

	if len(reached) == len(t.nodes) {
		return nil
	}
	for _, c := range categories {
		if _, ok := reached[c.ID]; !ok {
			return fmt.Errorf("category %d is not reachable from any root: %w", c.ID, ErrCategoryCycle)
		}
	}
	return nil
}

// Get returns the category with the given id.
func (t *CategoryTree) Get(id int64) (*Category, bool) {
	c, ok := t.nodes[id]
	return c, ok
}

// Roots returns root category ids in input order.
func (t *CategoryTree) Roots() []int64 {
	return t.roots
}

func (t *CategoryTree) Len() int {
	return len(t.nodes)
}

// Ancestors returns the path from id up to its root, starting with id itself.
func (t *CategoryTree) Ancestors(id int64) ([]int64, error) {
	if _, ok := t.nodes[id]; !ok {
		return nil, fmt.Errorf("category %d: %w", id, ErrCategoryNotFound)
	}

	visited := make(map[int64]struct{})
	var path []int64
	for cur := &id; cur != nil; {
		if _, seen := visited[*cur]; seen {
			return nil, fmt.Errorf("ancestor walk from %d revisits %d: %w", id, *cur, ErrCategoryCycle)
		}
		node, ok := t.nodes[*cur]
		if !ok {
			return nil, fmt.Errorf("ancestor %d of %d: %w", *cur, id, ErrCategoryNotFound)
		}
		visited[*cur] = struct{}{}
		path = append(path, node.ID)
		cur = node.ParentID
	}
	return path, nil
}

// Descendants returns id and every category below it in post-order: each
// node appears after all of its children.
func (t *CategoryTree) Descendants(id int64) ([]int64, error) {
	if _, ok := t.nodes[id]; !ok {
		return nil, fmt.Errorf("category %d: %w", id, ErrCategoryNotFound)
	}

	type frame struct {
		id       int64
		expanded bool
	}

	visited := make(map[int64]struct{})
	var order []int64
	stack := []frame{{id: id}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.expanded {
			order = append(order, top.id)
			continue
		}
		if _, seen := visited[top.id]; seen {
			return nil, fmt.Errorf("descendant walk from %d revisits %d: %w", id, top.id, ErrCategoryCycle)
		}
		visited[top.id] = struct{}{}

		node, ok := t.nodes[top.id]
		if !ok {
			return nil, fmt.Errorf("descendant %d of %d: %w", top.id, id, ErrCategoryNotFound)
		}
		stack = append(stack, frame{id: top.id, expanded: true})
		for i := len(node.ChildIDs) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: node.ChildIDs[i]})
		}
	}
	return order, nil
}

// CategoryRepository loads the administered category list.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]Category, error)
}

// CategorySource provides the current category tree, typically cached.
type CategorySource interface {
	Tree(ctx context.Context) (*CategoryTree, error)
}
