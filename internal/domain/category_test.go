package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// Life(1) -> Food(2) -> Cafe(4)
//         -> Travel(3)
// Tech(5)
func testCategories() []Category {
	return []Category{
		{ID: 1, Name: "Life", Depth: 1},
		{ID: 2, Name: "Food", Depth: 2, ParentID: ptr(int64(1))},
		{ID: 3, Name: "Travel", Depth: 2, ParentID: ptr(int64(1))},
		{ID: 4, Name: "Cafe", Depth: 3, ParentID: ptr(int64(2))},
		{ID: 5, Name: "Tech", Depth: 1},
	}
}

func TestNewCategoryTree(t *testing.T) {
	tree, err := NewCategoryTree(testCategories())
	require.NoError(t, err)

	assert.Equal(t, 5, tree.Len())
	assert.Equal(t, []int64{1, 5}, tree.Roots())

	life, ok := tree.Get(1)
	require.True(t, ok)
	assert.Equal(t, []int64{2, 3}, life.ChildIDs)

	_, ok = tree.Get(99)
	assert.False(t, ok)
}

func TestNewCategoryTree_UnknownParent(t *testing.T) {
	_, err := NewCategoryTree([]Category{{ID: 1, ParentID: ptr(int64(7))}})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestNewCategoryTree_DuplicateID(t *testing.T) {
	_, err := NewCategoryTree([]Category{{ID: 1}, {ID: 1}})
	assert.Error(t, err)
}

func TestCategoryTree_Ancestors(t *testing.T) {
	tree, err := NewCategoryTree(testCategories())
	require.NoError(t, err)

	path, err := tree.Ancestors(4)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2, 1}, path)

	path, err = tree.Ancestors(5)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, path)

	_, err = tree.Ancestors(42)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestNewCategoryTree_UnreachableCycle(t *testing.T) {
	tests := []struct {
		name       string
		categories []Category
	}{
		{
			name: "two-node loop beside a valid root",
			categories: []Category{
				{ID: 1, Name: "Life", Depth: 1},
				{ID: 2, Name: "a", Depth: 2, ParentID: ptr(int64(3))},
				{ID: 3, Name: "b", Depth: 2, ParentID: ptr(int64(2))},
			},
		},
		{
			name: "self parent",
			categories: []Category{
				{ID: 1, Name: "Life", Depth: 1},
				{ID: 2, Name: "a", Depth: 2, ParentID: ptr(int64(2))},
			},
		},
		{
			name: "child hanging off a loop",
			categories: []Category{
				{ID: 1, Name: "Life", Depth: 1},
				{ID: 2, Name: "a", Depth: 2, ParentID: ptr(int64(3))},
				{ID: 3, Name: "b", Depth: 2, ParentID: ptr(int64(2))},
				{ID: 4, Name: "c", Depth: 3, ParentID: ptr(int64(2))},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCategoryTree(tt.categories)
			assert.ErrorIs(t, err, ErrCategoryCycle)
		})
	}
}

func TestCategoryTree_Ancestors_Cycle(t *testing.T) {
	tree := &CategoryTree{nodes: map[int64]*Category{
		1: {ID: 1, ParentID: ptr(int64(2))},
		2: {ID: 2, ParentID: ptr(int64(1))},
	}}

	_, err := tree.Ancestors(1)
	assert.ErrorIs(t, err, ErrCategoryCycle)
}

func TestCategoryTree_Descendants_PostOrder(t *testing.T) {
	tree, err := NewCategoryTree(testCategories())
	require.NoError(t, err)

	order, err := tree.Descendants(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2, 3, 1}, order)

	order, err = tree.Descendants(4)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, order)
}

func TestCategoryTree_Descendants_Cycle(t *testing.T) {
	tree := &CategoryTree{nodes: map[int64]*Category{
		1: {ID: 1, ChildIDs: []int64{2}},
		2: {ID: 2, ChildIDs: []int64{1}},
	}}

	_, err := tree.Descendants(1)
	assert.ErrorIs(t, err, ErrCategoryCycle)
}
