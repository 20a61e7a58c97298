package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sizes[T any](groups [][]T) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = len(g)
	}
	return out
}

func TestSplitEven(t *testing.T) {
	list := make([]int, 34)

	assert.Equal(t, []int{17, 17}, sizes(SplitEven(list, 2)))
	assert.Equal(t, []int{6, 6, 5}, sizes(SplitEven(list[:17], 3)))
	assert.Equal(t, []int{3, 3, 2}, sizes(SplitEven(list[:8], 3)))
	assert.Equal(t, []int{1, 1, 0}, sizes(SplitEven(list[:2], 3)))
	assert.Nil(t, SplitEven(list, 0))
}

func TestSplitEven_KeepsOrder(t *testing.T) {
	groups := SplitEven([]int{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5}}, groups)
}

func TestSplitSizes(t *testing.T) {
	list := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6, 7, 8, 9, 10}}, SplitSizes(list, 3))
	assert.Equal(t, []int{8, 2, 0}, sizes(SplitSizes(list, 8, 5)))
	assert.Equal(t, []int{10}, sizes(SplitSizes(list)))
}
