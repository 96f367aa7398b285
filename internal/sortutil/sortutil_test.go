package sortutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedUnique(t *testing.T) {
	in := []string{"b", "a", "b", "c", "a"}
	assert.Equal(t, []string{"a", "b", "c"}, SortedUnique(in))
	assert.Equal(t, []string{"b", "a", "b", "c", "a"}, in)
	assert.Empty(t, SortedUnique(nil))
}

func TestStrictlySorted(t *testing.T) {
	assert.True(t, StrictlySorted(nil))
	assert.True(t, StrictlySorted([]string{"a", "b"}))
	assert.False(t, StrictlySorted([]string{"a", "a"}))
	assert.False(t, StrictlySorted([]string{"b", "a"}))
}
