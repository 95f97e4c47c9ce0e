package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsUniqueAndSortable(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	var prev string
	for i := 0; i < 100; i++ {
		s := New()
		assert.Len(t, s, 26)
		assert.False(t, seen[s], "duplicate ulid %s", s)
		seen[s] = true
		if prev != "" {
			assert.Less(t, prev, s)
		}
		prev = s
	}
}

func TestDerivedIsStable(t *testing.T) {
	t.Parallel()

	a := Derived("FIFO", "e1", "e2")
	b := Derived("FIFO", "e1", "e2")
	assert.Equal(t, a, b)
	assert.Len(t, a, 24)

	// Part order and part values both matter.
	assert.NotEqual(t, a, Derived("FIFO", "e2", "e1"))
	assert.NotEqual(t, a, Derived("PER_POSITION", "e1", "e2"))
}
