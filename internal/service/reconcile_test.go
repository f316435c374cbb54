package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name        string
		current     []string
		desired     []string
		wantRemove  []string
		wantAdd     []string
		wantBoth    []string
	}{
		{
			name:       "overlapping sets",
			current:    []string{"alice", "bob", "carol"},
			desired:    []string{"bob", "carol", "dave"},
			wantRemove: []string{"alice"},
			wantAdd:    []string{"dave"},
			wantBoth:   []string{"bob", "carol"},
		},
		{
			name:       "disjoint sets",
			current:    []string{"alice"},
			desired:    []string{"bob"},
			wantRemove: []string{"alice"},
			wantAdd:    []string{"bob"},
			wantBoth:   []string{},
		},
		{
			name:       "identical sets",
			current:    []string{"alice", "bob"},
			desired:    []string{"bob", "alice"},
			wantRemove: []string{},
			wantAdd:    []string{},
			wantBoth:   []string{"alice", "bob"},
		},
		{
			name:       "duplicates collapse",
			current:    []string{"alice", "alice", "bob"},
			desired:    []string{"alice"},
			wantRemove: []string{"bob"},
			wantAdd:    []string{},
			wantBoth:   []string{"alice"},
		},
		{
			name:       "both empty",
			current:    nil,
			desired:    nil,
			wantRemove: []string{},
			wantAdd:    []string{},
			wantBoth:   []string{},
		},
		{
			name:       "empty current",
			current:    nil,
			desired:    []string{"alice"},
			wantRemove: []string{},
			wantAdd:    []string{"alice"},
			wantBoth:   []string{},
		},
		{
			name:       "empty desired",
			current:    []string{"alice"},
			desired:    nil,
			wantRemove: []string{"alice"},
			wantAdd:    []string{},
			wantBoth:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := Reconcile(tt.current, tt.desired)
			assert.ElementsMatch(t, tt.wantRemove, delta.OnlyCurrent)
			assert.ElementsMatch(t, tt.wantAdd, delta.OnlyDesired)
			assert.ElementsMatch(t, tt.wantBoth, delta.Both)
		})
	}
}

func TestReconcilePartitionsAreDisjoint(t *testing.T) {
	delta := Reconcile(
		[]string{"a", "b", "c", "d"},
		[]string{"c", "d", "e", "f"},
	)

	seen := make(map[string]int)
	for _, s := range [][]string{delta.OnlyCurrent, delta.OnlyDesired, delta.Both} {
		for _, id := range s {
			seen[id]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "identifier %q appears in more than one partition", id)
	}
	assert.Len(t, seen, 6)
}
