package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The repository's statistics counts are built from these status sets, so
// active + resolved + rejected must cover every status exactly once or the
// aggregate totals stop adding up.
func TestStatusSetsPartitionAllStatuses(t *testing.T) {
	counted := make(map[Status]int, len(Statuses))
	for _, s := range ActiveStatuses {
		counted[s]++
	}
	for _, s := range ResolvedStatuses {
		counted[s]++
	}
	counted[StatusRejected]++

	require.Len(t, counted, len(Statuses))
	for _, s := range Statuses {
		assert.Equalf(t, 1, counted[s], "status %q must appear in exactly one set", s)
	}
}

func TestStatusAndCategoryValidity(t *testing.T) {
	for _, s := range Statuses {
		assert.Truef(t, s.IsValid(), "status %q should be valid", s)
	}
	assert.False(t, Status("archived").IsValid())

	for _, c := range Categories {
		assert.Truef(t, c.IsValid(), "category %q should be valid", c)
	}
	assert.False(t, Category("meteor").IsValid())
}

func TestListFilterNormalize(t *testing.T) {
	out := ListFilter{Page: 0, Limit: 1000}
	out.Normalize()
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, DefaultPageLimit, out.Limit)

	in := ListFilter{Page: 3, Limit: 50}
	in.Normalize()
	assert.Equal(t, 3, in.Page)
	assert.Equal(t, 50, in.Limit)
}
