package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterYearRange(t *testing.T) {
	out, err := Filter(grantsView(), Range("CallDecisionYear", 2019, 2021))
	require.NoError(t, err)
	assert.Equal(t, []string{"G-2"}, column(out, "GrantNumber"))
}

func TestFilterRangeIsInclusive(t *testing.T) {
	out, err := Filter(grantsView(), Range("AmountGrantedAllSets", 50000, 120000))
	require.NoError(t, err)
	assert.Equal(t, []string{"G-1", "G-2"}, column(out, "GrantNumber"))
}

func TestFilterInvalidRange(t *testing.T) {
	_, err := Filter(grantsView(), Range("CallDecisionYear", 2021, 2019))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFilterMissingValues(t *testing.T) {
	t.Run("range excludes missing measure", func(t *testing.T) {
		out, err := Filter(wideGrantsView(), Range("AmountGrantedAllSets", 0, 1e9))
		require.NoError(t, err)
		assert.Equal(t, []string{"G-1", "G-2", "G-4", "G-5"}, column(out, "GrantNumber"))
	})

	t.Run("equals excludes missing dimension", func(t *testing.T) {
		out, err := Filter(wideGrantsView(), Equals("Institute", "ETHZ"))
		require.NoError(t, err)
		assert.Equal(t, []string{"G-1", "G-3"}, column(out, "GrantNumber"))
	})

	t.Run("sentinel keeps missing dimension", func(t *testing.T) {
		out, err := Filter(wideGrantsView(), Equals("Institute", All))
		require.NoError(t, err)
		assert.Equal(t, 5, out.Len())
	})

	t.Run("unparseable text is not a number", func(t *testing.T) {
		view := NewSliceView([]Record{
			rec(map[string]string{"id": "a", "year": "n/a"}, nil),
			rec(map[string]string{"id": "b", "year": "2020"}, nil),
		})
		out, err := Filter(view, Range("year", 2000, 2030))
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, column(out, "id"))
	})
}

func TestFilterEmptyTable(t *testing.T) {
	out, err := Filter(NewSliceView(nil), Range("CallDecisionYear", 2000, 2020), Equals("Institute", "UZH"))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestFilterComposition(t *testing.T) {
	p1 := []Predicate{Range("CallDecisionYear", 2019, 2021)}
	p2 := []Predicate{Equals("Institute", "ETHZ")}

	step1, err := Filter(wideGrantsView(), p1...)
	require.NoError(t, err)
	chained, err := Filter(step1, p2...)
	require.NoError(t, err)

	combined, err := Filter(wideGrantsView(), append(append([]Predicate{}, p1...), p2...)...)
	require.NoError(t, err)

	reversed1, err := Filter(wideGrantsView(), p2...)
	require.NoError(t, err)
	reversed, err := Filter(reversed1, p1...)
	require.NoError(t, err)

	assert.Equal(t, column(combined, "GrantNumber"), column(chained, "GrantNumber"))
	assert.Equal(t, column(combined, "GrantNumber"), column(reversed, "GrantNumber"))
	assert.Equal(t, []string{"G-3"}, column(combined, "GrantNumber"))
}

func TestFilterSetAndSubstring(t *testing.T) {
	t.Run("one of", func(t *testing.T) {
		out, err := Filter(wideGrantsView(), OneOf("GrantNumber", "G-5", "G-2"))
		require.NoError(t, err)
		assert.Equal(t, []string{"G-2", "G-5"}, column(out, "GrantNumber"))
	})

	t.Run("one of empty set", func(t *testing.T) {
		out, err := Filter(wideGrantsView(), OneOf("GrantNumber"))
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
	})

	t.Run("contains ignores case", func(t *testing.T) {
		out, err := Filter(wideGrantsView(), Contains("Institute", "eth"))
		require.NoError(t, err)
		assert.Equal(t, []string{"G-1", "G-3"}, column(out, "GrantNumber"))
	})

	t.Run("at least", func(t *testing.T) {
		out, err := Filter(wideGrantsView(), AtLeast("AmountGrantedAllSets", 100000))
		require.NoError(t, err)
		assert.Equal(t, []string{"G-2", "G-5"}, column(out, "GrantNumber"))
	})
}
