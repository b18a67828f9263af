package tagger

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spektr-org/grantlens/engine"
)

func keywords(words map[string]string) engine.RecordView {
	ids := make([]string, 0, len(words))
	for id := range words {
		ids = append(ids, id)
	}
	records := make([]engine.Record, 0, len(words))
	sort.Strings(ids)
	for _, id := range ids {
		records = append(records, engine.Record{Dimensions: map[string]string{"Id": id, "Word": words[id]}})
	}
	return engine.NewTableView(records, []string{"Id", "Word"}, nil)
}

func assoc(pairs ...[2]string) engine.RecordView {
	records := make([]engine.Record, 0, len(pairs))
	for _, p := range pairs {
		records = append(records, engine.Record{Dimensions: map[string]string{"GrantNumber": p[0], "KeywordId": p[1]}})
	}
	return engine.NewTableView(records, []string{"GrantNumber", "KeywordId"}, nil)
}

func grants(numbers ...string) engine.RecordView {
	records := make([]engine.Record, 0, len(numbers))
	for _, n := range numbers {
		records = append(records, engine.Record{Dimensions: map[string]string{"GrantNumber": n}})
	}
	return engine.NewTableView(records, []string{"GrantNumber"}, nil)
}

func words(view engine.RecordView) []string {
	out := make([]string, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		s, _ := view.Dimension(i, "Word")
		out = append(out, s)
	}
	return out
}

func TestMatchKeywordsIgnoresCase(t *testing.T) {
	kw := keywords(map[string]string{"1": "Gender Studies", "2": "gender equality", "3": "Ecology"})
	matched, err := New([]string{"gender"}).MatchKeywords(kw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gender Studies", "gender equality"}, words(matched))

	lower, ok := matched.Dimension(0, "word")
	require.True(t, ok)
	assert.Equal(t, "gender studies", lower)
}

func TestMatchKeywordsSubstringHeuristic(t *testing.T) {
	kw := keywords(map[string]string{
		"1": "Neural Networks",
		"2": "brain-inspired neural networks",
		"3": "Machine-Learning",
		"4": "Deep Learning Theory",
		"5": "neural",
	})
	matched, err := New(DefaultAITerms).MatchKeywords(kw)
	require.NoError(t, err)

	t.Run("superstrings match", func(t *testing.T) {
		assert.Contains(t, words(matched), "Neural Networks")
		assert.Contains(t, words(matched), "Deep Learning Theory")
	})

	t.Run("embedded text is a false positive we keep", func(t *testing.T) {
		assert.Contains(t, words(matched), "brain-inspired neural networks")
	})

	t.Run("no token or hyphen normalization", func(t *testing.T) {
		assert.NotContains(t, words(matched), "Machine-Learning")
		assert.NotContains(t, words(matched), "neural")
	})
}

func TestTagGrantsReconcilesIdentifiers(t *testing.T) {
	kw := keywords(map[string]string{"1": "Machine learning", "2": "Ecology"})
	gk := assoc([2]string{"100", "1"}, [2]string{"300", "1"}, [2]string{"200", "2"})
	set, err := New(DefaultAITerms, WithLogger(zaptest.NewLogger(t))).TagGrants(kw, gk, grants("G-100", "G-200"))
	require.NoError(t, err)

	require.Equal(t, 1, set.Len())
	g, _ := set.Grants.Dimension(0, "GrantNumber")
	assert.Equal(t, "G-100", g)
	assert.Equal(t, []int64{100, 300}, set.IDs(), "300 is referenced but has no grant row")
	assert.True(t, set.Contains("G-100"))
	assert.False(t, set.Contains("G-200"))
	assert.False(t, set.Contains("no digits"))
}

func TestTagGrantsNoMatchIsEmpty(t *testing.T) {
	kw := keywords(map[string]string{"1": "Ecology"})
	set, err := New(DefaultAITerms).TagGrants(kw, assoc([2]string{"100", "1"}), grants("G-100"))
	require.NoError(t, err)
	assert.True(t, set.Empty())
	assert.Empty(t, set.IDs())
	assert.Equal(t, 0, set.Keywords.Len())
}

func TestTagGrantsNoTerms(t *testing.T) {
	kw := keywords(map[string]string{"1": "Machine learning"})
	set, err := New([]string{" ", ""}).TagGrants(kw, assoc([2]string{"100", "1"}), grants("G-100"))
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

func TestTagGrantsNumericAssociation(t *testing.T) {
	kw := keywords(map[string]string{"7": "deep learning"})
	gk := engine.NewTableView([]engine.Record{
		{Dimensions: map[string]string{"KeywordId": "7"}, Measures: map[string]float64{"GrantNumber": 42}},
	}, []string{"KeywordId"}, []string{"GrantNumber"})
	set, err := New(DefaultAITerms).TagGrants(kw, gk, grants("G-42", "G-420"))
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.True(t, set.Contains("G-42"))
}

func TestTagGrantsIgnoresOutOfRangeReferences(t *testing.T) {
	kw := keywords(map[string]string{"7": "deep learning"})
	gk := engine.NewTableView([]engine.Record{
		{Dimensions: map[string]string{"KeywordId": "7"}, Measures: map[string]float64{"GrantNumber": math.Inf(1)}},
		{Dimensions: map[string]string{"KeywordId": "7"}, Measures: map[string]float64{"GrantNumber": 1e20}},
		{Dimensions: map[string]string{"KeywordId": "7"}, Measures: map[string]float64{"GrantNumber": -1e19}},
	}, []string{"KeywordId"}, []string{"GrantNumber"})
	set, err := New(DefaultAITerms).TagGrants(kw, gk, grants("G-1"))
	require.NoError(t, err)
	assert.Empty(t, set.IDs())
	assert.True(t, set.Empty())
}

func TestGrantID(t *testing.T) {
	cases := map[string]int64{
		"G-100":   100,
		"100":     100,
		"P3-0042": 3,
		"abc12x9": 12,
	}
	for in, want := range cases {
		got, ok := GrantID(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := GrantID("G-")
	assert.False(t, ok)
}
