package pages

import (
	"fmt"

	"github.com/spektr-org/grantlens/engine"
)

func topicsWidgets(*Registry) []Widget {
	return []Widget{
		TextInput("search", "Search Keyword", ""),
		Slider("min_freq", "Minimum Keyword Frequency", 1, 500, 50),
		Slider("top_n", "Top N Keywords", 5, 50, 20),
	}
}

// keywordFrequencies counts how many grants carry each keyword, merging
// keywords that differ only in case. Most frequent first.
func keywordFrequencies(links, keywords engine.RecordView) []engine.Group {
	joined := engine.Join(links, keywords, "KeywordId", "Id")
	lowered := engine.Derive(joined, "word", engine.Lower("Word"))
	groups := engine.Aggregate(lowered, "word", "", engine.OpCount)
	engine.SortGroups(groups, engine.SortValueDesc)
	return groups
}

// buildTopics ranks keywords by frequency and weights a word cloud with the
// same counts.
func buildTopics(r *Registry, vals Values) (*Page, error) {
	ds := r.data
	topN := vals.Int("top_n")

	counts := engine.GroupsView(keywordFrequencies(ds.GrantKeywords(), ds.Keywords()), "word", "frequency")
	filtered, err := engine.Filter(counts,
		engine.Contains("word", vals.Text("search")),
		engine.AtLeast("frequency", vals.Number("min_freq")),
	)
	if err != nil {
		return nil, err
	}
	groups := make([]engine.Group, 0, filtered.Len())
	for i := 0; i < filtered.Len(); i++ {
		word, _ := filtered.Dimension(i, "word")
		freq, _ := filtered.Measure(i, "frequency")
		groups = append(groups, engine.Group{Key: word, Label: word, Value: freq, Count: int(freq)})
	}

	top := groups
	if len(top) > topN {
		top = top[:topN]
	}
	bar := groupsPanel(fmt.Sprintf("Top %d Keywords in Funded Research", topN), engine.KindBar,
		"Keyword", "Frequency", top, "No keywords match the current filters.")

	cloud := Panel{Title: "Word Cloud of All Keywords", Kind: engine.KindWordCloud}
	if len(groups) == 0 {
		cloud.Empty = true
		cloud.EmptyMessage = "Not enough keywords to generate a word cloud. Try changing your filters."
	} else {
		cloud.Words = make([]WordWeight, len(groups))
		for i, g := range groups {
			cloud.Words[i] = WordWeight{Word: g.Key, Weight: g.Value}
		}
	}

	return &Page{Panels: []Panel{bar, cloud}}, nil
}
