// Package tagger flags grants whose keywords mention a set of target terms.
//
// Matching is a plain lowercase substring test over keyword text. It is a
// heuristic: "neural networks" matches the term "neural network", and a
// keyword such as "brain-inspired neural networks" matches too. No stemming,
// tokenizing or semantic matching is attempted.
package tagger

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spektr-org/grantlens/engine"
)

// DefaultAITerms are the substrings that mark a keyword as AI-related.
var DefaultAITerms = []string{
	"artificial intelligence",
	"machine learning",
	"deep learning",
	"neural network",
	"neural networks",
}

// Column names the tagger reads.
const (
	KeywordID       = "Id"
	KeywordWord     = "Word"
	AssocGrant      = "GrantNumber"
	AssocKeyword    = "KeywordId"
	GrantIdentifier = "GrantNumber"
)

// Tagger matches keywords against a fixed list of lowercase terms.
type Tagger struct {
	terms  []string
	logger *zap.Logger
}

// Option configures a Tagger.
type Option func(*Tagger)

// WithLogger sets the logger used for match statistics.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tagger) {
		if l != nil {
			t.logger = l
		}
	}
}

// New returns a Tagger for terms. Empty terms are ignored; a Tagger with no
// terms matches nothing.
func New(terms []string, opts ...Option) *Tagger {
	t := &Tagger{logger: zap.NewNop()}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			t.terms = append(t.terms, term)
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Terms returns the normalized terms.
func (t *Tagger) Terms() []string {
	return append([]string(nil), t.terms...)
}

// anyTerm matches rows whose field, lowercased, contains any term.
type anyTerm struct {
	field string
	terms []string
}

func (p anyTerm) Match(view engine.RecordView, i int) bool {
	s, ok := view.Dimension(i, p.field)
	if !ok {
		return false
	}
	s = strings.ToLower(s)
	for _, term := range p.terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// MatchKeywords returns the keyword rows whose Word contains any term. The
// returned view also carries a lowercased "word" column.
func (t *Tagger) MatchKeywords(keywords engine.RecordView) (engine.RecordView, error) {
	if len(t.terms) == 0 {
		return engine.NewSliceView(nil), nil
	}
	matched, err := engine.Filter(keywords, anyTerm{field: KeywordWord, terms: t.terms})
	if err != nil {
		return nil, fmt.Errorf("match keywords: %w", err)
	}
	return engine.Derive(matched, "word", engine.Lower(KeywordWord)), nil
}

// GrantSet is the result of tagging: the matched keywords, the grant rows
// they resolve to, and the reconciled numeric ids.
type GrantSet struct {
	Keywords engine.RecordView
	Grants   engine.RecordView
	ids      map[int64]struct{}
}

// Len is the number of tagged grant rows.
func (s GrantSet) Len() int {
	if s.Grants == nil {
		return 0
	}
	return s.Grants.Len()
}

// Empty reports whether no grant was tagged.
func (s GrantSet) Empty() bool { return s.Len() == 0 }

// Contains reports whether the grant identifier resolves to a tagged id.
func (s GrantSet) Contains(grantNumber string) bool {
	id, ok := GrantID(grantNumber)
	if !ok {
		return false
	}
	_, hit := s.ids[id]
	return hit
}

// IDs returns the reconciled numeric ids referenced by matched keywords,
// ascending. Ids with no grant row are included.
func (s GrantSet) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TagGrants resolves matching keywords to grant rows through the
// Grant↔Keyword association. The association stores bare integer grant
// references while the grant table uses prefixed identifiers ("G-100"), so
// both sides are reduced to their numeric id before comparing.
func (t *Tagger) TagGrants(keywords, grantKeywords, grants engine.RecordView) (GrantSet, error) {
	matched, err := t.MatchKeywords(keywords)
	if err != nil {
		return GrantSet{}, err
	}
	set := GrantSet{Keywords: matched, Grants: engine.NewSliceView(nil), ids: map[int64]struct{}{}}
	if matched.Len() == 0 {
		t.logger.Debug("no keyword matched", zap.Strings("terms", t.terms))
		return set, nil
	}

	keywordIDs := engine.UniqueValues(matched, KeywordID)
	assoc, err := engine.Filter(grantKeywords, engine.OneOf(AssocKeyword, keywordIDs...))
	if err != nil {
		return GrantSet{}, fmt.Errorf("resolve keyword associations: %w", err)
	}
	for i := 0; i < assoc.Len(); i++ {
		if id, ok := assocID(assoc, i); ok {
			set.ids[id] = struct{}{}
		}
	}

	var rows []int
	for i := 0; i < grants.Len(); i++ {
		s, ok := engine.FieldText(grants, i, GrantIdentifier)
		if !ok {
			continue
		}
		if id, ok := GrantID(s); ok {
			if _, hit := set.ids[id]; hit {
				rows = append(rows, i)
			}
		}
	}
	set.Grants = engine.Select(grants, rows)

	t.logger.Debug("tagged grants",
		zap.Int("keywords", matched.Len()),
		zap.Int("references", len(set.ids)),
		zap.Int("grants", set.Grants.Len()))
	return set, nil
}

var digitRun = regexp.MustCompile(`\d+`)

// GrantID extracts the first run of digits of an identifier as an integer.
// "G-100" → 100, "100" → 100, "P3-0042" → 3.
func GrantID(s string) (int64, bool) {
	m := digitRun.FindString(s)
	if m == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// assocID reads an association grant reference. Integral numbers within
// the int64 range are used as-is ("100", "100.0"); anything else falls back
// to GrantID.
func assocID(view engine.RecordView, i int) (int64, bool) {
	if f, ok := engine.FieldNumber(view, i, AssocGrant); ok && f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return int64(f), true
	}
	s, ok := engine.FieldText(view, i, AssocGrant)
	if !ok {
		return 0, false
	}
	return GrantID(s)
}
