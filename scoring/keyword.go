package scoring

import (
	"regexp"
	"strings"
	"sync"

	"github.com/corvana/dispatch/types"
)

// Scorer computes a base relevance score for an item/worker pair.
//
// Implementations must be deterministic and side-effect free: the
// coordinator relies on identical inputs producing identical output.
type Scorer interface {
	// Score returns the base relevance score, always >= 0.
	Score(item *types.WorkItem, profile *types.WorkerProfile) float64
}

// Default scoring weights. Patterns are twice as informative as bare
// keywords, and a hit in the title counts double a hit in the body.
const (
	DefaultKeywordWeight   = 1.0
	DefaultPatternWeight   = 2.0
	DefaultTitleMultiplier = 2.0
)

// KeywordScorer implements Scorer with weighted keyword and pattern
// matching against the item's title and body.
//
// The score is a weighted sum: each keyword occurrence contributes
// KeywordWeight, each regular-expression match contributes PatternWeight,
// and title occurrences are counted at TitleMultiplier times the body
// weight. Capability weights multiply on top. Matching is
// case-insensitive.
type KeywordScorer struct {
	// KeywordWeight is the per-occurrence weight for plain keywords.
	KeywordWeight float64

	// PatternWeight is the per-match weight for pattern capabilities.
	PatternWeight float64

	// TitleMultiplier scales title hits relative to body hits.
	TitleMultiplier float64

	// compiled memoizes pattern compilation. Caching does not affect
	// determinism; a pattern that fails to compile contributes nothing.
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

// Compile-time assertion that KeywordScorer implements Scorer.
var _ Scorer = (*KeywordScorer)(nil)

// NewKeywordScorer creates a scorer with the default weights.
//
// Returns:
//   - *KeywordScorer: Scorer with keyword weight 1, pattern weight 2,
//     title multiplier 2
//
// Example:
//
//	scorer := scoring.NewKeywordScorer()
//	base := scorer.Score(item, profile)
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{
		KeywordWeight:   DefaultKeywordWeight,
		PatternWeight:   DefaultPatternWeight,
		TitleMultiplier: DefaultTitleMultiplier,
		compiled:        make(map[string]*regexp.Regexp),
	}
}

// Score computes the base relevance score for item against profile.
//
// Parameters:
//   - item: Work item whose title and body are matched
//   - profile: Worker whose capabilities are evaluated
//
// Returns:
//   - float64: Weighted sum of matches, 0 when nothing matches
func (s *KeywordScorer) Score(item *types.WorkItem, profile *types.WorkerProfile) float64 {
	title := strings.ToLower(item.Title)
	body := strings.ToLower(item.Body)

	var score float64
	for _, c := range profile.Capabilities {
		capWeight := c.Weight
		if capWeight == 0 {
			capWeight = 1
		}

		var titleHits, bodyHits int
		var kindWeight float64
		if c.Pattern {
			kindWeight = s.PatternWeight
			re := s.pattern(c.Term)
			if re == nil {
				continue
			}
			titleHits = len(re.FindAllStringIndex(title, -1))
			bodyHits = len(re.FindAllStringIndex(body, -1))
		} else {
			kindWeight = s.KeywordWeight
			term := strings.ToLower(c.Term)
			if term == "" {
				continue
			}
			titleHits = strings.Count(title, term)
			bodyHits = strings.Count(body, term)
		}

		score += capWeight * kindWeight * (s.TitleMultiplier*float64(titleHits) + float64(bodyHits))
	}

	return score
}

// pattern returns the compiled case-insensitive regexp for term, or nil
// if the term does not compile.
func (s *KeywordScorer) pattern(term string) *regexp.Regexp {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compiled == nil {
		s.compiled = make(map[string]*regexp.Regexp)
	}
	if re, ok := s.compiled[term]; ok {
		return re
	}

	re, err := regexp.Compile("(?i)" + term)
	if err != nil {
		re = nil
	}
	s.compiled[term] = re

	return re
}
