package clause_qa

import (
	"regexp"
	"sort"
	"strings"

	"github.com/turtacn/ContractLens/pkg/types/contract"
)

const (
	minSentenceLen   = 10
	keywordScore     = 2
	headerScore      = 3
	maxSelected      = 5
	fallbackExcerpt  = 1000
	excerptSeparator = ". "
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// ScoredSentence is a candidate sentence with its relevance score.
type ScoredSentence struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// ScoreSentences splits text into sentences and scores each against
// keywords. The result is sorted by score descending; equal scores keep
// document order.
func ScoreSentences(text string, keywords []string) []ScoredSentence {
	if text == "" {
		return nil
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}

	var scored []ScoredSentence
	for _, raw := range sentenceBoundary.Split(text, -1) {
		s := strings.TrimSpace(raw)
		if len(s) < minSentenceLen {
			continue
		}
		scored = append(scored, ScoredSentence{Text: s, Score: scoreSentence(s, lowered)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

func scoreSentence(s string, keywords []string) int {
	lower := strings.ToLower(s)
	score := 0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			score += keywordScore
		}
	}
	upper := strings.ToUpper(s)
	for _, h := range sectionHeaders {
		if strings.Contains(upper, h) {
			score += headerScore
			break
		}
	}
	return score
}

// SelectContext returns the excerpt of text most relevant to category: the
// five best positively scored sentences joined with ". ", or the first 1000
// characters when nothing scores.
func SelectContext(text string, category contract.Category) string {
	return selectWithKeywords(text, keywordsFor(category))
}

func selectWithKeywords(text string, keywords []string) string {
	scored := ScoreSentences(text, keywords)

	picked := make([]string, 0, maxSelected)
	for i := 0; i < len(scored) && i < maxSelected; i++ {
		if scored[i].Score > 0 {
			picked = append(picked, scored[i].Text)
		}
	}
	if len(picked) > 0 {
		return strings.Join(picked, excerptSeparator) + "."
	}
	return truncateRunes(text, fallbackExcerpt)
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

//Personal.AI order the ending
