package assessment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TextPredicate classifies a piece of cleaned model text.
type TextPredicate func(text string) bool

// Heuristics gathers the tunable limits and predicates used by the Validator.
type Heuristics struct {
	// MaxItems caps the number of question summaries kept.
	MaxItems int
	// MaxTextLength caps every cleaned text field, in characters.
	MaxTextLength int
	// MaxRawLength rejects raw output longer than this many characters.
	MaxRawLength int

	IsVerbatimCopy   TextPredicate
	IsSensitive      TextPredicate
	CoversDimensions TextPredicate
	IsNegative       TextPredicate
	IsPositive       TextPredicate
}

// Default limits.
const (
	DefaultMaxItems      = 30
	DefaultMaxTextLength = 1000
	DefaultMaxRawLength  = 50000

	// VerbatimMinLength is the summary length above which the verbatim-copy
	// check runs at all.
	VerbatimMinLength = 500
	// VerbatimMarkerThreshold is how many first-person markers mark a summary
	// as copied from the answer.
	VerbatimMarkerThreshold = 3
	// MinDimensionGroups is how many evaluation dimensions a reason must cover.
	MinDimensionGroups = 2
)

var (
	// FirstPersonMarkers are discourse markers typical of an applicant's own
	// answer rather than a third-person summary of it.
	FirstPersonMarkers = []string{"저는", "제가", "바랍니다", "생각합니다", "경험이 있습니다"}

	// SensitiveTerms indicate personal data leaking into a summary.
	SensitiveTerms = []string{
		"개인정보", "전화번호", "주소", "이메일", "비밀번호", "주민등록번호",
		"password", "email", "phone number",
	}

	// DimensionGroups are the evaluation dimensions a score reason should
	// mention. Each group lists equivalent spellings.
	DimensionGroups = [][]string{
		{"열정", "passion"},
		{"협업", "collaboration", "teamwork"},
		{"기술", "technical"},
		{"성장", "growth"},
	}

	// NegativeTerms and PositiveTerms drive the score/reason sentiment check.
	NegativeTerms = []string{"부족", "lacking", "insufficient"}
	PositiveTerms = []string{"우수", "excellent", "outstanding"}
)

// DefaultHeuristics returns the production limits and predicates.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		MaxItems:         DefaultMaxItems,
		MaxTextLength:    DefaultMaxTextLength,
		MaxRawLength:     DefaultMaxRawLength,
		IsVerbatimCopy:   LongerThan(VerbatimMinLength, MarkerCount(FirstPersonMarkers, VerbatimMarkerThreshold)),
		IsSensitive:      ContainsAny(SensitiveTerms...),
		CoversDimensions: CoversGroups(DimensionGroups, MinDimensionGroups),
		IsNegative:       ContainsAny(NegativeTerms...),
		IsPositive:       ContainsAny(PositiveTerms...),
	}
}

// ContainsAny matches text containing any of terms, case-insensitively.
func ContainsAny(terms ...string) TextPredicate {
	lowered := lowerAll(terms)
	return func(text string) bool {
		text = strings.ToLower(text)
		for _, term := range lowered {
			if strings.Contains(text, term) {
				return true
			}
		}
		return false
	}
}

// MarkerCount matches text containing at least threshold distinct markers.
func MarkerCount(markers []string, threshold int) TextPredicate {
	lowered := lowerAll(markers)
	return func(text string) bool {
		text = strings.ToLower(text)
		found := 0
		for _, m := range lowered {
			if strings.Contains(text, m) {
				found++
			}
		}
		return found >= threshold
	}
}

// CoversGroups matches text mentioning at least min of the keyword groups.
func CoversGroups(groups [][]string, min int) TextPredicate {
	matchers := make([]TextPredicate, len(groups))
	for i, g := range groups {
		matchers[i] = ContainsAny(g...)
	}
	return func(text string) bool {
		covered := 0
		for _, m := range matchers {
			if m(text) {
				covered++
			}
		}
		return covered >= min
	}
}

// LongerThan restricts p to text longer than n characters.
func LongerThan(n int, p TextPredicate) TextPredicate {
	return func(text string) bool {
		return utf8.RuneCountInString(text) > n && p(text)
	}
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	sentenceBoundary = regexp.MustCompile(`[.!?]`)
)

const ellipsis = "..."

// CleanText strips control characters other than tab and line breaks,
// collapses whitespace, trims, and caps the result at maxLen characters,
// ending capped text with an ellipsis.
func CleanText(s string, maxLen int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	return capRunes(s, maxLen)
}

// FirstSentence reduces text to its first sentence, capped at 100 characters.
func FirstSentence(text string) string {
	first := strings.TrimSpace(sentenceBoundary.Split(text, 2)[0])
	if first == "" {
		return capRunes(strings.TrimSpace(text), 100)
	}
	if utf8.RuneCountInString(first) > 100 {
		return capRunes(first, 100)
	}
	return first + "."
}

func capRunes(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	keep := maxLen - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + ellipsis
}
