package cache

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/phrazzld/recruit-summary/internal/domain"
)

// EmptyKey is the key of a payload without questions.
const EmptyKey = "empty"

var (
	enumerant     = regexp.MustCompile(`\d+\.`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// NormalizeQuestion lowercases q, strips numeric enumerants such as "1." and
// collapses whitespace.
func NormalizeQuestion(q string) string {
	q = strings.ToLower(q)
	q = enumerant.ReplaceAllString(q, "")
	q = whitespaceRun.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

// KeyFor derives the cache key from the payload's questions in order.
// Answers never contribute. The key is "count:N|" followed by one xxhash
// digest per normalized question.
func KeyFor(payload []domain.QuestionAnswer) string {
	if len(payload) == 0 {
		return EmptyKey
	}
	var b strings.Builder
	b.WriteString("count:")
	b.WriteString(strconv.Itoa(len(payload)))
	b.WriteByte('|')
	for _, qa := range payload {
		b.WriteString(strconv.FormatUint(xxhash.Sum64String(NormalizeQuestion(qa.Question)), 16))
		b.WriteByte(',')
	}
	return b.String()
}
