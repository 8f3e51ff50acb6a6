package generation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	punctuationRun = regexp.MustCompile(`[\s\p{P}\p{S}]+`)
	roleMarker     = regexp.MustCompile(`(?im)(^|[\s"'])(system|assistant|human|user)\s*:|\[(system|assistant|inst)\]|</?(system|assistant)>`)

	markupReplacer = strings.NewReplacer(
		"```", "'''",
		"---", "-",
		"###", "",
		"**", "",
		"<!--", "<comment>",
		"-->", "</comment>",
	)
)

// StripControl removes control characters other than tab, newline and carriage return.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// SanitizeInput prepares applicant text for inclusion in a prompt: control
// characters are removed, whitespace collapsed, and markdown or comment
// delimiters that could break out of the prompt structure are neutralised.
func SanitizeInput(s string) string {
	s = StripControl(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = markupReplacer.Replace(s)
	return strings.TrimSpace(s)
}

// InjectionDetector reports whether applicant text looks like an attempt to
// steer the model. It is approximate by nature and swappable.
type InjectionDetector func(text string) bool

var (
	directCommandPatterns = []string{
		"ignore", "forget", "disregard", "override",
		"new instructions", "different task", "change role", "act as", "you are now",
		"pretend", "simulate", "roleplay", "behave as",
	}
	outputPatterns = []string{
		"output only", "respond with", "answer with", "reply with", "return only",
		"don't include", "bypass",
	}
)

func normalizeForDetection(s string) string {
	s = strings.ToLower(s)
	s = punctuationRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NewKeywordInjectionDetector builds a detector that matches any of the given
// phrases after lowercasing and folding punctuation into spaces on both sides.
func NewKeywordInjectionDetector(phrases ...string) InjectionDetector {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := normalizeForDetection(p); n != "" {
			normalized = append(normalized, " "+n+" ")
		}
	}
	return func(text string) bool {
		if strings.TrimSpace(text) == "" {
			return false
		}
		haystack := " " + normalizeForDetection(text) + " "
		for _, p := range normalized {
			if strings.Contains(haystack, p) {
				return true
			}
		}
		return false
	}
}

// RoleMarkerDetector flags chat-role prefixes and tags such as "system:" or
// "[INST]" embedded in applicant text.
func RoleMarkerDetector(text string) bool {
	return roleMarker.MatchString(text)
}

// AnyOf combines detectors; the result flags text when any of them does.
func AnyOf(detectors ...InjectionDetector) InjectionDetector {
	return func(text string) bool {
		for _, d := range detectors {
			if d != nil && d(text) {
				return true
			}
		}
		return false
	}
}

// DefaultInjectionDetector flags direct commands, role markers and output
// format manipulation.
var DefaultInjectionDetector = AnyOf(
	NewKeywordInjectionDetector(append(append([]string{}, directCommandPatterns...), outputPatterns...)...),
	RoleMarkerDetector,
)

// HasExcessiveRepetition reports whether s repeats the same character more
// than ten times in a row, a common trait of spam answers.
func HasExcessiveRepetition(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		prev = r
		run = 1
	}
	return false
}
