package assessment

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/tidwall/gjson"
)

// Placeholder score reasons.
const (
	ReasonUnavailable = "Unable to provide a score rationale."
	ReasonNeedsReview = "Score rationale did not cover the expected evaluation areas. Manual review required."
)

// Neutral band targets applied when score and content disagree.
const (
	inconsistentHighScore = 70
	inconsistentLowScore  = 40
)

var (
	errEmptyOutput    = errors.New("empty model output")
	errOutputTooLarge = errors.New("model output exceeds size limit")
	errNoJSONObject   = errors.New("no JSON object found")
	errMissingField   = errors.New("required field missing")
	errFieldType      = errors.New("field has unexpected type")
)

// Validator parses and cleans model output. It holds no mutable state, so one
// instance is safe for concurrent use and Validate is idempotent.
type Validator struct {
	h      Heuristics
	logger *slog.Logger
}

// Option customises a Validator.
type Option func(*Heuristics)

// WithHeuristics replaces the whole heuristic set. Nil predicates and
// non-positive limits keep their defaults.
func WithHeuristics(h Heuristics) Option {
	return func(dst *Heuristics) {
		if h.MaxItems > 0 {
			dst.MaxItems = h.MaxItems
		}
		if h.MaxTextLength > 0 {
			dst.MaxTextLength = h.MaxTextLength
		}
		if h.MaxRawLength > 0 {
			dst.MaxRawLength = h.MaxRawLength
		}
		if h.IsVerbatimCopy != nil {
			dst.IsVerbatimCopy = h.IsVerbatimCopy
		}
		if h.IsSensitive != nil {
			dst.IsSensitive = h.IsSensitive
		}
		if h.CoversDimensions != nil {
			dst.CoversDimensions = h.CoversDimensions
		}
		if h.IsNegative != nil {
			dst.IsNegative = h.IsNegative
		}
		if h.IsPositive != nil {
			dst.IsPositive = h.IsPositive
		}
	}
}

// NewValidator creates a Validator with DefaultHeuristics adjusted by opts.
func NewValidator(logger *slog.Logger, opts ...Option) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	h := DefaultHeuristics()
	for _, opt := range opts {
		opt(&h)
	}
	return &Validator{
		h:      h,
		logger: logger.With("component", "response_validator"),
	}
}

// rawResult is the parsed but not yet cleaned model output.
type rawResult struct {
	items  []domain.QuestionSummary
	score  int
	reason string
}

// Validate converts raw model output into a well-formed result. It never
// fails: unparseable output yields domain.NewFallbackResult.
func (v *Validator) Validate(raw string) *domain.AssessmentResult {
	parsed, err := v.parse(raw)
	if err != nil {
		v.logger.Warn("model output rejected, using fallback result",
			"error", err,
			"raw_length", len(raw))
		return domain.NewFallbackResult()
	}

	score := moderateScore(parsed.score)
	items := v.cleanItems(parsed.items)
	reason := v.cleanReason(parsed.reason)

	if issue := v.inconsistency(items, score, reason); issue != "" {
		adjusted := adjustScore(score)
		v.logger.Warn("inconsistent model output corrected",
			"issue", issue,
			"score", score,
			"adjusted_score", adjusted)
		score = adjusted
	}

	return &domain.AssessmentResult{
		QuestionSummaries: items,
		ScoreOutOf100:     score,
		ScoreReason:       reason,
	}
}

func (v *Validator) parse(raw string) (rawResult, error) {
	if strings.TrimSpace(raw) == "" {
		return rawResult{}, errEmptyOutput
	}
	if utf8.RuneCountInString(raw) > v.h.MaxRawLength {
		return rawResult{}, errOutputTooLarge
	}

	doc, ok := ExtractJSONObject(raw)
	if !ok {
		return rawResult{}, errNoJSONObject
	}

	fields := gjson.GetMany(doc, "questionSummaries", "scoreOutOf100", "scoreReason")
	for i, name := range []string{"questionSummaries", "scoreOutOf100", "scoreReason"} {
		if !fields[i].Exists() {
			return rawResult{}, fmt.Errorf("%w: %s", errMissingField, name)
		}
	}

	summaries, score, reason := fields[0], fields[1], fields[2]

	var out rawResult
	switch {
	case summaries.Type == gjson.Null:
	case summaries.IsArray():
		for _, item := range summaries.Array() {
			if !item.IsObject() {
				continue
			}
			summary := item.Get("aiSummary")
			if !summary.Exists() {
				summary = item.Get("summary")
			}
			out.items = append(out.items, domain.QuestionSummary{
				Question: item.Get("question").String(),
				Summary:  summary.String(),
			})
		}
	default:
		return rawResult{}, fmt.Errorf("%w: questionSummaries", errFieldType)
	}

	switch score.Type {
	case gjson.Null:
	case gjson.Number:
		out.score = clampScore(score.Float())
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(score.Str), 64)
		if err != nil {
			return rawResult{}, fmt.Errorf("%w: scoreOutOf100", errFieldType)
		}
		out.score = clampScore(f)
	default:
		return rawResult{}, fmt.Errorf("%w: scoreOutOf100", errFieldType)
	}

	if reason.Type != gjson.Null {
		out.reason = reason.String()
	}
	return out, nil
}

func clampScore(f float64) int {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 100:
		return 100
	}
	return int(f)
}

// moderateScore pulls the exact extremes 0 and 100 to 10 and 95; genuine
// extremes are rare and usually signal a degenerate reply.
func moderateScore(score int) int {
	switch score {
	case 0:
		return 10
	case 100:
		return 95
	}
	return score
}

func (v *Validator) cleanItems(items []domain.QuestionSummary) []domain.QuestionSummary {
	cleaned := make([]domain.QuestionSummary, 0, len(items))
	for _, item := range items {
		if len(cleaned) >= v.h.MaxItems {
			break
		}
		question := CleanText(item.Question, v.h.MaxTextLength)
		summary := CleanText(item.Summary, v.h.MaxTextLength)
		if question == "" || summary == "" {
			continue
		}
		if v.h.IsVerbatimCopy(summary) {
			v.logger.Warn("summary looks copied from the answer, truncating",
				"summary_length", utf8.RuneCountInString(summary))
			summary = FirstSentence(summary)
		}
		if v.h.IsSensitive(summary) {
			v.logger.Warn("summary dropped for sensitive content")
			continue
		}
		cleaned = append(cleaned, domain.QuestionSummary{Question: question, Summary: summary})
	}
	return cleaned
}

func (v *Validator) cleanReason(reason string) string {
	cleaned := CleanText(reason, v.h.MaxTextLength)
	if cleaned == "" {
		return ReasonUnavailable
	}
	if !v.h.CoversDimensions(cleaned) {
		v.logger.Warn("score reason does not cover enough evaluation dimensions")
		return ReasonNeedsReview
	}
	return cleaned
}

func (v *Validator) inconsistency(items []domain.QuestionSummary, score int, reason string) string {
	switch {
	case len(items) == 0 && score > 20:
		return "no summaries but score above 20"
	case score >= 80 && v.h.IsNegative(reason):
		return "high score with negative reason"
	case score <= 30 && v.h.IsPositive(reason):
		return "low score with positive reason"
	}
	return ""
}

func adjustScore(score int) int {
	switch {
	case score >= 80:
		return inconsistentHighScore
	case score <= 30:
		return inconsistentLowScore
	}
	return score
}

// IsValidForCaching reports whether r may be stored in the result cache:
// it must be a genuine assessment with at least one summary.
func IsValidForCaching(r *domain.AssessmentResult) bool {
	return r != nil && !r.IsFallback() && len(r.QuestionSummaries) > 0
}

// ExtractJSONObject returns the first balanced {...} span in s that is valid
// JSON, skipping braces inside JSON strings. Prose, code fences and brace
// groups that are not JSON are passed over.
func ExtractJSONObject(s string) (string, bool) {
	for from := 0; from < len(s); {
		offset := strings.IndexByte(s[from:], '{')
		if offset < 0 {
			return "", false
		}
		start := from + offset
		if end, ok := balancedEnd(s, start); ok && gjson.Valid(s[start:end]) {
			return s[start:end], true
		}
		from = start + 1
	}
	return "", false
}

// balancedEnd returns the index just past the brace that closes the one at start.
func balancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
