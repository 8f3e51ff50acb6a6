package domain

import "strings"

// FallbackScoreReason is the justification carried by the fallback result.
const FallbackScoreReason = "AI summary generation failed. Manual review required."

// QuestionSummary is a cleaned question label and a one-paragraph summary of
// the applicant's answer to it.
type QuestionSummary struct {
	Question string `json:"question"`
	Summary  string `json:"aiSummary"`
}

// AssessmentResult is the validated, structured output of the language model
// for one submission.
type AssessmentResult struct {
	QuestionSummaries []QuestionSummary `json:"questionSummaries"`
	ScoreOutOf100     int               `json:"scoreOutOf100"`
	ScoreReason       string            `json:"scoreReason"`
}

// NewFallbackResult returns the degraded result substituted whenever the
// model or the parser fails: no summaries, score 0, manual review required.
func NewFallbackResult() *AssessmentResult {
	return &AssessmentResult{
		QuestionSummaries: []QuestionSummary{},
		ScoreOutOf100:     0,
		ScoreReason:       FallbackScoreReason,
	}
}

// IsFallback reports whether the result is the degraded placeholder rather
// than a genuine assessment: a zero score paired with an error-flavoured
// reason. An empty summary list alone is a degraded but genuine result.
func (r *AssessmentResult) IsFallback() bool {
	if r == nil {
		return true
	}
	if r.ScoreOutOf100 == 0 {
		reason := strings.ToLower(r.ScoreReason)
		if strings.Contains(reason, "fail") || strings.Contains(reason, "error") {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so cached results are never shared mutably
// between tasks.
func (r *AssessmentResult) Clone() *AssessmentResult {
	if r == nil {
		return nil
	}
	summaries := make([]QuestionSummary, len(r.QuestionSummaries))
	copy(summaries, r.QuestionSummaries)
	return &AssessmentResult{
		QuestionSummaries: summaries,
		ScoreOutOf100:     r.ScoreOutOf100,
		ScoreReason:       r.ScoreReason,
	}
}
