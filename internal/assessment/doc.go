// Package assessment turns raw language-model output into a well-formed
// domain.AssessmentResult.
//
// Validate is total: any input, including empty strings and garbage, yields a
// result whose score lies in [0,100], whose reason is non-empty and whose
// summary list is capped. Output that cannot be parsed at all is replaced by
// the fallback result. The text heuristics (verbatim-copy detection, sensitive
// content, reason coverage and sentiment) are plain predicates collected in
// Heuristics so they can be tuned and tested without touching the pipeline.
package assessment
