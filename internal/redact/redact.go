// Package redact scrubs credentials, tokens and applicant contact details from
// strings before they reach logs, diagnostics or operator-facing responses.
// Language-model transport errors routinely echo request URLs and headers, so
// every such error passes through here before it is recorded.
package redact

import (
	"regexp"
	"unicode/utf8"
)

// Placeholders substituted for matched fragments.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedTokenPlaceholder      = "[REDACTED_TOKEN]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	TruncationMarker              = "...[truncated]"
)

// DefaultMaxLength caps diagnostics produced by Diagnostic.
const DefaultMaxLength = 500

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules are applied in order; earlier rules see the raw input.
var rules = []rule{
	{
		// Connection strings with embedded credentials
		regexp.MustCompile(`(?i)\b(postgres(?:ql)?|mysql|mongodb|redis)://[^@\s]+@`),
		"${1}://" + RedactedCredentialPlaceholder + "@",
	},
	{
		regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9_\-.~+/=]{8,}`),
		"Bearer " + RedactedTokenPlaceholder,
	},
	{
		// OpenAI style secret keys
		regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{16,}`),
		RedactedKeyPlaceholder,
	},
	{
		// Google API keys
		regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{30,}`),
		RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		"[REDACTED_JWT]",
	},
	{
		// key=value and "key": "value" pairs naming a secret
		regexp.MustCompile(
			`(?i)\b(api[_-]?key|access[_-]?token|auth[_-]?token|secret|password|passwd|pwd)(["'\s]*[:=]\s*["']?)[^"'&\s,}]{3,}`,
		),
		"${1}${2}" + RedactionPlaceholder,
	},
	{
		// Query string keys, as used by the Gemini REST endpoints
		regexp.MustCompile(`(?i)([?&]key=)[^&\s"]+`),
		"${1}" + RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		RedactedEmailPlaceholder,
	},
	{
		regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		"[STACK_TRACE_REDACTED]",
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Truncate caps s at maxLen runes, appending TruncationMarker when cut.
// A non-positive maxLen leaves s untouched.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + TruncationMarker
}

// Diagnostic renders err as a redacted, length-capped message suitable for
// logs and persisted error fields.
func Diagnostic(err error, maxLen int) string {
	if err == nil {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	return Truncate(Error(err), maxLen)
}
