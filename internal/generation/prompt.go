package generation

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"text/template"

	"github.com/phrazzld/recruit-summary/internal/domain"
)

//go:embed templates/assessment.tmpl
var templateFS embed.FS

const defaultTemplateName = "templates/assessment.tmpl"

// DefaultLanguage is the language the model is asked to write in.
const DefaultLanguage = "Korean"

type promptPair struct {
	Number    int
	Question  string
	Answer    string
	Untrusted bool
}

type promptData struct {
	Language string
	Pairs    []promptPair
}

// PromptBuilder renders the assessment prompt for one submission.
type PromptBuilder struct {
	tmpl     *template.Template
	language string
	detect   InjectionDetector
	logger   *slog.Logger
}

// PromptOption customises a PromptBuilder.
type PromptOption func(*PromptBuilder)

// WithInjectionDetector replaces DefaultInjectionDetector.
func WithInjectionDetector(d InjectionDetector) PromptOption {
	return func(b *PromptBuilder) {
		if d != nil {
			b.detect = d
		}
	}
}

// WithLanguage sets the output language requested from the model.
func WithLanguage(language string) PromptOption {
	return func(b *PromptBuilder) {
		if language != "" {
			b.language = language
		}
	}
}

// NewPromptBuilder parses the template at templatePath, or the embedded
// default when templatePath is empty.
func NewPromptBuilder(templatePath string, logger *slog.Logger, opts ...PromptOption) (*PromptBuilder, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if templatePath == "" {
		tmpl, err = template.ParseFS(templateFS, defaultTemplateName)
	} else {
		var content []byte
		content, err = os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template: %v", ErrInvalidConfig, err)
		}
		tmpl, err = template.New("assessment").Parse(string(content))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	b := &PromptBuilder{
		tmpl:     tmpl,
		language: DefaultLanguage,
		detect:   DefaultInjectionDetector,
		logger:   logger.With("component", "prompt_builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build renders the prompt for the ordered question/answer pairs. Answers are
// sanitized; answers flagged by the injection detector are fenced with an
// explicit untrusted-data notice rather than rejected.
func (b *PromptBuilder) Build(pairs []domain.QuestionAnswer) (string, error) {
	if len(pairs) == 0 {
		return "", ErrEmptyPayload
	}

	data := promptData{Language: b.language, Pairs: make([]promptPair, 0, len(pairs))}
	flagged := 0
	for i, qa := range pairs {
		untrusted := b.detect(qa.Answer) || HasExcessiveRepetition(qa.Answer)
		if untrusted {
			flagged++
		}
		data.Pairs = append(data.Pairs, promptPair{
			Number:    i + 1,
			Question:  SanitizeInput(qa.Question),
			Answer:    SanitizeInput(qa.Answer),
			Untrusted: untrusted,
		})
	}
	if flagged > 0 {
		b.logger.Warn("applicant answers flagged as possible prompt injection",
			"flagged_answers", flagged,
			"total_answers", len(pairs))
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
