package generation

import "context"

// Provider sends one assembled prompt to a language-model vendor and returns
// the assistant message content. Implementations return errors freely; the
// Client absorbs them.
type Provider interface {
	// Name identifies the provider in logs and stats.
	Name() string

	// Complete performs one completion call. The returned text is expected to
	// be a JSON object matching the assessment schema, but callers must
	// tolerate anything.
	Complete(ctx context.Context, prompt string) (string, error)
}

// SystemPrompt is sent as the system message by providers that support one.
const SystemPrompt = "You are a professional recruiting assistant specialized in analyzing club applications. " +
	"Provide objective analysis of the applicant's answers and always reply with a single JSON object " +
	"in the language requested by the user prompt."
