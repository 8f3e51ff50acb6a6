package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error calling language model")

	// ErrInvalidConfig is returned when a provider or client configuration is invalid
	ErrInvalidConfig = errors.New("invalid generation configuration")

	// ErrNilProvider is returned when a Client is constructed without a provider
	ErrNilProvider = errors.New("language model provider cannot be nil")

	// ErrInvalidConcurrencyLimit is returned when the concurrency limit is not positive
	ErrInvalidConcurrencyLimit = errors.New("concurrency limit must be positive")

	// ErrEmptyPrompt is returned when there is nothing to send
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrEmptyPayload is returned when a prompt is requested for no question/answer pairs
	ErrEmptyPayload = errors.New("no question/answer pairs to summarize")
)
