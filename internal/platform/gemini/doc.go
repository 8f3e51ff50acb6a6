// Package gemini implements generation.Provider on top of Google's Gemini API
// using the google.golang.org/genai client. It requests JSON output, maps
// safety blocks and HTTP status codes onto generation errors, and returns the
// concatenated text of the first candidate.
package gemini
