// Package generation is the boundary between the summarization pipeline and
// external language-model services. It assembles prompts from applicant
// answers, defines the Provider port implemented by each vendor adapter, and
// wraps providers in a Client that bounds concurrency, paces requests, caps
// response sizes and converts every failure into a deterministic fallback
// payload so callers never handle transport errors themselves.
package generation
