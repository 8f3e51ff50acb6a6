// Package domain contains the core entities of the applicant summarization
// pipeline: summarization tasks, their lifecycle states, question/answer
// payloads, and the structured assessment produced for each submission.
// It is independent of any storage engine, transport or language-model vendor.
package domain
