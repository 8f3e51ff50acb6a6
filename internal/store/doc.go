// Package store defines the persistence boundary of the pipeline: the
// summarization task store the scheduler polls, the recruiting form store that
// backs the intake window, and the error values every implementation returns.
// Storage mechanics live in internal/platform/postgres.
package store
