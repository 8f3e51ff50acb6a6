// Package task runs the asynchronous summarization pipeline.
//
// A BatchScheduler runs three periodic sweeps over a store.TaskStore: the main
// sweep claims the oldest PENDING tasks and dispatches them through a bounded
// WorkerPool to the Processor, the retry sweep returns eligible FAILED tasks to
// PENDING, and the timeout sweep fails tasks stuck in PROCESSING. Every sweep
// is skipped while the WindowChecker reports that no recruiting form is open.
package task
