// Package events carries recruiting form lifecycle changes from the form
// service to the components that react to them, chiefly the tracker that
// decides whether the summarization sweeps should run.
//
// Events are a single tagged struct (FormEvent with a FormEventKind) rather
// than one type per change, so handlers switch on Kind.
package events
