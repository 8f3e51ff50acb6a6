// Package api exposes the summarization pipeline over HTTP: applicant
// submissions, recruiting form administration and the operator monitoring
// routes. Handlers decode and validate requests, call the services, and map
// service and domain errors to status codes without leaking their details.
package api
