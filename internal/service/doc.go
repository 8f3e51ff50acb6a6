// Package service contains the application use cases that sit between the
// HTTP layer and the stores: accepting applicant submissions as PENDING
// summarization tasks, and managing the lifecycle of recruiting forms.
//
// Services receive their stores and collaborators through constructor
// injection and translate store errors into the sentinels declared here, which
// the API layer maps to HTTP status codes.
package service
