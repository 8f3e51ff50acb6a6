package api

import "github.com/go-chi/chi/v5"

// MonitoringPrefix is the mount point of the operator routes.
const MonitoringPrefix = "/api/ai-summary/monitoring"

// Mount registers the submission routes on r.
func (h *SubmissionHandler) Mount(r chi.Router) {
	r.Post("/submissions", h.Submit)
	r.Get("/submissions/{id}", h.GetTask)
}

// Mount registers the form routes on r.
func (h *FormHandler) Mount(r chi.Router) {
	r.Route("/forms", func(r chi.Router) {
		r.Post("/", h.CreateForm)
		r.Get("/", h.ListForms)
		r.Get("/{id}", h.GetForm)
		r.Post("/{id}/activate", h.ActivateForm)
		r.Post("/{id}/deactivate", h.DeactivateForm)
		r.Post("/{id}/close", h.CloseForm)
	})
}

// Mount registers the monitoring routes on r.
func (h *MonitoringHandler) Mount(r chi.Router) {
	r.Get("/batch-status", h.BatchStatus)
	r.Get("/llm-stats", h.LLMStats)
	r.Get("/cache-stats", h.CacheStats)
	r.Get("/dashboard", h.Dashboard)
	r.Post("/trigger-batch", h.TriggerBatch)
	r.Post("/clear-cache", h.ClearCache)
}
