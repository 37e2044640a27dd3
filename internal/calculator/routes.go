package calculator

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts all calculator endpoints onto the given router
// under the /calculator prefix.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/calculator", func(r chi.Router) {
		r.Post("/evaluate", h.Evaluate)

		r.Post("/sessions", h.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Post("/events", h.ApplyEvents)
			r.Put("/display", h.SetDisplay)
			r.Put("/dimension", h.SetDimension)
			r.Post("/history/{index}/select", h.SelectHistory)
			r.Delete("/history", h.ClearHistory)
			r.Get("/visual", h.Visual)
		})
	})
}
