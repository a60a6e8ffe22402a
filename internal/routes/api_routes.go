package routes

import (
	"github.com/go-chi/chi/v5"

	"infinite-experiment/reconboard/internal/api"
	"infinite-experiment/reconboard/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers, limiter *middleware.RateLimiter) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(limiter.Middleware)
		v1.Use(middleware.BearerCapture)

		v1.Get("/tasks/{taskId}/fields", handlers.TaskFieldsHandler())

		v1.Get("/playgrounds/{playgroundId}/mappings", handlers.ListMappingsHandler())
		v1.Post("/playgrounds/{playgroundId}/mappings", handlers.CreateMappingHandler())

		v1.Route("/mappings/{mappingId}", func(m chi.Router) {
			m.Put("/", handlers.UpdateMappingHandler())
			m.Delete("/", handlers.DeleteMappingHandler())
			m.Post("/runs", handlers.TriggerRunHandler())
			m.Post("/poll", handlers.PollRunHandler())
			m.Get("/result", handlers.RunResultHandler())
			m.Get("/history", handlers.RunHistoryHandler())
			m.Post("/views", handlers.OpenViewHandler())
		})

		v1.Post("/pairings", handlers.StartPairingHandler())
		v1.Route("/pairings/{sessionId}", func(p chi.Router) {
			p.Get("/", handlers.GetPairingHandler())
			p.Delete("/", handlers.ClosePairingHandler())
			p.Post("/left/{field}", handlers.ClickLeftHandler())
			p.Post("/right/{field}", handlers.ClickRightHandler())
			p.Post("/confirm", handlers.ConfirmPairingHandler())
			p.Post("/cancel", handlers.CancelPairingHandler())
			p.Post("/save", handlers.SavePairingHandler())
		})

		v1.Route("/views/{viewId}", func(v chi.Router) {
			v.Get("/", handlers.GetViewHandler())
			v.Delete("/", handlers.CloseViewHandler())
			v.Get("/previews/{category}", handlers.PreviewHandler())
			v.Put("/active/{category}", handlers.SetActiveHandler())
		})

		v1.Post("/samples/decode", handlers.DecodeSampleHandler())

		v1.Get("/advisories/current", handlers.CurrentAdvisoryHandler())
		v1.Delete("/advisories/{advisoryId}", handlers.DismissAdvisoryHandler())

		v1.Put("/polling/auto-refresh", handlers.AutoRefreshHandler())
	})
}
