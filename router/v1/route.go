package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gopos/handler"
	customvalidate "github.com/mstgnz/gopos/infra/validate"
)

// Deps carries what the v1 handlers need. Audit, Search and Stats stay nil
// when the matching store is not configured and their routes answer 503.
type Deps struct {
	Service  handler.MappingServiceInterface
	Audit    handler.AuditReader
	Search   handler.LogSearcher
	Stats    handler.StatsProvider
	Validate *validator.Validate
}

// Routes registers all API routes
func Routes(r chi.Router, deps Deps) {
	validate := deps.Validate
	if validate == nil {
		validate = customvalidate.New()
	}

	mappingHandler := handler.NewMappingHandler(deps.Service, deps.Audit, validate)
	logsHandler := handler.NewLogsHandler(deps.Search)
	analyticsHandler := handler.NewAnalyticsHandler(deps.Stats, deps.Service)

	r.Route("/gateways", func(r chi.Router) {
		r.Get("/", mappingHandler.ListGateways)
		r.Post("/{gateway}/{operation}", mappingHandler.MapResponse)

		r.Route("/{gateway}/logs", func(r chi.Router) {
			r.Get("/", mappingHandler.ListLogs)
			r.Get("/orders/{orderID}", logsHandler.GetOrderLogs)
			r.Get("/declines", logsHandler.GetDeclineLogs)
			r.Get("/stats", logsHandler.GetLogStats)
		})
	})

	r.Get("/stats", analyticsHandler.GetAuditStats)
}
