package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gopos/infra/middle"
	v1 "github.com/mstgnz/gopos/router/v1"

	// Import for side-effect registration
	_ "github.com/mstgnz/gopos/mapper/akbank"
	_ "github.com/mstgnz/gopos/mapper/estpos"
	_ "github.com/mstgnz/gopos/mapper/garanti"
	_ "github.com/mstgnz/gopos/mapper/interpos"
	_ "github.com/mstgnz/gopos/mapper/kuveyt"
	_ "github.com/mstgnz/gopos/mapper/param"
	_ "github.com/mstgnz/gopos/mapper/payflex"
	_ "github.com/mstgnz/gopos/mapper/payflexcp"
	_ "github.com/mstgnz/gopos/mapper/payfor"
	_ "github.com/mstgnz/gopos/mapper/posnet"
	_ "github.com/mstgnz/gopos/mapper/posnetv1"
	_ "github.com/mstgnz/gopos/mapper/tosla"
	_ "github.com/mstgnz/gopos/mapper/vakifkatilim"
)

// Routes mounts the versioned API. An empty apiKey leaves the API open.
func Routes(r chi.Router, deps v1.Deps, apiKey string) {
	r.Route("/v1", func(r chi.Router) {
		if apiKey != "" {
			r.Use(middle.AuthMiddleware(apiKey))
		}
		v1.Routes(r, deps)
	})
}
