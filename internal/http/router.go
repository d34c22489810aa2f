package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/ledgermatch/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgermatch/internal/http/importbatch"
	"github.com/MrJamesThe3rd/ledgermatch/internal/http/importcsv"
	"github.com/MrJamesThe3rd/ledgermatch/internal/http/matching"
)

func New(
	jwtSecret string,
	importV1 *importcsv.Handler,
	batchesV1 *importbatch.Handler,
	matchingV1 *matching.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))

		r.Route("/import", importV1.Routes)
		r.Route("/batches", batchesV1.Routes)
		r.Route("/matches", matchingV1.Routes)
	})

	return router
}
