package main

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"

	"github.com/pennyrush/pennyrush/go/internal/api"
)

// setupServer mounts the REST routes and the websocket endpoint on one
// listener, wrapped with CORS.
func setupServer(services *Services, parser api.TokenParser) *http.Server {
	handler := api.NewHandler(services.Auctions, services.Bidding, services.Users, services.Gateway.Timers())
	router := api.NewRouter(handler, parser)

	mux := http.NewServeMux()
	services.Gateway.RegisterRoutes(mux)
	mux.Handle("/", router)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{getEnv("CORS_ORIGIN", "*")},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: c.Handler(mux),
	}
}
