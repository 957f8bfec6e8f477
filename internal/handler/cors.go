package handler

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS is a handler for setting CORS headers for the given methods
func CORS(exposedHeaders []string, methods []string, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: methods,
		AllowedHeaders: []string{"*"},
		ExposedHeaders: exposedHeaders,
	}).Handler(next)
}
