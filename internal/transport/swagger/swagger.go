package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Handler serves Swagger UI for the OpenAPI document published at specURL.
func Handler(specURL string) http.Handler {
	if specURL == "" {
		specURL = "/openapi.yml"
	}
	return httpSwagger.Handler(
		httpSwagger.URL(specURL),
		httpSwagger.DocExpansion("list"),
	)
}
