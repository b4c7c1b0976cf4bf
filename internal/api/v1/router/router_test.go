package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"astra/internal/app"
	"astra/internal/config"
	"astra/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter() http.Handler {
	svc := &app.Services{
		Config: &config.Config{Environment: "development", JWTSecret: "secret", PubSubEmulatorHost: "localhost:8085"},
		Quota:  service.NewQuotaService(nil, nil, zerolog.Nop()),
	}
	return New(svc, zerolog.Nop())
}

func TestRouter_Routes(t *testing.T) {
	r := testRouter()

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{name: "tiers are public", method: http.MethodGet, path: "/v1/tiers", status: http.StatusOK},
		{name: "quota needs auth", method: http.MethodGet, path: "/v1/quota", status: http.StatusUnauthorized},
		{name: "companion needs auth", method: http.MethodPost, path: "/v1/companion/messages", status: http.StatusUnauthorized},
		{name: "profile refresh needs auth", method: http.MethodPost, path: "/v1/companion/profile-refresh", status: http.StatusUnauthorized},
		{name: "health", method: http.MethodGet, path: "/healthz", status: http.StatusOK},
		{name: "swagger doc", method: http.MethodGet, path: "/swagger/doc.json", status: http.StatusOK},
		{name: "legacy prefix", method: http.MethodGet, path: "/api/tiers", status: http.StatusMovedPermanently},
		{name: "unknown", method: http.MethodGet, path: "/v1/nope", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestRouter_SwaggerDocListsCompanionRoutes(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"/companion/messages"`)
	assert.Contains(t, rr.Body.String(), `"/companion/profile-refresh"`)
	assert.Contains(t, rr.Body.String(), `"basePath": "/v1"`)
}
