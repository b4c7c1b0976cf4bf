package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"astra/internal/util"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		w.Write([]byte(userID))
	})
}

func TestAuthMiddleware(t *testing.T) {
	secret := "s3cret"
	token, err := util.SignJWT(&util.Claims{StandardClaims: jwt.StandardClaims{
		Subject:   "user-42",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}}, secret)
	require.NoError(t, err)

	handler := AuthMiddleware(secret, zerolog.Nop())(echoUser())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "valid bearer", header: "Bearer " + token, status: http.StatusOK, body: "user-42"},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rr.Body.String())
			}
		})
	}
}

func TestPubSubAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	PubSubAuthMiddleware(true, "", "", zerolog.Nop())(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/dlq", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	PubSubAuthMiddleware(false, "", "", zerolog.Nop())(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/dlq", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = httptest.NewRecorder()
	PubSubAuthMiddleware(false, "https://astra.example/v1/dlq", "push@astra.iam.gserviceaccount.com", zerolog.Nop())(next).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/dlq", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoggerMiddlewarePassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rr := httptest.NewRecorder()
	LoggerMiddleware(zerolog.Nop())(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tiers", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}
