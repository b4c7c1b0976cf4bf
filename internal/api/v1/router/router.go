package router

import (
	"net/http"
	"strings"

	"astra/internal/api/v1/handler"
	"astra/internal/app"
	_ "astra/internal/docs"
	"astra/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
)

// New builds the HTTP handler for the v1 API on top of already wired services.
func New(svc *app.Services, logger zerolog.Logger) http.Handler {
	cfg := svc.Config
	logger.Info().Str("environment", cfg.Environment).Msg("Router initialized")

	validate := validator.New(validator.WithRequiredStructEnabled())

	quotaHandler := handler.NewQuotaHandler(svc.Quota, logger)
	companionHandler := handler.NewCompanionHandler(svc.Companion, validate, logger)
	dlqHandler := handler.NewDLQHandler(svc.DLQ, validate, logger)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	isLocalDev := cfg.PubSubEmulatorHost != ""
	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(isLocalDev, cfg.DLQEndpointURL, cfg.PubSubPushServiceAccountEmail, logger)

	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	quotaHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	companionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	dlqHandler.RegisterRoutes(apiV1Mux, pubsubAuthMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			logger.Error().Err(err).Msg("failed to render swagger doc")
			http.Error(w, "swagger doc unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	})

	// Redirect /api/* to /v1/* for older clients
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, "/v1/"+rest, http.StatusMovedPermanently)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux))
}
