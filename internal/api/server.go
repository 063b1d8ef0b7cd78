package api

import (
	"net/http"
	"time"

	agentapi "github.com/futig/chat-backend/internal/api/agent"
	chatapi "github.com/futig/chat-backend/internal/api/chat"
	"github.com/futig/chat-backend/internal/api/docs"
	exportapi "github.com/futig/chat-backend/internal/api/export"
	"github.com/futig/chat-backend/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// streamTimeout bounds a whole request including model generation, so it
// is far longer than a typical API timeout.
const streamTimeout = 5 * time.Minute

// SetupRouter creates and configures the HTTP router
func SetupRouter(chatHandler *chatapi.Handler, exportHandler *exportapi.Handler, agentHandler *agentapi.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)          // Recover from panics
	r.Use(chimiddleware.RequestID)          // Add request ID
	r.Use(middleware.Logger(logger))        // Log requests
	r.Use(middleware.CORS)                  // Handle CORS
	r.Use(chimiddleware.Timeout(streamTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	// Register routes
	chatapi.RegisterRoutes(r, chatHandler)
	exportapi.RegisterRoutes(r, exportHandler)
	agentapi.RegisterRoutes(r, agentHandler)

	return r
}
