package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/empathyai/companion/internal/handler/auth"
	chatHandler "github.com/empathyai/companion/internal/handler/chat"
	messagesHandler "github.com/empathyai/companion/internal/handler/messages"
	transcribeHandler "github.com/empathyai/companion/internal/handler/transcribe"
	middlewarePkg "github.com/empathyai/companion/internal/middleware"
	aiService "github.com/empathyai/companion/internal/service/ai"
	authService "github.com/empathyai/companion/internal/service/auth"
	chatService "github.com/empathyai/companion/internal/service/chat"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(authSvc *authService.Service, chatSvc *chatService.Service, aiSvc *aiService.Service, feedback chatHandler.Feedback, recognizer transcribeHandler.Transcriber) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		authHandler.New(authSvc).RegisterRoutes(api)

		// The original service accepted these with the identity in the
		// payload, so they stay outside the auth gate.
		chatHandler.New(aiSvc, chatSvc, feedback).RegisterRoutes(api)
		transcribeHandler.New(recognizer).RegisterRoutes(api)

		api.Group(func(private chi.Router) {
			private.Use(middlewarePkg.RequireAuth(authSvc))
			messagesHandler.New(chatSvc).RegisterRoutes(private)
		})
	})

	return r
}
