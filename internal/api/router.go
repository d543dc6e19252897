package api

import (
	"net/http"
	"time"
	"todo_app/internal/api/handler"
	"todo_app/internal/api/middleware"
	"todo_app/internal/app/service"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(
	authService *service.AuthService,
	todoService *service.TodoService,
	userService *service.UserService,
	resolver middleware.IdentityResolver,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log.Named("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(authService)
	r.Route("/auth", authHandler.RegisterRoutes)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator(resolver))

		todoHandler := handler.NewTodoHandler(todoService)
		authed.Route("/todos", todoHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(userService)
		authed.Route("/user", userHandler.RegisterRoutes)

		adminHandler := handler.NewAdminHandler(todoService)
		authed.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.AdminOnly)
			adminHandler.RegisterRoutes(admin)
		})
	})

	return r
}
