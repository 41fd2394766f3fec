package http

import (
	"net/http"

	"github.com/go-api-accounts/internal/application/account"
	"github.com/go-api-accounts/internal/application/session"
	"github.com/go-api-accounts/internal/config"
	"github.com/go-api-accounts/internal/transport/http/handler"
	appmiddleware "github.com/go-api-accounts/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps holds the application services the router serves.
type Deps struct {
	Accounts account.Service
	Sessions session.Service
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Sessions)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.Accounts, deps.Sessions)
	userH := handler.NewUserHandler(deps.Accounts)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", healthH.Check)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.Register)
			r.Post("/verify-email", authH.VerifyEmail)
			r.Post("/resend-verification-email", authH.ResendVerificationEmail)
			r.Post("/send-password-reset-otp", authH.SendPasswordResetOTP)
			r.Post("/set-new-password", authH.SetNewPassword)
			r.Post("/login", authH.Login)
			r.Post("/refresh", authH.Refresh)
			r.With(authMw).Get("/logout", authH.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/me", userH.Me)
			r.Put("/users/me/avatar", userH.UploadAvatar)
		})
	})

	return r
}
