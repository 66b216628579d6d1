package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/hydrazin60/waterManagment-server/internal/application/document"
	"github.com/hydrazin60/waterManagment-server/internal/application/identity"
	"github.com/hydrazin60/waterManagment-server/internal/application/otp"
	"github.com/hydrazin60/waterManagment-server/internal/application/registration"
	"github.com/hydrazin60/waterManagment-server/internal/application/session"
	"github.com/hydrazin60/waterManagment-server/internal/config"
	"github.com/hydrazin60/waterManagment-server/internal/domain"
	"github.com/hydrazin60/waterManagment-server/internal/infrastructure/dynamo"
	jwtinfra "github.com/hydrazin60/waterManagment-server/internal/infrastructure/jwt"
	redisinfra "github.com/hydrazin60/waterManagment-server/internal/infrastructure/redis"
	s3infra "github.com/hydrazin60/waterManagment-server/internal/infrastructure/s3"
	"github.com/hydrazin60/waterManagment-server/internal/infrastructure/smtp"
	"github.com/hydrazin60/waterManagment-server/internal/infrastructure/sns"
	"github.com/hydrazin60/waterManagment-server/internal/transport/http/handler"
	appmiddleware "github.com/hydrazin60/waterManagment-server/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	BusinessRepo *dynamo.AccountRepo
	CustomerRepo *dynamo.AccountRepo
	StaffRepo    *dynamo.AccountRepo
	AdminRepo    *dynamo.AccountRepo
	Gates        *redisinfra.GateStore
	S3Store      *s3infra.Store
	Mailer       smtp.Mailer
	SMSSender    sns.SMSSender
	JWTProvider  *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	directory := identity.NewDirectory(deps.BusinessRepo, deps.CustomerRepo, deps.StaffRepo, deps.AdminRepo)
	otpSvc := otp.NewService(otp.ServiceDeps{
		Gates:     deps.Gates,
		Mailer:    deps.Mailer,
		SMSSender: deps.SMSSender,
	})
	registrationSvc := registration.NewService(registration.ServiceDeps{
		Directory: directory,
		OTP:       otpSvc,
	})
	sessionDeps := session.ServiceDeps{Directory: directory}
	if deps.JWTProvider != nil {
		sessionDeps.Signer = deps.JWTProvider
	}
	sessionSvc := session.NewService(sessionDeps)
	documentSvc := document.NewService(document.ServiceDeps{
		Store:     deps.S3Store,
		Directory: directory,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(handler.AuthHandlerDeps{
		Registration: registrationSvc,
		Sessions:     sessionSvc,
		Accounts:     directory,
		AccessTTL:    cfg.AccessTokenTTL,
		RefreshTTL:   cfg.RefreshTokenTTL,
	})
	accountH := handler.NewAccountHandler(documentSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Get("/test", healthH.Test)

		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/verify-otp", authH.VerifyOTP)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/forgot-password", authH.ForgotPassword)
		r.With(sensitiveRL.Limit).Post("/auth/reset-password", authH.ResetPassword)
		r.Post("/auth/refresh", authH.Refresh)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/auth/me", authH.Me)
			r.Post("/auth/logout", authH.Logout)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireAccountType(domain.AccountBusiness, domain.AccountStaff))

				r.Post("/accounts/documents", accountH.UploadDocument)
				r.Post("/accounts/documents/base64", accountH.UploadDocumentBase64)
				r.Get("/accounts/documents/{kind}", accountH.DocumentURL)
				r.Get("/accounts/documents/{kind}/file", accountH.DownloadDocument)
			})
		})
	})

	return r
}
