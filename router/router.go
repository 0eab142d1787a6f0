package router

import (
	"go-user-api/handler"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "go-user-api/docs"
)

const usersPrefix = "/api/v1/users"

func NewRouter(userHandler *handler.UserHandler, authMiddleware *handler.AuthMiddleware, healthHandler *handler.HealthHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// Public routes
	mux.Handle("POST "+usersPrefix+"/register", handler.ErrorHandlingMiddleware(userHandler.Register))
	mux.Handle("POST "+usersPrefix+"/login", handler.ErrorHandlingMiddleware(userHandler.Login))
	mux.Handle("POST "+usersPrefix+"/refresh-token", handler.ErrorHandlingMiddleware(userHandler.RefreshToken))

	// Secured routes
	secured := func(h http.Handler) http.Handler {
		return authMiddleware.Authenticate(h)
	}
	mux.Handle("POST "+usersPrefix+"/logout", secured(handler.ErrorHandlingMiddleware(userHandler.Logout)))
	mux.Handle("GET "+usersPrefix+"/current-user", secured(handler.ErrorHandlingMiddleware(userHandler.CurrentUser)))
	mux.Handle("POST "+usersPrefix+"/change-password", secured(handler.ErrorHandlingMiddleware(userHandler.ChangePassword)))
	mux.Handle("PATCH "+usersPrefix+"/update-account", secured(handler.ErrorHandlingMiddleware(userHandler.UpdateAccount)))
	mux.Handle("PATCH "+usersPrefix+"/avatar", secured(handler.ErrorHandlingMiddleware(userHandler.UpdateAvatar)))
	mux.Handle("PATCH "+usersPrefix+"/cover-image", secured(handler.ErrorHandlingMiddleware(userHandler.UpdateCoverImage)))

	return handler.RequestLogger(mux)
}
