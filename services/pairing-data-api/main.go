package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/apihelpers"
	mw "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/apihelpers/middlewares"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/services/pairing-data-api/apihandlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Start webserver
	router := gin.Default()
	router.Use(mw.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length", mw.HeaderAPIKey, mw.HeaderRequestID},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length", mw.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	v1Root := router.Group("/v1")

	v1APIHandlers := apihandlers.NewHTTPHandler(
		dbService,
		conf.APIKeys,
		conf.AdminAPIKeys,
		conf.AdminTokenSignKey,
		adminTokenExpiresIn,
	)
	v1APIHandlers.AddTeamsAPI(v1Root)
	v1APIHandlers.AddUsersAPI(v1Root)
	v1APIHandlers.AddPairsAPI(v1Root)
	v1APIHandlers.AddAdminAPI(v1Root)

	if conf.GinConfig.DebugMode {
		if err := apihelpers.WriteRoutesToFile(router, "pairing-data-api-routes.txt"); err != nil {
			slog.Warn("Could not write routes file", slog.String("error", err.Error()))
		}
	}

	server := &http.Server{
		Addr:    ":" + conf.GinConfig.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting Pairing Data API", slog.String("port", conf.GinConfig.Port), slog.Bool("mtls", conf.GinConfig.MTLS.Use))
		serverErr <- listen(server)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Exited Pairing Data API", slog.String("error", err.Error()))
		}
	case <-ctx.Done():
		slog.Info("Shutting down Pairing Data API")
	}
	shutdown(server)
}

func listen(server *http.Server) error {
	if !conf.GinConfig.MTLS.Use {
		return server.ListenAndServe()
	}

	// Create tls config for mutual TLS
	tlsConfig, err := apihelpers.LoadTLSConfig(conf.GinConfig.MTLS.CertificatePaths)
	if err != nil {
		slog.Error("Error loading TLS config.", slog.String("error", err.Error()))
		return err
	}
	server.TLSConfig = tlsConfig
	return server.ListenAndServeTLS(conf.GinConfig.MTLS.CertificatePaths.ServerCertPath, conf.GinConfig.MTLS.CertificatePaths.ServerKeyPath)
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Error stopping server", slog.String("error", err.Error()))
	}
	if err := dbService.Close(ctx); err != nil {
		slog.Error("Error closing icebreaker DB", slog.String("error", err.Error()))
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("Error flushing traces", slog.String("error", err.Error()))
		}
	}
}
