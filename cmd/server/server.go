package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/jo-hoe/cattongue/internal/backend"
	"github.com/jo-hoe/cattongue/internal/backend/session"
	"github.com/jo-hoe/cattongue/internal/common"
	"github.com/jo-hoe/cattongue/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const sessionExpiryInterval = time.Hour

func serve(flagPath string) error {
	// Load configuration
	config, err := loadConfig(flagPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coreService := core.NewCoreService(config)
	defer func() {
		if err := coreService.Close(); err != nil {
			slog.Error("core service close error", "error", err)
		}
	}()

	store, err := session.NewStore(ctx, config.Session.Store, config.Session.ConnectionString, session.Options{
		MaxAge: config.Session.MaxAge,
		Secure: config.Session.Secure,
	}, sessionKey(config.Session.Secret))
	if err != nil {
		slog.Error("failed to initialize session store", "store", config.Session.Store, "error", err)
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("session store close error", "error", err)
		}
	}()
	go store.RunExpiry(ctx, sessionExpiryInterval, func(err error) {
		slog.Warn("failed to delete expired sessions", "error", err)
	})

	server := defineServer()
	apiService := backend.NewAPIService(coreService, session.NewBinder(store, config.Session.CookieName))
	apiService.SetRoutes(server)

	portString := fmt.Sprintf(":%d", config.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		slog.Info("starting server", "port", config.Port)
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	return nil
}

// sessionKey returns the cookie signing key; without a configured secret
// sessions do not survive a restart.
func sessionKey(secret string) []byte {
	if secret != "" {
		return []byte(secret)
	}
	slog.Warn("no session secret configured, generating an ephemeral key")
	return securecookie.GenerateRandomKey(32)
}

func defineServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Configure request logger to skip the probe endpoint (health check)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == backend.ProbePath
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogHost:      true,
		LogUserAgent: true,
		LogRoutePath: true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"host", v.Host,
				"user_agent", v.UserAgent,
			}
			if v.Error != nil {
				slog.Error("request failed", append(attrs, "error", v.Error)...)
			} else {
				slog.Info("request", attrs...)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Validator = common.NewGenericEchoValidator()

	return e
}
