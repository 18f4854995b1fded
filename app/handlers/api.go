package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/crewnet/enrol-service/app/dto"
	apperrors "github.com/crewnet/enrol-service/app/errors"
	"github.com/crewnet/enrol-service/app/logger"
	"github.com/crewnet/enrol-service/app/metrics"
	enrolmw "github.com/crewnet/enrol-service/app/middleware"
	"github.com/crewnet/enrol-service/app/services"
)

// enrolService is the enrollment workflow surface the handlers call.
type enrolService interface {
	Status() (dto.Result, *apperrors.AppError)
	Captcha(requesterID string) (dto.Result, *apperrors.AppError)
	Invite(ctx context.Context, req dto.InviteRequest) (dto.Result, *apperrors.AppError)
	Enrol(ctx context.Context, requesterID string, req dto.EnrolRequest) (dto.Result, *apperrors.AppError)
	Accept(ctx context.Context, enrollmentID string) (dto.Result, *apperrors.AppError)
	RequestReset(ctx context.Context, email string) (*dto.Result, *apperrors.AppError)
}

// adminService is the user and enrollment mutation surface.
type adminService interface {
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (dto.Result, *apperrors.AppError)
	ChangeEnrollmentStatus(ctx context.Context, req dto.ChangeEnrollmentRequest) (*dto.Result, *apperrors.AppError)
	ChangePassword(ctx context.Context, userID string, req dto.ChangePasswordRequest) (dto.Result, *apperrors.AppError)
	AddRole(ctx context.Context, req dto.RoleRequest) (dto.Result, *apperrors.AppError)
	DelRole(ctx context.Context, req dto.RoleRequest) (dto.Result, *apperrors.AppError)
	ToggleActive(ctx context.Context, req dto.ToggleRequest) (dto.Result, *apperrors.AppError)
	DeleteUser(ctx context.Context, req dto.DeleteUserRequest) (dto.Result, *apperrors.AppError)
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

type config struct {
	addr string
	db   dbConfig
}

type application struct {
	config      config
	enrol       enrolService
	admin       adminService
	runtime     *services.Runtime
	challenges  interface{ Stop() }
	redisClient *redis.Client
	db          interface {
		PingContext(ctx context.Context) error
		Close() error
	}
	rabbitConn interface {
		IsClosed() bool
		Close() error
	}
	rabbitCh interface {
		IsClosed() bool
		Close() error
	}
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(enrolmw.Metrics())
	r.Use(enrolmw.RequesterContext())
	r.Use(chimw.Timeout(60 * time.Second))

	captchaLimit := enrolmw.RouteLimit{Name: "captcha", Capacity: 5, Window: time.Minute}
	enrolLimit := enrolmw.RouteLimit{Name: "enrol", Capacity: 10, Window: 5 * time.Minute}
	acceptLimit := enrolmw.RouteLimit{Name: "accept", Capacity: 10, Window: time.Minute}
	resetLimit := enrolmw.RouteLimit{Name: "requestReset", Capacity: 3, Window: time.Hour}
	healthLimit := enrolmw.RouteLimit{Name: "healthCheck", Capacity: 20, Window: time.Minute}

	r.Route("/enrol/v1", func(r chi.Router) {
		r.With(enrolmw.RateLimit(app.redisClient, healthLimit, enrolmw.PrincipalIP())).
			Get("/health", app.healthCheckHandler)
		r.Get("/metrics", metrics.MetricsHandler().ServeHTTP)

		// Anonymous surface, per-session rate limited.
		r.Get("/status", app.statusHandler)
		r.With(enrolmw.RateLimit(app.redisClient, captchaLimit, enrolmw.PrincipalRequesterOrIP())).
			Post("/captcha", app.captchaHandler)
		r.With(enrolmw.RateLimit(app.redisClient, enrolLimit, enrolmw.PrincipalRequesterOrIP())).
			Post("/enrol", app.enrolHandler)
		r.With(enrolmw.RateLimit(app.redisClient, acceptLimit, enrolmw.PrincipalRequesterOrIP())).
			Post("/accept", app.acceptHandler)
		r.With(enrolmw.RateLimit(app.redisClient, resetLimit, enrolmw.PrincipalRequesterOrIP())).
			Post("/request_reset", app.requestResetHandler)

		// Crew self-service.
		r.Group(func(cr chi.Router) {
			cr.Use(enrolmw.RequireCapability(dto.CapCrew))
			cr.Post("/changepassword", app.changePasswordHandler)
		})

		// Admin surface.
		r.Group(func(ar chi.Router) {
			ar.Use(enrolmw.RequireCapability(dto.CapAdmin))
			ar.Post("/invite", app.inviteHandler)
			ar.Post("/create", app.createUserHandler)
			ar.Post("/change", app.changeEnrollmentHandler)
			ar.Post("/delete", app.deleteUserHandler)
			ar.Post("/addrole", app.addRoleHandler)
			ar.Post("/delrole", app.delRoleHandler)
			ar.Post("/toggle", app.toggleHandler)
		})
	})
	return r
}

// writeResult writes the standard response envelope.
func writeResult(w http.ResponseWriter, action string, status int, result dto.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.NewResponse(action, result))
}

// writeError maps an AppError onto the envelope: the HTTP status comes
// from the taxonomy, the body stays a plain [false, message] tuple so
// clients only ever parse one shape.
func writeError(w http.ResponseWriter, action string, appErr *apperrors.AppError) {
	writeResult(w, action, appErr.Status, dto.Fail(appErr.Message))
}

// decode parses a JSON request body. Handlers treat a malformed body the
// same way the services treat bad fields.
func decode(r *http.Request, v any) *apperrors.AppError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.NewValidation("invalid request body")
	}
	return nil
}

// runWithGracefulShutdown starts the server, reloads configuration on
// SIGHUP, and on SIGTERM/SIGINT drains in-flight requests before closing
// Postgres, Redis and RabbitMQ in order.
func (app *application) runWithGracefulShutdown(mux http.Handler, closers ...interface{ Close() error }) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			logger.Logger.Info().Msg("SIGHUP received, reconfiguring")
			if err := app.runtime.Reconfigure(context.Background()); err != nil {
				logger.Logger.Error().Err(err).Msg("reconfigure failed, component stays disabled")
				continue
			}
			// A reconfigure resets the challenge table; outstanding
			// captchas were issued under the old configuration.
			if app.challenges != nil {
				app.challenges.Stop()
			}
		}
	}()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", app.config.addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Logger.Info().Str("signal", sig.String()).Msg("Received signal, starting graceful shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	logger.Logger.Info().Msg("Server gracefully stopped")

	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Error closing connection")
		}
	}

	logger.Logger.Info().Msg("Graceful shutdown completed")
	return nil
}
