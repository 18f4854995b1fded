package main

import (
	"context"
	"fmt"
	"time"

	"github.com/crewnet/enrol-service/app/captcha"
	cfgPkg "github.com/crewnet/enrol-service/app/config"
	"github.com/crewnet/enrol-service/app/gateway"
	"github.com/crewnet/enrol-service/app/logger"
	"github.com/crewnet/enrol-service/app/notify"
	"github.com/crewnet/enrol-service/app/services"
	"github.com/crewnet/enrol-service/app/store"
)

func main() {
	// Initialize structured logging
	logger.Init()

	// Load .env file (if it exists)
	cfgPkg.Load()

	// Build connection string from individual components
	dbUser := cfgPkg.GetString("POSTGRES_USER", "postgres")
	dbPassword := cfgPkg.GetString("POSTGRES_PASSWORD", "postgres")
	dbHost := cfgPkg.GetString("POSTGRES_HOST", "postgres")
	dbPort := cfgPkg.GetString("POSTGRES_PORT", "5432")
	dbName := cfgPkg.GetString("POSTGRES_DB", "crewnet")
	dbSSLMode := cfgPkg.GetString("POSTGRES_SSLMODE", "disable")

	dbAddr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)

	cfg := config{
		addr: cfgPkg.GetString("ADDR", ":8080"),
		db: dbConfig{
			addr:         dbAddr,
			maxOpenConns: cfgPkg.GetInt("DB_MAX_OPEN_CONNS", 30),
			maxIdleConns: cfgPkg.GetInt("DB_MAX_IDLE_CONNS", 30),
			maxIdleTime:  cfgPkg.GetString("DB_MAX_IDLE_TIME", "15m"),
		},
	}

	logger.Logger.Info().
		Str("host", dbHost).
		Str("database", dbName).
		Msg("connecting to postgres")

	db, err := cfgPkg.NewDB(
		cfg.db.addr,
		cfg.db.maxOpenConns,
		cfg.db.maxIdleConns,
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	logger.Logger.Info().Msg("postgres connection pool established")

	st := store.NewStorage(db)

	redisClient, err := cfgPkg.NewRedisClient()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	logger.Logger.Info().Msg("redis connection established")

	rabbitConn, rabbitCh, err := cfgPkg.NewRabbitMQConnection()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rabbitConn.Close()
	defer rabbitCh.Close()

	logger.Logger.Info().Msg("RabbitMQ connection established")

	// Runtime configuration. A failed initial load is not fatal: the
	// component starts disabled and serves again after a SIGHUP once the
	// system salt exists.
	runtime := services.NewRuntime(st)
	if appErr := runtime.Reconfigure(context.Background()); appErr != nil {
		logger.Logger.Warn().Str("reason", appErr.Message).Msg("starting with enrollment disabled")
	}

	pusher := gateway.NewAMQPGateway(rabbitCh)
	delay := time.Duration(cfgPkg.GetInt("ENROL_CAPTCHA_DELAY_MS", int(captcha.DefaultDeliveryDelay/time.Millisecond))) * time.Millisecond
	issuer := captcha.NewIssuer(captcha.NewImageRenderer(), pusher, delay, logger.Logger)
	defer issuer.Stop()

	dispatcher := notify.NewDispatcher(buildMailer(), logger.Logger)

	enrolService := services.NewEnrolService(runtime, st, dispatcher, issuer, logger.Logger)
	adminService := services.NewAdminService(runtime, st, dispatcher, logger.Logger)

	app := &application{
		config:      cfg,
		enrol:       enrolService,
		admin:       adminService,
		runtime:     runtime,
		challenges:  issuer,
		redisClient: redisClient,
		db:          db,
		rabbitConn:  rabbitConn,
		rabbitCh:    rabbitCh,
	}
	mux := app.mount()

	if err := app.runWithGracefulShutdown(mux, db, redisClient, rabbitCh, rabbitConn); err != nil {
		logger.Logger.Fatal().Err(err).Msg("server error")
	}
}

// buildMailer picks SMTP when a relay is configured and the recording
// mailer otherwise, so deployments without a relay still log what would
// have been sent.
func buildMailer() notify.Mailer {
	host := cfgPkg.GetString("SMTP_HOST", "")
	if host == "" {
		logger.Logger.Warn().Msg("SMTP_HOST not set, notification mails will only be logged")
		return notify.NewRecordingMailer(logger.Logger)
	}

	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     host,
		Port:     cfgPkg.GetInt("SMTP_PORT", 587),
		Username: cfgPkg.GetString("SMTP_USERNAME", ""),
		Password: cfgPkg.GetString("SMTP_PASSWORD", ""),
		From:     cfgPkg.GetString("SMTP_FROM", "enrol@localhost"),
		Timeout:  time.Duration(cfgPkg.GetInt("SMTP_TIMEOUT_SECONDS", 15)) * time.Second,
		Insecure: cfgPkg.GetBool("SMTP_INSECURE", false),
	}, logger.Logger)
}
