package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger zerolog.Logger

func Init() {
	// Set log level from environment
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	// Configure output format
	output := os.Getenv("LOG_FORMAT")
	if output == "json" {
		// JSON format for production
		Logger = zerolog.New(os.Stdout).With().
			Timestamp().
			Logger().
			Level(level)
	} else {
		// Pretty console format for development
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Logger().
			Level(level)
	}

	// Set as global logger
	log.Logger = Logger
}

// WithRequesterID adds the requester id to logger context
func WithRequesterID(requesterID string) zerolog.Logger {
	return Logger.With().Str("requester_id", requesterID).Logger()
}

// WithComponent adds a component name to logger context
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
