package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/clinicq/queue-api/internal/config"
	"github.com/clinicq/queue-api/internal/email"
	"github.com/clinicq/queue-api/internal/repository/postgres"
	"github.com/clinicq/queue-api/internal/worker"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/messaging"
	redismessaging "github.com/clinicq/queue-api/pkg/messaging/redis"
	"github.com/clinicq/queue-api/pkg/metrics"
)

// workerConfig is flat env-only configuration; the worker typically runs as a
// sidecar or cron-style deployment where a config file is more trouble than
// it is worth.
type workerConfig struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"clinicq"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	EmailFrom    string `envconfig:"EMAIL_FROM"`

	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"50"`
	MaxRetries   int           `envconfig:"MAX_RETRIES" default:"3"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("clinicq", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	var broker messaging.Broker
	if cfg.RedisURL != "" {
		b, err := redismessaging.NewRedisBroker(redismessaging.Config{
			URL:        cfg.RedisURL,
			MaxRetries: 3,
			PoolSize:   5,
		}, &log.ZL)
		if err != nil {
			log.Warn("redis unavailable, notices will not fan out", "error", err.Error())
		} else {
			broker = b
			defer broker.Close()
		}
	}

	var mailer email.Service
	if cfg.SMTPHost != "" {
		mailer = email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		}, log)
	}

	processor := worker.NewOutboxProcessor(
		postgres.NewOutboxRepository(db),
		broker,
		mailer,
		metrics.NewMetrics("clinicq", "worker"),
		log,
		worker.Config{
			PollInterval: cfg.PollInterval,
			BatchSize:    cfg.BatchSize,
			MaxRetries:   cfg.MaxRetries,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	processor.Start(ctx)
}
