package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/clinicq/queue-api/internal/config"
	activityhandler "github.com/clinicq/queue-api/internal/handler/activity"
	appointmenthandler "github.com/clinicq/queue-api/internal/handler/appointment"
	clinichandler "github.com/clinicq/queue-api/internal/handler/clinic"
	doctorhandler "github.com/clinicq/queue-api/internal/handler/doctor"
	healthhandler "github.com/clinicq/queue-api/internal/handler/health"
	queuehandler "github.com/clinicq/queue-api/internal/handler/queue"
	staffhandler "github.com/clinicq/queue-api/internal/handler/staff"
	visithandler "github.com/clinicq/queue-api/internal/handler/visit"
	"github.com/clinicq/queue-api/internal/lock"
	"github.com/clinicq/queue-api/internal/middleware"
	"github.com/clinicq/queue-api/internal/repository/postgres"
	"github.com/clinicq/queue-api/internal/router"
	activityservice "github.com/clinicq/queue-api/internal/service/activity"
	appointmentservice "github.com/clinicq/queue-api/internal/service/appointment"
	clinicservice "github.com/clinicq/queue-api/internal/service/clinic"
	doctorservice "github.com/clinicq/queue-api/internal/service/doctor"
	eventservice "github.com/clinicq/queue-api/internal/service/event"
	queueservice "github.com/clinicq/queue-api/internal/service/queue"
	staffservice "github.com/clinicq/queue-api/internal/service/staff"
	visitservice "github.com/clinicq/queue-api/internal/service/visit"
	"github.com/clinicq/queue-api/pkg/auth"
	"github.com/clinicq/queue-api/pkg/logger"
	"github.com/clinicq/queue-api/pkg/messaging"
	redismessaging "github.com/clinicq/queue-api/pkg/messaging/redis"
	"github.com/clinicq/queue-api/pkg/metrics"
	"github.com/clinicq/queue-api/pkg/security"
	"github.com/clinicq/queue-api/pkg/validator"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      parseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Log.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("clinicq", "api")
	validator.RegisterCustomValidators()

	// Redis drives both the pub/sub broker and the cross-instance scope lock.
	// Without it the API still runs: in-process locking, no fan-out.
	var broker messaging.Broker
	var locker lock.Locker = lock.NewKeyedLocker()
	if cfg.Redis.URL != "" {
		b, err := redismessaging.NewRedisBroker(redismessaging.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &log.ZL)
		if err != nil {
			log.Warn("redis unavailable, running without broker", "error", err.Error())
		} else {
			broker = b
			defer broker.Close()

			opts, err := goredis.ParseURL(cfg.Redis.URL)
			if err == nil {
				locker = lock.NewRedisScopeLocker(goredis.NewClient(opts), cfg.Redis.LockTTL)
			}
		}
	}

	// Repositories
	clinicRepo := postgres.NewClinicRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	sequenceRepo := postgres.NewTokenSequenceRepository(db)
	activityRepo := postgres.NewActivityRepository(db)
	handlerRepo := postgres.NewHandlerRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	sessions := auth.NewSessionService(cfg.Session.Secret, cfg.Session.Expiry)
	hasher := security.NewBcryptHasher(0)
	activitySvc := activityservice.NewService(activityRepo)
	eventSvc := eventservice.NewService(outboxRepo)
	queueSvc := queueservice.NewService(clinicRepo, doctorRepo, visitRepo, appointmentRepo, sequenceRepo, locker, broker, m, log)
	visitSvc := visitservice.NewService(visitRepo, doctorRepo, appointmentRepo, activitySvc, locker, broker, m, log)
	doctorSvc := doctorservice.NewService(doctorRepo, visitRepo, activitySvc, eventSvc, locker, m, log)
	appointmentSvc := appointmentservice.NewService(appointmentRepo, visitRepo, doctorRepo, queueSvc, activitySvc, locker, broker, m, log)
	clinicSvc := clinicservice.NewService(clinicRepo, doctorRepo)
	staffSvc := staffservice.NewService(handlerRepo, hasher, sessions, activitySvc, log)

	// Router
	r := router.NewRouter(
		middleware.NewAuthMiddleware(sessions),
		healthhandler.NewHandler(db),
		queuehandler.NewHandler(queueSvc),
		visithandler.NewHandler(visitSvc),
		doctorhandler.NewHandler(doctorSvc),
		appointmenthandler.NewHandler(appointmentSvc),
		activityhandler.NewHandler(activitySvc),
		clinichandler.NewHandler(clinicSvc, doctorSvc),
		staffhandler.NewHandler(staffSvc),
		router.Config{
			RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "clinicq_http",
			QueueCacheTTL: 2 * time.Second,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
