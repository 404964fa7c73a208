package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitclass/internal/booking"
	"fitclass/internal/config"
	"fitclass/internal/db"
	"fitclass/internal/events"
	"fitclass/internal/gym"
	"fitclass/internal/logger"
	"fitclass/internal/membership"
	"fitclass/internal/schedule"
	"fitclass/internal/server"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat))
	logger.Info("Starting FitClass application", "env", cfg.Env)

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	publisher, err := newPublisher(cfg)
	if err != nil {
		logger.Fatalf("Failed to set up event publisher: %v", err)
	}
	if c, ok := publisher.(io.Closer); ok {
		defer c.Close()
	}
	logger.Info("Event publisher initialized", "backend", cfg.EventsBackend)

	gymRepo := gym.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	engine := booking.NewEngine(bookingRepo, booking.WithPublisher(publisher))

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}
	sweeper := booking.NewNoShowSweeper(engine, bookingRepo, gymRepo, cfg.NoShowGrace)
	if _, err := sweeper.Register(scheduler, cfg.NoShowSweepInterval); err != nil {
		logger.Fatalf("Failed to register no-show sweeper: %v", err)
	}
	if queue, ok := publisher.(*events.RedisPublisher); ok {
		if _, err := queue.Register(scheduler, cfg.EventsQueueSampleInterval); err != nil {
			logger.Fatalf("Failed to register event queue sampler: %v", err)
		}
	}
	scheduler.Start()

	srv := server.New(cfg, server.Services{
		Directory:   gymRepo,
		Gyms:        gym.NewService(gymRepo),
		Schedules:   schedule.NewService(schedule.NewRepository(database)),
		Bookings:    engine,
		Memberships: membership.NewService(membership.NewRepository(database), gymRepo),
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	if err := scheduler.Shutdown(); err != nil {
		logger.Errorf("Error during scheduler shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return events.NewRedisPublisher(client, cfg.EventsQueue), nil
	case "amqp":
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	case "none", "":
		return events.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
}
