package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/snapeat/internal/config"
	"github.com/fjod/snapeat/internal/health"
	"github.com/fjod/snapeat/internal/orders/consumer"
	"github.com/fjod/snapeat/internal/orders/repository"
	"github.com/fjod/snapeat/pkg/logger"
	"github.com/fjod/snapeat/pkg/telemetry"
)

const serviceName = "orders-consumer"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logg := logger.New(serviceName, cfg.LogLevel)
	logg.Info("orders consumer starting")
	var wg sync.WaitGroup

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	creds := &repository.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.OrdersMigrationsPath(),
	}

	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logg.Info("database migrations completed")

	// Start Kafka consumer
	kafkaConsumer := consumer.NewConsumer(repo, logg, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		kafkaConsumer.Run(ctx)
	}()

	checker := health.NewChecker(2*time.Second, logg)
	checker.Register("postgres", repo.Ping)
	wg.Add(1)
	go func() {
		defer wg.Done()
		checker.Run(ctx, cfg.HealthInterval)
	}()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := health.NewGRPCServer(checker)
	go func() {
		logg.Info("gRPC health listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logg.Info("shutting down orders consumer")
	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		logg.Info("consumer stopped cleanly")
	case <-shutdownCtx.Done():
		logg.Warn("consumer didn't stop in time")
	}

	kafkaConsumer.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logg.Error("failed to flush traces", "error", err)
	}
	logg.Info("orders consumer stopped")
}
