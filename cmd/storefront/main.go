package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	catalogrepo "github.com/fjod/snapeat/internal/catalog/repository"
	catalogsvc "github.com/fjod/snapeat/internal/catalog/service"
	d "github.com/fjod/snapeat/internal/checkout/domain"
	"github.com/fjod/snapeat/internal/checkout/publisher"
	checkoutrepo "github.com/fjod/snapeat/internal/checkout/repository"
	checkoutsvc "github.com/fjod/snapeat/internal/checkout/service"
	"github.com/fjod/snapeat/internal/config"
	"github.com/fjod/snapeat/internal/health"
	h "github.com/fjod/snapeat/internal/http"
	ordersrepo "github.com/fjod/snapeat/internal/orders/repository"
	orderssvc "github.com/fjod/snapeat/internal/orders/service"
	"github.com/fjod/snapeat/internal/payment"
	"github.com/fjod/snapeat/internal/payment/razorpay"
	"github.com/fjod/snapeat/internal/store/cache"
	storeconsumer "github.com/fjod/snapeat/internal/store/consumer"
	storerepo "github.com/fjod/snapeat/internal/store/repository"
	storesvc "github.com/fjod/snapeat/internal/store/service"
	usersrepo "github.com/fjod/snapeat/internal/users/repository"
	userssvc "github.com/fjod/snapeat/internal/users/service"
	"github.com/fjod/snapeat/pkg/logger"
	"github.com/fjod/snapeat/pkg/telemetry"
)

const serviceName = "storefront"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logg := logger.New(serviceName, cfg.LogLevel)
	var wg sync.WaitGroup

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	// Session and user documents
	mongoDB, err := storerepo.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())

	sessionRepo := storerepo.NewMongoRepository(mongoDB)
	if err := storerepo.EnsureIndexes(ctx, sessionRepo); err != nil {
		log.Fatalf("Failed to create session indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	sessionCache := cache.NewRedisCache(redisClient)

	users := userssvc.NewService(usersrepo.NewMongoRepository(mongoDB), cfg.UserFetchTimeout, logg)
	sessions := storesvc.NewSessions(
		storesvc.NewCachedPersister(sessionRepo, sessionCache, logg),
		users, cfg.SessionIdleTTL, logg)
	defer sessions.Close()

	// Catalog, seed data only when the sqlite store is not available
	var catalogStore catalogrepo.RepoInterface
	if cfg.CatalogDBPath != "" {
		repo, err := catalogrepo.NewRepository(cfg.CatalogDBPath)
		if err != nil {
			logg.Warn("catalog store unavailable, serving seed data", "error", err)
		} else if err := repo.RunMigrations(cfg.CatalogMigrationsPath()); err != nil {
			log.Fatalf("Failed to run catalog migrations: %v", err)
		} else {
			defer repo.Close()
			catalogStore = repo
		}
	}
	catalog := catalogsvc.NewService(catalogStore, logg)

	// Checkout sessions, outbox and orders share one postgres database
	checkoutCreds := &checkoutrepo.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.CheckoutMigrationsPath(),
	}
	checkoutRepo, err := checkoutrepo.NewRepository(checkoutCreds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer checkoutRepo.Close()
	if err := checkoutRepo.RunMigrations(checkoutCreds); err != nil {
		log.Fatalf("Failed to run checkout migrations: %v", err)
	}

	ordersCreds := &ordersrepo.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.OrdersMigrationsPath(),
	}
	ordersRepo, err := ordersrepo.NewRepository(ordersCreds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer ordersRepo.Close()
	if err := ordersRepo.RunMigrations(ordersCreds); err != nil {
		log.Fatalf("Failed to run orders migrations: %v", err)
	}
	logg.Info("database migrations completed")

	if !cfg.Razorpay.Configured() {
		logg.Error("Razorpay keys not found in environment variables")
	}
	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
		Timeout:   cfg.Razorpay.Timeout,
	}, logg)
	checkout := checkoutsvc.NewCheckoutService(checkoutRepo, gateway, payment.NewVerifier(cfg.Razorpay.KeySecret), catalog, d.Pricing{
		Shipping: cfg.Pricing.ShippingCost,
		Tax:      cfg.Pricing.TaxAmount,
		Currency: cfg.Pricing.Currency,
	}, logg)
	orders := orderssvc.NewOrderService(ordersRepo, logg)

	// Outbox poller publishes confirmed checkouts
	poller := publisher.NewOutboxPoller(checkoutRepo, logg, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	// Confirmed checkouts clear the cart of the session they came from
	cartResetter := storeconsumer.NewCartResetter(sessions, logg, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cartResetter.Run(ctx)
	}()

	// Dependency health, served over gRPC and HTTP
	checker := health.NewChecker(2*time.Second, logg)
	checker.Register("mongodb", func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) })
	checker.Register("redis", sessionCache.Ping)
	checker.Register("postgres", checkoutRepo.Ping)
	checker.Register("catalog", catalog.Ping)
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

	if cfg.JWTSecret == "" {
		logg.Warn("JWT_SECRET is empty, bearer tokens will be rejected")
	}
	router := h.NewRouter(h.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		JWTSecret:      cfg.JWTSecret,
		ServiceName:    serviceName,
		Logger:         logg,
	}, h.Handlers{
		Catalog:  h.NewCatalogHandler(catalog, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(checkout, cfg.Razorpay.Configured(), cfg.RequestTimeout, logg),
		Session:  h.NewSessionHandler(sessions, catalog, cfg.RequestTimeout, logg),
		Orders:   h.NewOrdersHandler(orders, cfg.RequestTimeout),
		Health:   h.NewHealthHandler(checker),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logg.Info("storefront starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logg.Info("shutting down storefront")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		logg.Info("background workers stopped cleanly")
	case <-shutdownCtx.Done():
		logg.Warn("background workers didn't stop in time")
	}

	cartResetter.Close()
	if err := poller.Close(); err != nil {
		logg.Error("failed to close kafka writer", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logg.Error("failed to flush traces", "error", err)
	}
	logg.Info("storefront stopped")
}
