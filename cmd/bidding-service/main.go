package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-marketplace/internal/api/handlers"
	"auction-marketplace/internal/config"
	"auction-marketplace/internal/infrastructure/leader"
	"auction-marketplace/internal/infrastructure/mysql"
	redisinfra "auction-marketplace/internal/infrastructure/redis"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("starting bidding service")

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis", "address", cfg.Redis.Address)

	// MySQL
	db, err := utils.InitializeMySQL(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to mysql", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close mysql connection", "error", err)
		}
	}()
	log.Info("connected to mysql")

	// Stores
	lotStore := mysql.NewMySQLLotStore(db)
	bidLedger := mysql.NewMySQLBidLedger(db)
	auctionRepo := mysql.NewMySQLAuctionRepository(db)
	registrationRepo := mysql.NewMySQLRegistrationRepository(db)
	jobRepo := mysql.NewMySQLJobRepository(db)

	// Redis-backed components
	lotCache := redisinfra.NewRedisLotCache(rdb)
	eventPublisher := redisinfra.NewRedisEventPublisher(rdb)
	eventSubscriber := redisinfra.NewRedisEventSubscriber(rdb, log)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	// Services
	lotLocker := services.NewKeyedLotLocker(cfg.Bidding.LockTimeout)
	bidService := services.NewBidService(
		lotStore,
		bidLedger,
		auctionRepo,
		registrationRepo,
		lotLocker,
		lotCache,
		eventPublisher,
		cfg.Bidding.MaxCommitAttempts,
		log,
	)

	auctionManager := services.NewAuctionManager(
		auctionRepo,
		lotStore,
		lotCache,
		eventPublisher,
		nil, // scheduler set below
		log,
	)
	scheduler := services.NewCronLifecycleScheduler(jobRepo, auctionManager, leaderElection, cfg.Instance.ID, log)
	auctionManager.SetScheduler(scheduler)

	eventListener := services.NewEventListener(lotStore, lotCache, log)

	// Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	bidHandler := handlers.NewBidHandler(bidService, log)
	auctionHandler := handlers.NewAuctionHandler(auctionManager, auctionRepo, registrationRepo, log)

	api := e.Group("/api/v1")
	bidHandler.Register(api)
	auctionHandler.Register(api)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "bidding-service",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Background services
	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()

	go func() {
		if err := scheduler.Start(subCtx); err != nil {
			log.Error("failed to start scheduler", "error", err)
		}
	}()

	go func() {
		if err := eventListener.Start(subCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("event listener stopped", "error", err)
		}
	}()

	go func() {
		for {
			became, err := leaderElection.BecomeLeader(subCtx, cfg.Instance.ID)
			if err != nil {
				log.Error("failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("became scheduler leader", "instance_id", cfg.Instance.ID)
			}
			select {
			case <-subCtx.Done():
				return
			case <-time.After(10 * time.Second):
			}
		}
	}()

	// HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("starting http server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down bidding service...")

	subCancel()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.Stop(); err != nil {
		log.Error("failed to stop scheduler", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(ctx, cfg.Instance.ID); err != nil {
		log.Error("failed to release leadership", "error", err)
	}
	if err := e.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("bidding service stopped")
}
