package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/infrastructure/blockchain"
	"usdc-bridge.backend/internal/infrastructure/datasources/postgres"
	"usdc-bridge.backend/internal/infrastructure/jobs"
	"usdc-bridge.backend/internal/infrastructure/models"
	"usdc-bridge.backend/internal/infrastructure/repositories"
	"usdc-bridge.backend/internal/interfaces/http/handlers"
	"usdc-bridge.backend/internal/interfaces/http/middleware"
	"usdc-bridge.backend/internal/usecases"
	"usdc-bridge.backend/pkg/jwt"
	"usdc-bridge.backend/pkg/logger"
	"usdc-bridge.backend/pkg/redis"
)

const (
	deliveryDedupeTTL = 24 * time.Hour
	shutdownTimeout   = 10 * time.Second
)

var (
	loadDotenv   = godotenv.Load
	loadCfg      = config.Load
	loadNetworks = config.LoadNetworks
	initLog      = logger.Init
	initRedis    = redis.Init
	closeRedis   = redis.Close
	openDB       = postgres.NewConnection
	newWallet    = func(keys []string, chainID int64) (usecases.WalletProvider, error) {
		return blockchain.NewKeyedWallet(keys, chainID)
	}
	runServer = func(srv *http.Server) error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
	shutdownSignals = func() <-chan os.Signal {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		return quit
	}
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	ctx := context.Background()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	networks, err := loadNetworks(cfg.Bridge.NetworksFile)
	if err != nil {
		return fmt.Errorf("failed to load networks: %w", err)
	}

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer func() { _ = closeRedis() }()
	logger.Info(ctx, "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer closeDB(db)
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate transfer history: %w", err)
	}
	logger.Info(ctx, "Connected to PostgreSQL")

	wallet, err := newWallet(cfg.Wallet.PrivateKeys, cfg.Wallet.InitialChainID)
	if err != nil {
		return fmt.Errorf("failed to load wallet keys: %w", err)
	}

	clients := blockchain.NewClientFactory()
	defer clients.Close()

	// Session, notifications and history
	decimals := networks.Bridge.TokenDecimals
	binder := usecases.NewContractBinder(networks, clients, cfg.Bridge.DeliveryPollInterval, cfg.Bridge.ReceiptPollInterval)
	session := usecases.NewSessionUsecase(wallet, binder, usecases.NewBalanceReader(decimals), networks,
		redis.NewDeduper("bridge:delivery", deliveryDedupeTTL))
	notifier := usecases.NewNotifier(networks)
	notifier.Subscribe(session.OnSignal)

	history := usecases.NewTransferHistoryUsecase(
		repositories.NewTransferRepository(db),
		repositories.NewTransferEventRepository(db),
		decimals,
	)
	notifier.Subscribe(history.OnSignal)

	opts := usecases.OrchestratorOptions{
		FilterByRecipient: cfg.Bridge.FilterByRecipient,
		Observers:         []usecases.LifecycleObserver{history},
	}
	if cfg.Bridge.VerifyDestination {
		verifier, err := newDestinationVerifier(networks, clients)
		if err != nil {
			return err
		}
		opts.Verifier = verifier
	}
	orchestrator := usecases.NewBridgeOrchestrator(session, notifier, opts)
	session.HandleDeliveries(orchestrator.Deliver)

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.Stop()

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	blockWatch := jobs.NewBlockWatchJob(session, cfg.Bridge.BlockPollInterval)
	go blockWatch.Start(jobCtx)
	defer blockWatch.Stop()

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	authUsecase := usecases.NewAuthUsecase(cfg.Operator.Username, cfg.Operator.PasswordHash, jwtService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		authHandler:     handlers.NewAuthHandler(authUsecase),
		sessionHandler:  handlers.NewSessionHandler(session, networks),
		bridgeHandler:   handlers.NewBridgeHandler(orchestrator, session, notifier, networks),
		transferHandler: handlers.NewTransferHandler(history),
		authMiddleware:  middleware.AuthMiddleware(jwtService),
	})

	for _, route := range r.Routes() {
		logger.Debug(ctx, "Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := shutdownSignals()
	go func() {
		<-quit
		logger.Info(ctx, "Shutting down server")
		blockWatch.Stop()
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info(ctx, "USDC bridge backend starting",
		zap.String("port", cfg.Server.Port),
		zap.Int64("chain_id", wallet.ChainID()),
		zap.Bool("verify_destination", cfg.Bridge.VerifyDestination),
	)
	if err := runServer(srv); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// newDestinationVerifier checks the destination receiver before any transaction is sent
func newDestinationVerifier(networks *config.Networks, clients *blockchain.ClientFactory) (*usecases.TrustVerifier, error) {
	dest, ok := networks.Destination()
	if !ok {
		return nil, fmt.Errorf("destination chain %d is not configured", networks.Bridge.DestChainID)
	}
	client, err := clients.ClientForChain(networks.Bridge.DestChainID, dest.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial destination chain: %w", err)
	}
	return usecases.NewTrustVerifier(networks.Bridge.SourceChainName, usecases.NewEVMDestinationInspector(client)), nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
