package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/config"
	"github.com/fekuna/omnipos-fulfillment-service/internal/broker"
	"github.com/fekuna/omnipos-fulfillment-service/internal/cache"
	"github.com/fekuna/omnipos-fulfillment-service/internal/database/postgres"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/transport/grpcjson"

	fulH "github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment/handler"
	fulUCPkg "github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment/usecase"

	invH "github.com/fekuna/omnipos-fulfillment-service/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/omnipos-fulfillment-service/internal/inventory/listener"
	invRepoPkg "github.com/fekuna/omnipos-fulfillment-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-fulfillment-service/internal/inventory/usecase"

	ordH "github.com/fekuna/omnipos-fulfillment-service/internal/order/handler"
	ordRepoPkg "github.com/fekuna/omnipos-fulfillment-service/internal/order/repository"
	ordUCPkg "github.com/fekuna/omnipos-fulfillment-service/internal/order/usecase"

	reqH "github.com/fekuna/omnipos-fulfillment-service/internal/request/handler"
	reqRepoPkg "github.com/fekuna/omnipos-fulfillment-service/internal/request/repository"
	reqUCPkg "github.com/fekuna/omnipos-fulfillment-service/internal/request/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	txManager := postgres.NewTxManager(db, cfg.Tx.MaxRetries, cfg.Tx.Timeout, appLogger)

	// 4. Initialize Repositories
	invRepo := invRepoPkg.NewPGRepository(db)
	reqRepo := reqRepoPkg.NewPGRepository(db)
	ordRepo := ordRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis. The stock cache is optional.
	var stockCache cache.Cache
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis, stock cache disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		stockCache = redisClient
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 6. Initialize Kafka
	producer := broker.NewProducer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.EventsTopic,
	})
	defer producer.Close()

	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.ReceiptsTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Kafka configured",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("events_topic", cfg.Kafka.EventsTopic),
		zap.String("receipts_topic", cfg.Kafka.ReceiptsTopic),
	)

	// 7. Initialize UseCases
	invUC := invUCPkg.NewInventoryUseCase(invRepo, txManager, stockCache, cfg.Redis.StockCacheTTL, producer, appLogger)
	ordUC := ordUCPkg.NewOrderUseCase(ordRepo, txManager, producer, appLogger)
	reqUC := reqUCPkg.NewRequestUseCase(reqRepo, ordRepo, txManager, producer, appLogger)
	fulUC := fulUCPkg.NewFulfillmentUseCase(reqRepo, ordRepo, invUC, txManager, producer, appLogger)

	// 8. Start Listener
	receiptListener := invListenerPkg.NewReceiptListener(kafkaConsumer, invUC, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go receiptListener.Start(ctx)

	// 9. Initialize Handlers
	invHandler := invH.NewInventoryHandler(invUC, appLogger)
	ordHandler := ordH.NewOrderHandler(ordUC, appLogger)
	reqHandler := reqH.NewRequestHandler(reqUC, appLogger)
	fulHandler := fulH.NewFulfillmentHandler(fulUC, appLogger)

	// 10. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcjson.LoggingInterceptor(appLogger)),
	)

	// Register Services
	invHandler.Register(grpcServer)
	ordHandler.Register(grpcServer)
	reqHandler.Register(grpcServer)
	fulHandler.Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Lists every service; only the health service can be described.
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
