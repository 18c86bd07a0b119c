package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/siteledger/internal/payroll/config"
	"github.com/gartstein/siteledger/internal/payroll/controller"
	"github.com/gartstein/siteledger/internal/payroll/db"
	"github.com/gartstein/siteledger/internal/payroll/events"
	"github.com/gartstein/siteledger/internal/payroll/handlers"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// eventSink is the notification producer together with its shutdown hook.
type eventSink interface {
	controller.EventProducer
	Close()
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	flag.Parse()

	logger := initLogger()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			logger.Error("failed to sync logger", zap.Error(err))
		}
	}(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
	}
	payrollCfg, err := cfg.Payroll()
	if err != nil {
		logger.Fatal("invalid payroll settings", zap.Error(err))
	}

	ctx := context.Background()
	repo, err := db.NewRepository(ctx, cfg.Database(), logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	if cfg.SeedFile != "" {
		seedDirectory(ctx, repo, cfg.SeedFile, logger)
	}

	producer := initProducer(ctx, cfg, logger)
	defer producer.Close()

	payrollSvc := controller.NewPayrollService(repo, producer, payrollCfg, logger)
	payrollHandler := handlers.NewPayrollHandler(payrollSvc, logger)

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	if err := server.RegisterHTTPGateway(
		ctx,
		[]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
		payrollHandler,
		handlers.RouterOptions{JWTSecret: cfg.JWTSecret, CORSOrigins: cfg.CORSOrigins},
	); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

func seedDirectory(ctx context.Context, repo *db.Repository, path string, logger *zap.Logger) {
	seed, err := db.LoadSeed(path)
	if err != nil {
		logger.Fatal("failed to load seed file", zap.String("path", path), zap.Error(err))
	}
	if err := repo.ApplySeed(ctx, seed); err != nil {
		logger.Fatal("failed to apply seed", zap.Error(err))
	}
	logger.Info("directory seeded",
		zap.String("path", path),
		zap.Int("employees", len(seed.Employees)),
		zap.Int("contracts", len(seed.Contracts)),
		zap.Int("accounts", len(seed.Accounts)),
	)
}

// initProducer publishes to Kafka when brokers are configured and logs the
// notifications otherwise.
func initProducer(ctx context.Context, cfg *config.Config, logger *zap.Logger) eventSink {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("no Kafka brokers configured, notifications are only logged")
		return events.NewLogProducer(logger)
	}
	producer, err := events.NewProducer(ctx, cfg.KafkaBrokers, cfg.Topic, logger)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	return producer
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
