// Command sf-server starts the scoutfund gRPC server.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	pb "github.com/and161185/scoutfund/api/fundraiser/v1"
	"github.com/and161185/scoutfund/internal/config"
	"github.com/and161185/scoutfund/internal/crypto"
	"github.com/and161185/scoutfund/internal/limiter"
	"github.com/and161185/scoutfund/internal/migrate"
	"github.com/and161185/scoutfund/internal/report"
	"github.com/and161185/scoutfund/internal/repository/postgres"
	grpcserver "github.com/and161185/scoutfund/internal/server/grpc"
	"github.com/and161185/scoutfund/internal/service"
	"github.com/and161185/scoutfund/internal/sweeper"
	"github.com/and161185/scoutfund/internal/telemetry"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts a TLS-enabled gRPC server
// together with the background sweeper.
func main() {
	envFile := os.Getenv("SF_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	cfg, err := config.Load(envFile)
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("config", zap.Error(err))
	}

	// Flags override the environment.
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&cfg.DSN, "dsn", cfg.DSN, "PostgreSQL DSN")
	flag.StringVar(&cfg.JWTKey, "jwt-key", cfg.JWTKey, "HS256 signing key shared with the identity provider (required)")
	flag.StringVar(&cfg.TLSCert, "tls-cert", cfg.TLSCert, "TLS certificate (PEM)")
	flag.StringVar(&cfg.TLSKey, "tls-key", cfg.TLSKey, "TLS private key (PEM)")
	flag.BoolVar(&cfg.Dev, "dev", cfg.Dev, "development logging and server reflection")
	flag.StringVar(&cfg.ExportBackend, "export", cfg.ExportBackend, "report export backend: local or s3")
	flag.Parse()

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		logger.Fatal("failed to load TLS cert/key", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "sf-server", version, cfg.OTELEndpoint)
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}

	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	db, err := postgres.New(ctx, cfg.DSN, postgres.RetryPolicy{
		Attempts: cfg.DBRetryAttempts,
		Base:     cfg.DBRetryBase,
		Cap:      cfg.DBRetryCap,
	})
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()
	store := postgres.NewStore(db)

	lim := limiter.NewPG(db, cfg.RedeemWindow, cfg.RedeemMaxFails, cfg.RedeemBlockFor)
	hasher, err := crypto.NewCodeHasher([]byte(cfg.CodePepper))
	if err != nil {
		logger.Fatal("code hasher", zap.Error(err))
	}
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		logger.Fatal("exporter", zap.Error(err))
	}

	// Services
	deps := service.Deps{Store: store, Log: logger}
	cascade := service.NewCascadeService(deps, service.CascadeConfig{
		PageSize:     cfg.CascadePageSize,
		PageAttempts: cfg.CascadePageTries,
		Parallelism:  cfg.CascadeParallelism,
		BackoffBase:  cfg.CascadeBackoff,
	})
	svc := grpcserver.Services{
		Profiles: service.NewProfileService(deps),
		Sharing: service.NewSharingService(deps, service.SharingConfig{
			InviteTTL:    cfg.InviteTTL,
			MaxInviteTTL: cfg.MaxInviteTTL,
			CodeAttempts: cfg.CodeAttempts,
		}, hasher, crypto.CodeGenerator(cfg.CodeLength), lim),
		Transfer:  service.NewTransferService(deps),
		Cascade:   cascade,
		Catalogs:  service.NewCatalogService(deps),
		Campaigns: service.NewCampaignService(deps),
		Orders:    service.NewOrderService(deps),
		Exports:   service.NewExportService(deps, exporter),
	}

	// Background sweeper; a redis lease keeps replicas from running the same tick.
	var lease sweeper.Lease
	if cfg.RedisURL != "" {
		rdb, err := sweeper.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		lease = sweeper.NewRedisLease(rdb, "sf:lease:")
	}
	sw := sweeper.New(sweeper.Config{
		InvitesSpec:  cfg.SweepInvites,
		CascadesSpec: cfg.SweepCascades,
		Batch:        cfg.SweepBatch,
		LeaseTTL:     cfg.SweepLeaseTTL,
	}, store, cascade, lease, logger)
	if err := sw.Start(); err != nil {
		logger.Fatal("sweeper", zap.Error(err))
	}

	// gRPC server with interceptors
	s := grpc.NewServer(
		grpc.Creds(creds),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary([]byte(cfg.JWTKey)),
			grpcserver.ValidateUnary(grpcserver.NewValidator()),
		),
	)

	// App service
	pb.RegisterFundraiserServer(s, grpcserver.New(svc, logger))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	// Listen
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening (TLS)", zap.String("addr", cfg.Addr))
		errCh <- s.Serve(lis)
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		hs.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		sw.Stop(sctx)

		// graceful shutdown
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-sctx.Done():
			s.Stop()
		}
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// newExporter builds the configured report backend.
func newExporter(ctx context.Context, cfg config.Config) (report.Exporter, error) {
	if cfg.ExportBackend != "s3" {
		return report.NewDirExporter(cfg.ExportDir), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := report.NewS3Client(ctx, report.S3Options{
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		return nil, err
	}
	return report.NewS3Exporter(client, cfg.S3Bucket, cfg.S3Prefix), nil
}
