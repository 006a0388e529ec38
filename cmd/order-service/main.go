// @title        Menu Orders API
// @version      1.0
// @description  Order lifecycle, ledger and statistics for restaurant menus.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	_ "github.com/MikeMC777/menu-orders/docs"
	"github.com/MikeMC777/menu-orders/internal/config"
	"github.com/MikeMC777/menu-orders/internal/httpx"
	"github.com/MikeMC777/menu-orders/internal/kv"
	"github.com/MikeMC777/menu-orders/internal/logging"
	"github.com/MikeMC777/menu-orders/internal/notify"
	ord "github.com/MikeMC777/menu-orders/internal/order"
)

const healthService = "menu.orders.v1.OrderLedger"

// backend is the opened order store plus its lifecycle hooks.
type backend struct {
	store ord.Store
	ping  func(ctx context.Context) error
	close func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory order store; orders are lost on restart")
		return &backend{store: ord.NewKVStore(kv.NewMemory(), cfg.StoreKey), close: func() {}}, nil

	case config.StoreFile:
		f, err := kv.NewFile(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		f.Backup = cfg.FileBackup
		return &backend{store: ord.NewKVStore(f, cfg.StoreKey), close: func() {}}, nil

	case config.StoreDynamoDB:
		client, err := kv.NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, err
		}
		return &backend{store: ord.NewKVStore(kv.NewDynamo(client, cfg.DynamoDBTable), cfg.StoreKey), close: func() {}}, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := ord.NewPGRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{store: repo, ping: repo.Ping, close: pool.Close}, nil
	}
	return nil, errors.New("unknown store backend " + cfg.Store)
}

func openSinks(cfg *config.Config) ([]notify.Sink, error) {
	var sinks []notify.Sink
	if cfg.KafkaBrokers != "" {
		sinks = append(sinks, notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	if cfg.RabbitMQURL != "" {
		r, err := notify.DialRabbit(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, err
		}
		sinks = append(sinks, r)
	}
	return sinks, nil
}

// watchHealth flips the gRPC health status whenever the store ping changes result.
func watchHealth(ctx context.Context, hs *health.Server, ping func(context.Context) error, logger *zap.Logger) {
	hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	if ping == nil {
		return
	}
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := ping(pctx)
			cancel()
			if ok := err == nil; ok != serving {
				serving = ok
				st := healthpb.HealthCheckResponse_SERVING
				if !ok {
					st = healthpb.HealthCheckResponse_NOT_SERVING
					logger.Warn("order store unhealthy", zap.Error(err))
				} else {
					logger.Info("order store healthy again")
				}
				hs.SetServingStatus(healthService, st)
			}
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open order store", zap.String("backend", cfg.Store), zap.Error(err))
	}
	defer be.close()

	opts := []ord.Option{
		ord.WithLogger(logger),
		ord.WithStatsPolicy(ord.StatsPolicy{
			TopItems:                cfg.StatsTopItems,
			ExcludeCancelledRevenue: cfg.StatsExcludeCancelled,
		}),
	}
	if cfg.RestaurantSvcBaseURL != "" {
		opts = append(opts, ord.WithRestaurantDirectory(ord.NewHTTPDirectory(cfg.RestaurantSvcBaseURL)))
	}
	bus := ord.NewBus(logger.Named("bus"))
	ledger := ord.NewLedger(be.store, bus, opts...)

	g, gctx := errgroup.WithContext(ctx)

	sinks, err := openSinks(cfg)
	if err != nil {
		logger.Fatal("open event sinks", zap.Error(err))
	}
	for _, s := range sinks {
		f := notify.NewForwarder(s, cfg.NotifyBuffer, logger)
		unsubscribe := bus.Subscribe(f.Handle)
		defer unsubscribe()
		g.Go(func() error { return f.Run(gctx) })
		logger.Info("relaying order events", zap.String("sink", s.Name()))
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(logger))
	registerRoutes(r, ledger, routeConfig{
		AdminTokenHash: cfg.AdminTokenHash,
		StreamBuffer:   cfg.NotifyBuffer,
		Heartbeat:      15 * time.Second,
		Ready:          be.ping,
		Done:           gctx.Done(),
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.OrderSvcAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("order-service listening", zap.String("addr", cfg.OrderSvcAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("grpc listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	g.Go(func() error {
		logger.Info("grpc health listening", zap.String("addr", cfg.GRPCAddr))
		return gs.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		hs.Shutdown()
		gs.GracefulStop()
		return nil
	})
	g.Go(func() error {
		watchHealth(gctx, hs, be.ping, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("order-service stopped with error", zap.Error(err))
		return
	}
	logger.Info("order-service stopped")
}
