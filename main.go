package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketbid/internal/config"
	"marketbid/internal/database/db_client"
	"marketbid/internal/http/http_server"
	"marketbid/internal/models"
	"marketbid/internal/notify"
	"marketbid/internal/notify/redisnotify"
	"marketbid/internal/redis/redis_client"
	"marketbid/internal/services/bidding"
	"marketbid/internal/store"
	"marketbid/internal/store/memstore"
	"marketbid/internal/store/pgstore"
	"marketbid/internal/sweeper"
	"marketbid/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Store + notification channel, per backend
	var (
		st          store.Store
		notifier    notify.Notifier
		redisClient *redis.Client
	)
	hub := ws.NewHub()

	switch cfg.StoreBackend {
	case "memory":
		ms := memstore.New()
		seedListings(ms)
		st = ms
		notifier = ws.NewLocalNotifier(hub)
		Log.Info("using in-memory store")
	default:
		pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort,
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			Log.Fatal("pg-open", zap.Error(err))
		}
		defer pgDb.Close()
		if err := db_client.Migrate(pgDb, cfg.MigrationsDir); err != nil {
			Log.Fatal("pg-migrate", zap.Error(err))
		}
		st = pgstore.New(pgDb)

		redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		notifier = redisnotify.NewPublisher(redisClient)
	}

	// 4. Bidding engine
	biddingSvc := bidding.NewBiddingService(st, notifier)

	// 5. Background: due-auction closing sweep
	sweeper.Run(ctx, st, biddingSvc, cfg.SweepInterval)

	// 6. WebSocket fan-out for listing viewers
	wsSrv := ws.NewWsServer(hub, redisClient, biddingSvc)

	// 7. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, biddingSvc)
	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}

// seedListings populates the memory backend with a few auctions so the
// service is usable without the catalog.
func seedListings(ms *memstore.MemStore) {
	now := time.Now().UTC()
	for i, l := range []*models.AuctionListing{
		{ID: "listing1", StartPrice: decimal.NewFromInt(100), StartTime: now, EndTime: now.Add(time.Hour)},
		{ID: "listing2", StartPrice: decimal.NewFromInt(250), StartTime: now, EndTime: now.Add(30 * time.Minute)},
		{ID: "listing3", StartPrice: decimal.NewFromInt(50), StartTime: now.Add(10 * time.Minute), EndTime: now.Add(2 * time.Hour)},
	} {
		l.IsAuction = true
		ms.AddListing(l)
		Log.Debug("seeded listing", zap.Int("n", i+1), zap.String("id", l.ID))
	}
}
