package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/iamhemantkumawat/ifsseeds/internal/config"
	httpapi "github.com/iamhemantkumawat/ifsseeds/internal/controllers/http"
	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra/kafka"
	mmysql "github.com/iamhemantkumawat/ifsseeds/internal/infra/mysql"
	"github.com/iamhemantkumawat/ifsseeds/internal/infra/rabbitmq"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository/memory"
	mysqlrepo "github.com/iamhemantkumawat/ifsseeds/internal/repository/mysql"
	"github.com/iamhemantkumawat/ifsseeds/internal/services"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "order-service").Logger()

	// money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	var (
		orderRepo  repository.OrderRepository
		couponRepo repository.CouponRepository
		stockRepo  repository.StockRepository
	)
	switch cfg.Storage {
	case "memory":
		orderRepo = memory.NewOrderRepository()
		couponRepo = memory.NewCouponRepository()
		stockRepo = memory.NewStockRepository()
		log.Warn().Msg("using in-memory storage, state is lost on restart")
	default:
		db, err := mmysql.Open(cfg.MySQL)
		if err != nil {
			log.Fatal().Err(err).Msg("db: connect")
		}
		orderRepo = mysqlrepo.NewOrderRepository(db)
		couponRepo = mysqlrepo.NewCouponRepository(db)
		stockRepo = mysqlrepo.NewStockRepository(db)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr(),
			DB:           cfg.Redis.DB,
			PoolSize:     200,
			MinIdleConns: 20,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		defer redisClient.Close()
	}

	var (
		catalog   infra.CatalogInterface
		seed      []infra.SeedVariant
		warmCache *infra.CachedCatalog
	)
	if cfg.Catalog.URL != "" {
		catalog = infra.NewProductClient(cfg.Catalog.URL, cfg.Catalog.Timeout)
	} else {
		static := infra.NewStaticCatalog()
		if cfg.Catalog.SeedFile != "" {
			if seed, err = infra.LoadSeedFile(cfg.Catalog.SeedFile); err != nil {
				log.Fatal().Err(err).Msg("catalog: seed")
			}
			for _, s := range seed {
				v, err := s.Variant()
				if err != nil {
					log.Fatal().Err(err).Str("variant_id", s.VariantID).Msg("catalog: seed")
				}
				static.Put(v)
			}
		}
		catalog = static
	}
	// orders are priced from the upstream catalog, the cache serves inventory lookups
	pricing := catalog
	if redisClient != nil {
		warmCache = infra.NewCachedCatalog(catalog, redisClient, cfg.Redis.CacheTTL)
		catalog = warmCache
	}

	gateway, err := newGateway(cfg.Gateway)
	if err != nil {
		log.Fatal().Err(err).Msg("gateway")
	}

	publisher, closePublisher, err := newPublisher(cfg.Notify)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init publisher")
	}
	defer closePublisher()

	var notifier services.Notifier = services.NopNotifier{}
	var asyncNotifier *services.AsyncNotifier
	if publisher != nil {
		asyncNotifier = services.NewAsyncNotifier(publisher, cfg.Notify.BufferSize)
		notifier = asyncNotifier
	}

	coupons := services.NewCouponEngine(couponRepo)
	ledger := services.NewInventoryLedger(stockRepo, catalog)
	verifier := services.NewPaymentVerifier(cfg.Gateway.Secret, gateway)

	s := services.NewOrderService(orderRepo, pricing, coupons, ledger, verifier, gateway, notifier, services.OrderSettings{
		ReservationTTL:       cfg.Orders.ReservationTTL,
		ManualReservationTTL: cfg.Orders.ManualReservationTTL,
		IdempotencyTTL:       cfg.Orders.IdempotencyTTL,
	})

	dashboard := services.NewDashboardAggregator(orderRepo, ledger)

	if redisClient != nil {
		s.SetIdempotencyStore(infra.NewRedisIdempotencyStore(redisClient))
		dashboard.SetCache(infra.NewRedisCache(redisClient), cfg.Orders.DashboardCacheTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seedStock(ctx, ledger, seed)

	if warmCache != nil {
		go func() {
			time.Sleep(5 * time.Second)
			if err := warmupCatalog(ctx, ledger, warmCache); err != nil {
				log.Warn().Err(err).Msg("failed to warm up catalog cache")
			} else {
				log.Info().Msg("catalog cache warmed up")
			}
		}()
	}

	sweeper := services.NewSweeper(ledger, s, cfg.Orders.SweepInterval, cfg.Orders.SweepBatch)
	go sweeper.Run(ctx)

	handler := httpapi.NewHandler(s, coupons, ledger, dashboard, httpapi.PaymentConfig{
		KeyID:    cfg.Gateway.KeyID,
		Currency: cfg.Gateway.Currency,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpapi.RequestLogger())
	r.Use(httpapi.RateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, 3*time.Minute))

	handler.RegisterRoutes(r, cfg.Auth.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage).Msg("starting order service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if asyncNotifier != nil {
		if err := asyncNotifier.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("pending notifications dropped")
		}
	}
}

func newGateway(cfg config.GatewayConfig) (infra.PaymentGatewayInterface, error) {
	if cfg.Provider == "sandbox" {
		log.Warn().Msg("using sandbox payment gateway")
		return infra.NewSandboxGateway(cfg.Currency)
	}
	return infra.NewRazorpayGateway(cfg.BaseURL, cfg.KeyID, cfg.Secret, cfg.Currency, cfg.Timeout)
}

// newPublisher returns nil when notifications are disabled.
func newPublisher(cfg config.NotifyConfig) (infra.EventPublisher, func(), error) {
	switch cfg.Driver {
	case "rabbitmq":
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.Exchange)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case "kafka":
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, func() {
			if err := p.Close(); err != nil {
				log.Warn().Err(err).Msg("kafka writer close")
			}
		}, nil
	case "log":
		return infra.NewLogPublisher(log.Logger), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

// seedStock sets opening stock for seeded variants that have no ledger row yet.
func seedStock(ctx context.Context, ledger *services.InventoryLedger, seed []infra.SeedVariant) {
	for _, s := range seed {
		if _, err := ledger.LowStock(ctx, s.VariantID); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("variant_id", s.VariantID).Msg("stock lookup failed")
			continue
		}

		if _, err := ledger.SetStock(ctx, s.ProductID, s.VariantID, s.Stock); err != nil {
			log.Warn().Err(err).Str("variant_id", s.VariantID).Msg("failed to seed stock")
		}
	}
}

func warmupCatalog(ctx context.Context, ledger *services.InventoryLedger, cache *infra.CachedCatalog) error {
	items, err := ledger.List(ctx)
	if err != nil {
		return err
	}

	return cache.Warmup(ctx, lo.Map(items, func(item domain.StockItem, _ int) domain.CartLine {
		return domain.CartLine{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: 1}
	}))
}
