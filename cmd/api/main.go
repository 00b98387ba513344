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

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/cinema-ticketing/internal/api"
	"github.com/sanosuguru/cinema-ticketing/internal/api/handler"
	"github.com/sanosuguru/cinema-ticketing/internal/api/middleware"
	"github.com/sanosuguru/cinema-ticketing/internal/application"
	"github.com/sanosuguru/cinema-ticketing/internal/config"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/payment"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/ticket"
	"github.com/sanosuguru/cinema-ticketing/internal/infrastructure/broker"
	"github.com/sanosuguru/cinema-ticketing/internal/infrastructure/gateway"
	"github.com/sanosuguru/cinema-ticketing/internal/infrastructure/postgres"
	"github.com/sanosuguru/cinema-ticketing/internal/infrastructure/qrcode"
	redisinfra "github.com/sanosuguru/cinema-ticketing/internal/infrastructure/redis"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/logger"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/metrics"
	"github.com/sanosuguru/cinema-ticketing/internal/worker"
)

const (
	shutdownTimeout = 10 * time.Second
	// 開発環境でTICKET_SECRETが未設定の場合のみ使う
	devTicketSecret = "insecure-development-ticket-secret"
	devJWTSecret    = "insecure-development-jwt-secret"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}

	logger.Set(logger.NewLogger(cfg.Env, cfg.Log.Level))
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("起動に失敗しました", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m := metrics.Init()

	// DB接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("DB接続エラー: %w", err)
	}
	defer db.Close()

	version, err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath)
	if err != nil {
		return fmt.Errorf("マイグレーション失敗: %w", err)
	}
	logger.Info("マイグレーション完了", zap.Uint("version", version))

	// Redis接続（任意。未接続でもDBの一意制約で二重予約は防げる）
	var lockManager redisinfra.LockManagerInterface
	var seatCache redisinfra.SeatCacheInterface
	redisClient, err := redisinfra.NewClient(&redisinfra.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Redisに接続できないためロックとキャッシュなしで起動します", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		lockManager = redisinfra.NewLockManager(redisClient).WithMetrics(m)
		seatCache = redisinfra.NewSeatCache(redisClient)
	}

	publisher, err := broker.New(broker.Options{
		Driver:       cfg.Broker.Driver,
		RabbitMQURL:  cfg.Broker.RabbitMQURL,
		KafkaBrokers: cfg.Broker.KafkaBrokers,
		Topic:        cfg.Broker.Topic,
	})
	if err != nil {
		return fmt.Errorf("ブローカー接続エラー: %w", err)
	}
	defer publisher.Close()

	gw, err := newGateway(cfg.Payment)
	if err != nil {
		return err
	}

	// リポジトリ
	txManager := postgres.NewTxManager(db)
	showRepo := postgres.NewShowRepository(db)
	seatRepo := postgres.NewSeatRepository(db)
	ticketTypeRepo := postgres.NewTicketTypeRepository(db)
	itemRepo := postgres.NewItemRepository(db)
	promoRepo := postgres.NewPromotionRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	orderRepo := postgres.NewOrderRepository(db)

	// サービス
	signer := ticket.NewSigner(secretOr(cfg.Ticket.Secret, devTicketSecret, "TICKET_SECRET"), cfg.Ticket.ValidityWindow)

	reservationService := application.NewReservationService(txManager, reservationRepo, seatRepo, ticketTypeRepo, showRepo, lockManager, seatCache).
		WithHoldDuration(cfg.Reservation.HoldDuration).
		WithSweepBatchSize(cfg.Reservation.SweepBatchSize).
		WithMetrics(m)
	promotionService := application.NewPromotionService(promoRepo)
	orderService := application.NewOrderService(txManager, orderRepo, reservationRepo, itemRepo, reservationService, promotionService, gw, signer).
		WithTaxPolicy(application.NewTaxPolicy(cfg.Tax.RateBasisPoints)).
		WithPublisher(publisher).
		WithRedirectURLs(payment.RedirectURLs{
			Success: cfg.Payment.SuccessURL,
			Failure: cfg.Payment.FailureURL,
			Pending: cfg.Payment.PendingURL,
		}).
		WithWebhookSecret(cfg.Payment.WebhookSecret).
		WithMetrics(m)
	showService := application.NewShowService(txManager, showRepo, seatRepo, reservationRepo, seatCache)
	catalogService := application.NewCatalogService(ticketTypeRepo, itemRepo, promoRepo)
	ticketService := application.NewTicketService(orderRepo, signer, qrcode.NewRenderer(qrcode.DefaultSize))

	// ワーカー
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := worker.NewExpiredReservationSweeper(reservationService, lockManager, cfg.Reservation.SweepInterval).WithMetrics(m)
	retrier := worker.NewTicketIssuanceRetrier(orderService, cfg.Ticket.RetryInterval).WithMetrics(m)
	go sweeper.Start(ctx)
	go retrier.Start(ctx)

	// HTTP
	health := handler.NewHealthHandler().WithCheck("postgres", db.PingContext)
	if redisClient != nil {
		health.WithCheck("redis", pingRedis(redisClient))
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))

	handler.RegisterRoutes(e, &handler.Handlers{
		Health:       health,
		Reservations: handler.NewReservationHandler(reservationService),
		Orders:       handler.NewOrderHandler(orderService),
		Payments:     handler.NewPaymentHandler(orderService),
		Tickets:      handler.NewTicketHandler(ticketService),
		Shows:        handler.NewShowHandler(showService),
		Catalog:      handler.NewCatalogHandler(catalogService, promotionService),
	}, middleware.JWTAuth(secretOr(cfg.Auth.JWTSecret, devJWTSecret, "JWT_SECRET")))

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバー起動", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("サーバー起動エラー: %w", err)
	}

	logger.Info("サーバーをシャットダウンしています...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
	}
	sweeper.Stop()
	retrier.Stop()

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}

// newGateway は設定に応じた決済ゲートウェイを返す
func newGateway(cfg config.PaymentConfig) (payment.Gateway, error) {
	switch cfg.Driver {
	case "", "mock":
		logger.Warn("モック決済ゲートウェイを使用します")
		return gateway.NewMockGateway(), nil
	case "mercadopago":
		return gateway.NewMercadoPagoClient(cfg.BaseURL, cfg.AccessToken, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("未対応の決済ドライバです: %s", cfg.Driver)
	}
}

func secretOr(secret, fallback, name string) string {
	if secret != "" {
		return secret
	}
	logger.Warn("シークレットが未設定のため開発用の値を使用します", zap.String("name", name))
	return fallback
}

func pingRedis(c *redis.Client) handler.HealthCheck {
	return func(ctx context.Context) error {
		return c.Ping(ctx).Err()
	}
}
