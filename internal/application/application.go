package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/intake"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/notify"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
	"github.com/psds-microservice/helpdesk-service/internal/router"
	"github.com/psds-microservice/helpdesk-service/internal/searchindex"
	"github.com/psds-microservice/helpdesk-service/internal/service"
	"github.com/psds-microservice/helpdesk-service/internal/telegram"
	"go.uber.org/zap"
)

// Version пишется в installations при старте.
var Version = "dev"

// API приложение: HTTP сервер (режим api).
type API struct {
	cfg      *config.Config
	log      *zap.Logger
	httpSrv  *http.Server
	tickets  *service.TicketService
	producer *kafka.Producer
	redis    *redis.Client
	closeDB  func() error
}

// NewAPI мигрирует базу, проверяет запись инициализации и собирает зависимости.
func NewAPI(ctx context.Context, cfg *config.Config, log *zap.Logger) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL(), log); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	gw := repository.NewGormGateway(db)
	inst, err := gw.EnsureInstallation(ctx, Version)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("installation: %w", err)
	}
	log.Info("installation checked", zap.Uint("id", inst.ID), zap.Time("initialized_at", inst.InitializedAt))

	tg, err := telegram.NewDispatcher(cfg.Telegram.BotToken, cfg.Telegram.APIURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}
	if !tg.Configured() {
		log.Warn("TELEGRAM_BOT_TOKEN is not set, telegram replies will fail")
	}
	registry := notify.NewRegistry()
	registry.Register(model.ChannelTelegram, tg)

	var (
		locker      intake.Locker = intake.NewMemoryLocker()
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = redisClient.Close()
			_ = sqlDB.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		locker = intake.NewRedisLocker(redisClient, cfg.IntakeLockTTL, log)
		log.Info("intake lock: redis", zap.String("addr", cfg.Redis.Addr))
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket, log)
	var events kafka.TicketEventProducer
	if producer.Enabled() {
		events = producer
	}

	tickets := service.NewTicketService(service.Deps{
		Gateway:         gw,
		Notifier:        registry,
		Events:          events,
		Log:             log,
		DispatchTimeout: cfg.DispatchTimeout,
	})
	adapter := intake.NewAdapter(model.ChannelTelegram, gw, registry, locker, log)
	search := searchindex.NewClient(cfg.SearchServiceURL, log)

	h, err := router.New(router.Options{
		Tickets:       handler.NewTicketHandler(tickets, search),
		Telegram:      handler.NewTelegramHandler(adapter, registry, log),
		Log:           log,
		Ping:          sqlDB.PingContext,
		JWTSecret:     cfg.AuthJWTSecret,
		WebhookSecret: cfg.Telegram.WebhookSecret,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("router: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:      cfg,
		log:      log,
		httpSrv:  httpSrv,
		tickets:  tickets,
		producer: producer,
		redis:    redisClient,
		closeDB:  sqlDB.Close,
	}, nil
}

// Run запускает HTTP сервер, блокируется до отмены ctx. При остановке дожидается фоновых уведомлений.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Info("HTTP server listening",
		zap.String("addr", a.httpSrv.Addr),
		zap.String("swagger", base+"/swagger"),
		zap.String("health", base+"/health"),
		zap.String("api", base+"/api/v1/"),
		zap.String("webhook", base+"/api/v1/telegram/webhook"))

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	a.tickets.Shutdown()
	if err := a.producer.Close(); err != nil {
		a.log.Warn("kafka producer close", zap.Error(err))
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.closeDB(); err != nil {
		a.log.Warn("database close", zap.Error(err))
	}
	a.log.Info("stopped")
	return runErr
}
