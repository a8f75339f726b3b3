package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/handler"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/cache"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/cartstore"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/db"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/notify"
	infraRepo "github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/repository"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/static"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/system"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/logger"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/server"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/validator"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

const (
	shutdownTimeout = 15 * time.Second
	initTimeout     = 30 * time.Second
	redisKeyPrefix  = "boring-coffee:"
)

func main() {
	// .env は任意（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.GoEnv)

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	//キャッシュとカートの保存先（REDIS_ADDRが無ければインメモリ）
	var (
		catalogCache interface {
			usecase.CatalogCache
			usecase.CacheStatsReporter
		}
		cartStore   usecase.LocalCartStore
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		catalogCache = cache.NewRedisCache(redisClient, redisKeyPrefix, cfg.CatalogCacheTTL)
		cartStore = cartstore.NewRedisStore(redisClient, cartstore.DefaultTTL)
		log.Info("using redis", "addr", cfg.RedisAddr)
	} else {
		catalogCache = cache.NewMemoryCache(cfg.CatalogCacheTTL)
		cartStore = cartstore.NewMemoryStore()
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	discountRepo := infraRepo.NewDiscountCodeGormRepository(gormDB)
	subscriberRepo := infraRepo.NewSubscriberGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	ids := system.UUIDGenerator{}
	clock := system.RealClock{}
	codes, err := system.NewCodeGenerator(system.DefaultCodeLength)
	if err != nil {
		log.Error("code generator", "err", err)
		os.Exit(1)
	}

	var notifier usecase.Notifier = notify.Noop{}
	if cfg.SendGridAPIKey != "" {
		notifier = notify.NewSendGrid(cfg.SendGridAPIKey, cfg.EmailSender)
	}

	//Usecase生成
	fallback := static.Products()
	catalogUC := usecase.NewCatalogUsecase(productRepo, catalogCache, fallback, log)
	cartUC := usecase.NewCartUsecase(cartRepo, catalogUC, cartStore, ids, clock, usecase.CartOptions{
		LoginPolicy: cfg.CartLoginPolicy,
		DedupWindow: cfg.CartDedupWindow,
	}, log)
	orderUC := usecase.NewOrderUsecase(txm, validator.New(), notifier, log)
	adminProductUC := usecase.NewAdminProductUsecase(productRepo, txm, catalogUC, db.NewPinger(gormDB), catalogCache, fallback, log)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm)
	discountUC := usecase.NewDiscountCodeUsecase(discountRepo, auditRepo, codes, clock)
	newsletterUC := usecase.NewNewsletterUsecase(subscriberRepo, validator.New(), notifier, cfg.NewsletterDiscountCode, log)
	userUC := usecase.NewUserUsecase(userRepo)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	//起動時にカタログを確認（失敗してもstaticで返せるので続行）
	initCtx, cancel := context.WithTimeout(context.Background(), initTimeout)
	rep := catalogUC.Initialize(initCtx)
	cancel()
	log.Info("catalog initialized", "seeded", rep.Seeded, "warmed", rep.Warmed, "error", rep.Error)

	//定期リフレッシュ
	scheduler := cron.New()
	if cfg.CatalogRefreshCron != "" {
		if err := scheduler.AddFunc(cfg.CatalogRefreshCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
			defer cancel()
			if err := catalogUC.Refresh(ctx); err != nil {
				log.Warn("catalog refresh failed", "err", err)
			}
		}); err != nil {
			log.Error("invalid CATALOG_REFRESH_CRON", "err", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	//Handler生成とルート登録
	e := server.New(cfg, log)
	server.RegisterRoutes(e, cfg, userRepo, server.Handlers{
		Product:      handler.NewProductHandler(catalogUC),
		Cart:         handler.NewCartHandler(cartUC, userUC),
		Order:        handler.NewOrderHandler(orderUC, cartUC),
		Newsletter:   handler.NewNewsletterHandler(newsletterUC),
		DiscountCode: handler.NewDiscountCodeHandler(discountUC),
		AdminProduct: handler.NewAdminProductHandler(adminProductUC, catalogUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminUser:    handler.NewAdminUserHandler(userUC),
		AdminAudit:   handler.NewAdminAuditHandler(auditUC),
	})

	//Server起動
	go func() {
		addr := ":" + cfg.Port
		log.Info("server started", "addr", addr, "env", cfg.GoEnv)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				return e.Shutdown(ctx)
			},
			"cron": func(ctx context.Context) error {
				scheduler.Stop()
				return nil
			},
			"redis": func(ctx context.Context) error {
				if redisClient == nil {
					return nil
				}
				return redisClient.Close()
			},
			"database": func(ctx context.Context) error {
				return db.Close(gormDB)
			},
		},
	)

	exitCode := <-wait
	log.Info("server exited", "code", exitCode)
	os.Exit(exitCode)
}
