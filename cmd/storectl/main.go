// storectl は運用向けのCLI（シード・取り込み・疎通確認・開発用トークン）。
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/cache"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/db"
	infraRepo "github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/repository"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/static"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/logger"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// 監査ログに残す操作者
const cliActor = "storectl"

// コマンド共通の依存
type app struct {
	cfg     config.Config
	log     *slog.Logger
	db      *gorm.DB
	catalog *usecase.CatalogUsecase
	admin   *usecase.AdminProductUsecase
	users   *usecase.UserUsecase
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.GoEnv)

	gormDB, err := db.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, err
	}

	productRepo := infraRepo.NewProductGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)
	memCache := cache.NewMemoryCache(cfg.CatalogCacheTTL)
	fallback := static.Products()

	catalog := usecase.NewCatalogUsecase(productRepo, memCache, fallback, log)
	return &app{
		cfg:     cfg,
		log:     log,
		db:      gormDB,
		catalog: catalog,
		admin:   usecase.NewAdminProductUsecase(productRepo, txm, catalog, db.NewPinger(gormDB), memCache, fallback, log),
		users:   usecase.NewUserUsecase(infraRepo.NewUserGormRepository(gormDB)),
	}, nil
}

func (a *app) close() {
	if err := db.Close(a.db); err != nil {
		a.log.Warn("db close failed", "err", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storectl",
		Short:         "The Boring Coffee operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSeedCmd(),
		newImportCmd(),
		newDebugConnectionCmd(),
		newGrantAdminCmd(),
		newDevTokenCmd(),
	)
	return root
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
