package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ログイン時にゲストカートをどう扱うか
type CartLoginPolicy string

const (
	// リモートのカートで置き換える（ゲストカートは残すが統合しない）
	CartLoginReplace CartLoginPolicy = "replace"
	// ゲストカートをリモートへ足してから読み直す
	CartLoginMerge CartLoginPolicy = "merge"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DatabaseURL string // あれば最優先

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	AuthJWTSecret string // 認証プロバイダのJWT署名シークレット
	AuthPagePath  string // adminガードのリダイレクト先

	FEURL string // フロントURL（CORS）

	RedisAddr     string // 空ならインメモリ
	RedisPassword string
	RedisDB       int

	CatalogCacheTTL    time.Duration
	CatalogRefreshCron string // 空なら定期リフレッシュなし

	CartLoginPolicy CartLoginPolicy
	CartDedupWindow time.Duration // 0なら無効（二重送信対策はUI側）

	SendGridAPIKey string // 空ならメール送信しない
	EmailSender    string

	NewsletterDiscountCode string
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getenv("POSTGRES_DB", "boring_coffee"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		AuthJWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		AuthPagePath:  getenv("AUTH_PAGE_PATH", "/auth"),

		FEURL: getenv("FE_URL", "http://localhost:3000"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		CatalogRefreshCron: os.Getenv("CATALOG_REFRESH_CRON"),

		CartLoginPolicy: CartLoginPolicy(strings.ToLower(getenv("CART_LOGIN_POLICY", string(CartLoginReplace)))),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		EmailSender:    getenv("EMAIL_SENDER", "hello@theboringcoffee.com"),

		NewsletterDiscountCode: getenv("NEWSLETTER_DISCOUNT_CODE", "WELCOME10"),
	}

	var err error
	if cfg.PostgresPort, err = atoiDefault("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = atoiDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.CatalogCacheTTL, err = durationDefault("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CartDedupWindow, err = durationDefault("CART_DEDUP_WINDOW", 0); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.AuthJWTSecret == "" {
		return Config{}, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" && cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("DATABASE_URL or POSTGRES_PASSWORD is required")
	}
	switch cfg.CartLoginPolicy {
	case CartLoginReplace, CartLoginMerge:
	default:
		return Config{}, fmt.Errorf("CART_LOGIN_POLICY must be replace or merge: %q", cfg.CartLoginPolicy)
	}
	if cfg.CatalogCacheTTL <= 0 {
		return Config{}, fmt.Errorf("CATALOG_CACHE_TTL must be positive")
	}

	return cfg, nil
}

// DSN は gorm postgres 用の接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
