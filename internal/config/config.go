package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BotModePolling = "polling"
	BotModeWebhook = "webhook"

	TelegramWebhookPath = "/telegram/webhook"
)

type Config struct {
	AppEnv   string
	HTTPAddr string
	HostURL  string

	BotToken         string
	BotMode          string
	BotWebhookSecret string

	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	LavaAPIURL     string
	LavaShopID     string
	LavaSecretKey  string
	LavaWebhookKey string
	LavaTimeout    time.Duration

	NotifyTimeout time.Duration
	NotifyWorkers int
	NotifyQueue   int
	NotifyLang    string

	PaymentLinkTTL time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	PlansFile string
	Currency  string
}

func Load() Config {
	return Config{
		AppEnv:   env("APP_ENV", "development"),
		HTTPAddr: env("HTTP_ADDR", ":8000"),
		HostURL:  strings.TrimRight(env("HOST_URL", "http://localhost:8000"), "/"),

		BotToken:         env("BOT_TOKEN", ""),
		BotMode:          strings.ToLower(env("BOT_MODE", BotModePolling)),
		BotWebhookSecret: env("WEBHOOK_SECRET", ""),

		PostgresDSN: env("POSTGRES_DSN", ""),

		RedisAddr:     net.JoinHostPort(env("REDIS_HOST", "localhost"), env("REDIS_PORT", "6379")),
		RedisPassword: env("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		RedisPrefix:   env("REDIS_PREFIX", "sub_pay_bot"),

		LavaAPIURL:     env("LAVA_API_URL", "https://api.lava.ru"),
		LavaShopID:     env("LAVA_SHOP_ID", ""),
		LavaSecretKey:  env("LAVA_SECRET_KEY", ""),
		LavaWebhookKey: env("LAVA_WEBHOOK_KEY", ""),
		LavaTimeout:    envDuration("LAVA_TIMEOUT", 15*time.Second),

		NotifyTimeout: envDuration("NOTIFY_TIMEOUT", 5*time.Second),
		NotifyWorkers: envInt("NOTIFY_WORKERS", 2),
		NotifyQueue:   envInt("NOTIFY_QUEUE", 100),
		NotifyLang:    strings.ToLower(env("NOTIFY_LANG", "ru")),

		PaymentLinkTTL: envDuration("PAYMENT_LINK_TTL", 10*time.Minute),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 40),

		PlansFile: env("PLANS_FILE", ""),
		Currency:  strings.ToUpper(env("CURRENCY", "RUB")),
	}
}

// Validate reports every missing or malformed setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.LavaShopID == "" {
		errs = append(errs, errors.New("LAVA_SHOP_ID is required"))
	}
	if c.LavaSecretKey == "" {
		errs = append(errs, errors.New("LAVA_SECRET_KEY is required"))
	}
	if c.LavaWebhookKey == "" {
		errs = append(errs, errors.New("LAVA_WEBHOOK_KEY is required"))
	}
	if u, err := url.Parse(c.HostURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("HOST_URL must be an absolute URL, got %q", c.HostURL))
	}
	switch c.BotMode {
	case BotModePolling:
	case BotModeWebhook:
		if !strings.HasPrefix(c.HostURL, "https://") {
			errs = append(errs, errors.New("BOT_MODE=webhook needs an https HOST_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("BOT_MODE must be %q or %q, got %q", BotModePolling, BotModeWebhook, c.BotMode))
	}
	if c.NotifyWorkers <= 0 {
		errs = append(errs, errors.New("NOTIFY_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) TelegramWebhookURL() string {
	return c.HostURL + TelegramWebhookPath
}

func InitLogger(appEnv string) *slog.Logger {
	var logger *slog.Logger
	if appEnv == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	slog.SetDefault(logger)
	return logger
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := env(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := env(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", key, "value", v)
		return def
	}
	return f
}

// envDuration accepts Go durations ("15s") and bare seconds ("15").
func envDuration(key string, def time.Duration) time.Duration {
	v := env(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
	return def
}
