// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// PlaceholderPriceID — значение-заглушка для незаполненного идентификатора цены.
const PlaceholderPriceID = "price_REPLACE_ME"

// Ключи тарифов, которые клиенты передают при оформлении подписки.
const (
	PlanProMonthly = "PRO_MONTHLY"
	PlanProYearly  = "PRO_YEARLY"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	SiteURL                 string `yaml:"site_url" env:"SITE_URL" env-default:"http://localhost:5173"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	Auth                    `yaml:"auth"`
	Stripe                  `yaml:"stripe"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env:"HTTP_RATE_LIMIT" env-default:"5"`
	RateBurst   int           `yaml:"rate_burst" env:"HTTP_RATE_BURST" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT" env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"10m"`
}

// RabbitMQ структура для настройки подключения к брокеру уведомлений.
// Пустой URL отключает публикацию уведомлений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// Auth структура для проверки токенов провайдера личности
type Auth struct {
	JWTSecretKey string `yaml:"jwt_secret_key" env:"AUTH_JWT_SECRET" env-required:"true"`
	Issuer       string `yaml:"issuer" env:"AUTH_ISSUER"`
}

// Stripe структура с ключами платёжной системы и таблицей тарифов
type Stripe struct {
	SecretKey         string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret     string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	PriceIDProMonthly string `yaml:"price_id_pro_monthly" env:"STRIPE_PRICE_ID_PRO_MONTHLY" env-default:"price_REPLACE_ME"`
	PriceIDProYearly  string `yaml:"price_id_pro_yearly" env:"STRIPE_PRICE_ID_PRO_YEARLY" env-default:"price_REPLACE_ME"`
}

// SMTP структура для отправки писем сервисом уведомлений
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
}

// Plans возвращает статическую таблицу "ключ тарифа -> ID цены".
func (s Stripe) Plans() map[string]string {
	return map[string]string{
		PlanProMonthly: s.PriceIDProMonthly,
		PlanProYearly:  s.PriceIDProYearly,
	}
}

// Validate перечисляет все незаполненные настройки платёжной системы.
// Ошибка не фатальна для запуска: соответствующие операции сами откажут с ErrConfiguration.
func (s Stripe) Validate() error {
	var problems []string
	if strings.TrimSpace(s.SecretKey) == "" {
		problems = append(problems, "STRIPE_SECRET_KEY is not set (https://dashboard.stripe.com/apikeys)")
	}
	if strings.TrimSpace(s.WebhookSecret) == "" {
		problems = append(problems, "STRIPE_WEBHOOK_SECRET is not set (https://dashboard.stripe.com/webhooks)")
	}
	for key, priceID := range s.Plans() {
		if priceID == "" || priceID == PlaceholderPriceID {
			problems = append(problems, fmt.Sprintf("price id for %s is not set", key))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Load читает .env (если он есть), затем YAML из CONFIG_PATH либо только переменные окружения.
func Load() (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: load .env: %w", op, err)
	}

	var cfg Config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"SiteURL: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  CacheTTL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Stripe:\n"+
			"  SecretKeySet: %t\n"+
			"  WebhookSecretSet: %t\n"+
			"  Plans: %v\n",
		c.Env,
		c.SiteURL,
		c.AddressRedis,
		c.DB,
		c.CacheTTL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.SecretKey != "",
		c.WebhookSecret != "",
		c.Plans(),
	)
}
