// Package config предоставляет структуры и функции для загрузки конфигурации сервисов.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Окружения запуска.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config общая структура для хранения настроек всех процессов.
type Config struct {
	Env                     string        `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string        `yaml:"migrations_path" env-default:"./migrations"`
	CollaboratorTimeout     time.Duration `yaml:"collaborator_timeout" env-default:"5s"`
	PlanCacheTTL            time.Duration `yaml:"plan_cache_ttl" env-default:"10m"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Auth                    AuthPolicy `yaml:"auth"`
	Session                 Session    `yaml:"session"`
	Sweeper                 Sweeper    `yaml:"sweeper"`
	RabbitMQ                RabbitMQ   `yaml:"rabbitmq"`
	SMTP                    SMTP       `yaml:"smtp"`
	RateLimit               RateLimit  `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken ключ подписи и время жизни токенов.
// Ключ читается один раз при старте процесса.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// AuthPolicy параметры блокировки и кодов подтверждения.
type AuthPolicy struct {
	LockThreshold       int           `yaml:"lock_threshold" env-default:"5"`
	CodeLength          int           `yaml:"code_length" env-default:"6"`
	CodeValidity        time.Duration `yaml:"code_validity" env-default:"15m"`
	BcryptCost          int           `yaml:"bcrypt_cost" env-default:"10"`
	PendingSignupMargin time.Duration `yaml:"pending_signup_margin" env-default:"5m"`
}

// Session параметры сессий.
type Session struct {
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"30m"`
}

// Sweeper параметры фоновой очистки.
type Sweeper struct {
	Interval time.Duration `yaml:"interval" env-default:"1m"`
}

// RabbitMQ параметры подключения к брокеру.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
	Exchange   string        `yaml:"exchange" env-default:"notifications"`
}

// SMTP параметры почтового сервера.
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

// RateLimit ограничение частоты запросов к открытым эндпоинтам входа.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает и проверяет конфиг из YAML-файла.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	if c.Env != EnvLocal && c.JWTSecretKey == "" {
		return errors.New("jwt_secret_key is required outside local env")
	}
	if c.Auth.LockThreshold < 1 {
		return errors.New("auth.lock_threshold must be positive")
	}
	if c.Auth.CodeLength < 4 || c.Auth.CodeLength > 10 {
		return errors.New("auth.code_length must be between 4 and 10")
	}
	if c.Auth.CodeValidity <= 0 {
		return errors.New("auth.code_validity must be positive")
	}
	return nil
}

// CodeValidityMinutes время жизни кода в минутах для писем и ответов API.
func (a AuthPolicy) CodeValidityMinutes() int {
	return int(a.CodeValidity / time.Minute)
}

// String печатает конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"Auth:\n"+
			"  LockThreshold: %d\n"+
			"  CodeLength: %d\n"+
			"  CodeValidity: %s\n"+
			"Session:\n"+
			"  IdleTimeout: %s\n",
		c.Env,
		c.MigrationsPath,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		c.Auth.LockThreshold,
		c.Auth.CodeLength,
		c.Auth.CodeValidity,
		c.Session.IdleTimeout,
	)
}
