package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `env:"ENV" env-required:"true"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info" env-description:"logging level, debug, info, etc."`
	HttpServer HttpServer
	Database   Database
	Limiter    Limiter
	SMTP       SMTPConfig
	Email      EmailConfig
	Cache      Cache
	Reset      ResetConfig
	CSRF       CSRFConfig
}

type HttpServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8080"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"4s"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	CORSOrigins []string      `env:"HTTP_CORS_ORIGINS" env-default:"http://localhost:3000" env-separator:","`
}

type Database struct {
	Net                string        `env:"DB_NET" env-default:"tcp"`
	Server             string        `env:"DB_SERVER" env-required:"true"`
	DBName             string        `env:"DB_NAME" env-required:"true"`
	User               string        `env:"DB_USER" env-required:"true"`
	Password           string        `env:"DB_PASSWORD" env-required:"true"`
	TimeZone           string        `env:"DB_TIMEZONE" env-default:"UTC"`
	Timeout            time.Duration `env:"DB_TIMEOUT" env-default:"2s"`
	MaxIdleConnections int           `env:"DB_MAX_IDLE_CONNECTIONS" env-default:"40"`
	MaxOpenConnections int           `env:"DB_MAX_OPEN_CONNECTIONS" env-default:"40"`
}

type Limiter struct {
	RPS   int           `env:"LIMITER_RPS" env-default:"10"`
	Burst int           `env:"LIMITER_BURST" env-default:"20"`
	TTL   time.Duration `env:"LIMITER_TTL" env-default:"10m"`
}

type SMTPConfig struct {
	Host string `env:"SMTP_HOST" env-required:"true"`
	Port int    `env:"SMTP_PORT" env-required:"true"`
	From string `env:"SMTP_FROM" env-required:"true"`
	Pass string `env:"SMTP_PASS" env-required:"true"`
}

const (
	DeliverySync  = "sync"
	DeliveryQueue = "queue"
)

type EmailConfig struct {
	Enabled      bool   `env:"EMAIL_ENABLED" env-default:"false"`
	Delivery     string `env:"EMAIL_DELIVERY" env-default:"sync" env-description:"sync sends in request, queue hands off to asynq"`
	TemplatesDir string `env:"EMAIL_TEMPLATES_DIR" env-default:"./templates"`
	Templates    EmailTemplates
}

type EmailTemplates struct {
	PasswordReset string `env:"EMAIL_TEMPLATE_PASSWORD_RESET" env-default:"password_reset.html"`
}

type Cache struct {
	Type  string `env:"REDIS_TYPE" env-required:"true" env-description:"specifies provider, one of redis/redisCluster"`
	Redis struct {
		Address  string `env:"REDIS_ADDR" env-default:"" env-description:"redis host:port single instance"`
		Password string `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize int    `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
	}
	RedisCluster struct {
		Addresses []string `env:"REDIS_CLUSTER_ADDRS" env-default:"" env-description:"redis cluster nodes: ['172.27.29.90:7000','172.27.29.91:7001'', '172.27.29.92:7002'']"`
		Password  string   `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize  int      `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
	}
}

const (
	RateLimitRedis  = "redis"
	RateLimitMemory = "memory"
)

type ResetConfig struct {
	CodeLength       int           `env:"RESET_CODE_LENGTH" env-default:"6"`
	CodeTTL          time.Duration `env:"RESET_CODE_TTL" env-default:"10m"`
	VerifiedTTL      time.Duration `env:"RESET_VERIFIED_TTL" env-default:"5m"`
	MaxAttempts      int           `env:"RESET_MAX_ATTEMPTS" env-default:"5"`
	StartLimit       int           `env:"RESET_START_LIMIT" env-default:"3"`
	StartWindow      time.Duration `env:"RESET_START_WINDOW" env-default:"15m"`
	VerifyLimit      int           `env:"RESET_VERIFY_LIMIT" env-default:"5"`
	VerifyWindow     time.Duration `env:"RESET_VERIFY_WINDOW" env-default:"15m"`
	SecretSize       int           `env:"RESET_SECRET_SIZE" env-default:"32" env-description:"random bytes in the post-verification reset token"`
	TokenPepper      string        `env:"RESET_TOKEN_PEPPER" env-required:"true"`
	RateLimitBackend string        `env:"RESET_RATE_LIMIT_BACKEND" env-default:"redis" env-description:"one of redis/memory"`
	CleanupSpec      string        `env:"RESET_CLEANUP_SPEC" env-default:"@every 5m" env-description:"asynq cron spec for expired token cleanup"`
}

type CSRFConfig struct {
	SigningKey string        `env:"CSRF_SIGNING_KEY" env-required:"true"`
	TTL        time.Duration `env:"CSRF_TTL" env-default:"1h"`
	Secure     bool          `env:"CSRF_COOKIE_SECURE" env-default:"true"`
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config from environment: %s", err)
	}

	return cfg
}

func Load() (*Config, error) {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
