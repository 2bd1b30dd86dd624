package config

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Drivers de armazenamento suportados.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config armazena todas as configurações do serviço de clientes e contratos.
type Config struct {
	// Geral
	Port           string        `envconfig:"PORT" default:"8080"`
	Environment    string        `envconfig:"ENV" default:"development"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`

	// Persistência
	StorageDriver  string        `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	DBTimeout      time.Duration `envconfig:"DB_TIMEOUT" default:"5s"` // Módulo: Context and Timeouts
	MigrateOnStart bool          `envconfig:"MIGRATE_ON_START" default:"false"`

	// Cache (Redis). Endereço vazio desativa o cache e o rate limit.
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	// Segurança (JWT). Chave vazia desativa a autenticação.
	JWTSecretKey string        `envconfig:"JWT_SECRET_KEY"`
	TokenExpiry  time.Duration `envconfig:"JWT_EXPIRY" default:"60m"`

	// Rate Limiting
	RateLimitMaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"100"`
	RateLimitPeriod      time.Duration `envconfig:"RATE_LIMIT_PERIOD" default:"1m"`
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL deve ser definida quando STORAGE_DRIVER=postgres")
		}
	case StorageDriverMemory:
	default:
		return nil, errors.New("STORAGE_DRIVER deve ser 'postgres' ou 'memory'")
	}
	if cfg.RateLimitMaxRequests <= 0 {
		return nil, errors.New("RATE_LIMIT_MAX_REQUESTS deve ser positivo")
	}
	return &cfg, nil
}

// AuthEnabled informa se as rotas /v1 exigem token.
func (c *Config) AuthEnabled() bool { return c.JWTSecretKey != "" }

// CacheEnabled informa se o Redis foi configurado.
func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

// IsProduction informa se o serviço roda em produção.
func (c *Config) IsProduction() bool { return c.Environment == "production" }
