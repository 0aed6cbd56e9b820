package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage backends accepted by Config.Storage.Backend.
const (
	StorageBackendPostgres = "postgres"
	StorageBackendRedis    = "redis"
	StorageBackendMemory   = "memory"
)

// Mailer backends accepted by Config.Mailer.Backend.
const (
	MailerBackendSMTP = "smtp"
	MailerBackendLog  = "log"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, database and Redis
// connections, the delta and email workers, and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"10s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"typowatch" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Storage selects where registrations, reports and subscriptions are kept.
	// The job queue always lives in the database.
	Storage struct {
		// Backend is one of postgres, redis or memory
		Backend string `env:"STORAGE_BACKEND" env-default:"postgres" yaml:"backend"`
	} `yaml:"storage"`

	// Redis configures the redis storage backend
	Redis struct {
		// URL is a redis:// or rediss:// connection URL
		URL string `env:"REDIS_URL" env-default:"redis://localhost:6379/0" yaml:"url"`
		// Namespace is prepended to every key
		Namespace string `env:"REDIS_NAMESPACE" env-default:"typowatch" yaml:"namespace"`
		// PoolSize is the maximum number of socket connections
		PoolSize int `env:"REDIS_POOL_SIZE" env-default:"10" yaml:"poolSize"`
		// MinIdleConns is the minimum number of idle connections kept open
		MinIdleConns int `env:"REDIS_MIN_IDLE_CONNS" env-default:"2" yaml:"minIdleConns"`
		// DialTimeout bounds establishing new connections
		DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" env-default:"5s" yaml:"dialTimeout"`
		// ReadTimeout bounds socket reads
		ReadTimeout time.Duration `env:"REDIS_READ_TIMEOUT" env-default:"3s" yaml:"readTimeout"`
		// WriteTimeout bounds socket writes
		WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" env-default:"3s" yaml:"writeTimeout"`
		// ScanCount is the COUNT hint used when scanning key prefixes
		ScanCount int64 `env:"REDIS_SCAN_COUNT" env-default:"500" yaml:"scanCount"`
	} `yaml:"redis"`

	// Deltas configures the delta worker
	Deltas struct {
		// Interval is how often every registered domain gets a fresh report
		Interval time.Duration `env:"DELTAS_INTERVAL" env-default:"24h" yaml:"interval"`
		// ResolveConcurrency bounds concurrent lookups within one report
		ResolveConcurrency int `env:"DELTAS_RESOLVE_CONCURRENCY" env-default:"16" yaml:"resolveConcurrency"`
		// ResolveTimeout bounds a single variant lookup
		ResolveTimeout time.Duration `env:"DELTAS_RESOLVE_TIMEOUT" env-default:"5s" yaml:"resolveTimeout"`
		// DNSServer optionally overrides the system resolver, as host:port
		DNSServer string `env:"DELTAS_DNS_SERVER" yaml:"dnsServer"`
		// UnreadExpiry deregisters domains whose report was not read for this long
		UnreadExpiry time.Duration `env:"DELTAS_UNREAD_EXPIRY" env-default:"168h" yaml:"unreadExpiry"`
		// MaxAttempts is the maximum number of attempts for a delta job
		MaxAttempts int `env:"DELTAS_MAX_ATTEMPTS" env-default:"5" yaml:"maxAttempts"`
	} `yaml:"deltas"`

	// Emails configures the email worker
	Emails struct {
		// Interval is how often every subscription is checked
		Interval time.Duration `env:"EMAILS_INTERVAL" env-default:"1h" yaml:"interval"`
		// MinInterval is the minimum time between two emails to the same subscription
		MinInterval time.Duration `env:"EMAILS_MIN_INTERVAL" env-default:"23h" yaml:"minInterval"`
		// MaxReportAge holds back reports older than this, as a fresher one is due
		MaxReportAge time.Duration `env:"EMAILS_MAX_REPORT_AGE" env-default:"23h" yaml:"maxReportAge"`
		// MaxAttempts is the maximum number of attempts for an email job
		MaxAttempts int `env:"EMAILS_MAX_ATTEMPTS" env-default:"5" yaml:"maxAttempts"`
	} `yaml:"emails"`

	// Mailer configures how notifications are delivered
	Mailer struct {
		// Backend is one of smtp or log
		Backend string `env:"MAILER_BACKEND" env-default:"log" yaml:"backend"`
		// From is the sender address
		From string `env:"MAILER_FROM" env-default:"typowatch@localhost" yaml:"from"`
		// Host is the SMTP server host
		Host string `env:"MAILER_HOST" env-default:"localhost" yaml:"host"`
		// Port is the SMTP server port
		Port int `env:"MAILER_PORT" env-default:"587" yaml:"port"`
		// Username for SMTP authentication, empty disables authentication
		Username string `env:"MAILER_USERNAME" yaml:"username"`
		// Password for SMTP authentication
		Password string `env:"MAILER_PASSWORD" yaml:"password"`
		// TLS is one of mandatory, opportunistic or none
		TLS string `env:"MAILER_TLS" env-default:"opportunistic" yaml:"tls"`
		// Timeout bounds a single delivery
		Timeout time.Duration `env:"MAILER_TIMEOUT" env-default:"30s" yaml:"timeout"`
	} `yaml:"mailer"`

	// Site holds public facing settings used in outgoing emails
	Site struct {
		// BaseURL is the public address of the API, used for report and unsubscribe links
		BaseURL string `env:"SITE_BASE_URL" env-default:"http://localhost:8080" yaml:"baseURL"`
	} `yaml:"site"`

	// Worker configures the background job runner
	Worker struct {
		// MaxWorkers is the number of jobs processed concurrently
		MaxWorkers int `env:"WORKER_MAX_WORKERS" env-default:"10" yaml:"maxWorkers"`
	} `yaml:"worker"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
// An empty path reads the configuration from the environment only.
func Load(configPath string) (*Config, error) {
	var cfg Config
	var err error
	if configPath == "" {
		err = cleanenv.ReadEnv(&cfg)
	} else {
		err = cleanenv.ReadConfig(configPath, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageBackendPostgres, StorageBackendRedis, StorageBackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Mailer.Backend {
	case MailerBackendSMTP, MailerBackendLog:
	default:
		return fmt.Errorf("unknown mailer backend %q", c.Mailer.Backend)
	}

	if c.Deltas.ResolveConcurrency < 1 {
		return fmt.Errorf("deltas.resolveConcurrency must be positive, got %d", c.Deltas.ResolveConcurrency)
	}

	return nil
}
