package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, database connection,
// object storage, authentication, the job queues and graceful shutdown
// behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":3000" yaml:"addr"`
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
		DatabaseName string `env:"DATABASE_NAME" env-default:"trainer" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// ObjectStorage contains the S3-compatible storage connection settings used
	// for dataset splits and model artifacts
	ObjectStorage struct {
		// Endpoint is the storage server host and port, without scheme
		Endpoint string `env:"OBJECT_STORAGE_ENDPOINT" env-default:"localhost:9000" yaml:"endpoint"`
		// AccessKey for storage authentication
		AccessKey string `env:"OBJECT_STORAGE_ACCESS_KEY" env-default:"minioadmin" yaml:"accessKey"`
		// SecretKey for storage authentication
		SecretKey string `env:"OBJECT_STORAGE_SECRET_KEY" env-default:"minioadmin" yaml:"secretKey"`
		// Bucket is the bucket name, created on startup when missing
		Bucket string `env:"OBJECT_STORAGE_BUCKET" env-default:"trainer" yaml:"bucket"`
		// UseSSL enables TLS for the storage connection
		UseSSL bool `env:"OBJECT_STORAGE_USE_SSL" env-default:"false" yaml:"useSSL"`
		// PresignExpiry bounds the lifetime of presigned artifact download URLs
		PresignExpiry time.Duration `env:"OBJECT_STORAGE_PRESIGN_EXPIRY" env-default:"15m" yaml:"presignExpiry"`
	} `yaml:"objectStorage"`

	// JWT contains the RS256 key pair used for API authentication
	JWT struct {
		// PublicKey is the PEM-encoded RSA public key used to verify tokens
		PublicKey string `env:"JWT_PUBLIC_KEY" yaml:"publicKey"`
		// PrivateKey is the PEM-encoded RSA private key used by the jwt subcommand to sign tokens
		PrivateKey string `env:"JWT_PRIVATE_KEY" yaml:"privateKey"`
	} `yaml:"jwt"`

	// Ingest configures the dataset ingestion queue
	Ingest struct {
		// MaxWorkers bounds the number of concurrent ingestion jobs
		MaxWorkers int `env:"INGEST_MAX_WORKERS" env-default:"2" yaml:"maxWorkers"`
		// MaxAttempts is the number of tries before a dataset is marked failed
		MaxAttempts int `env:"INGEST_MAX_ATTEMPTS" env-default:"5" yaml:"maxAttempts"`
	} `yaml:"ingest"`

	// Training configures the model training queue
	Training struct {
		// MaxWorkers bounds the number of concurrent training jobs
		MaxWorkers int `env:"TRAINING_MAX_WORKERS" env-default:"2" yaml:"maxWorkers"`
		// MaxAttempts is the number of tries before a run is marked failed
		MaxAttempts int `env:"TRAINING_MAX_ATTEMPTS" env-default:"3" yaml:"maxAttempts"`
	} `yaml:"training"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
