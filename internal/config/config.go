package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Logger  logger.LoggerConfig `mapstructure:"logger"`
	Storage StorageConfig       `mapstructure:"storage"`
	Bridge  BridgeConfig        `mapstructure:"bridge"`
	Client  ClientConfig        `mapstructure:"client"`
	Share   ShareConfig         `mapstructure:"share"`
	Redis   RedisConfig         `mapstructure:"redis"`
	NATS    NATSConfig          `mapstructure:"nats"`
	SMTP    SMTPConfig          `mapstructure:"smtp"`
	Metrics MetricsConfig       `mapstructure:"metrics"`
	Tracing TracingConfig       `mapstructure:"tracing"`
}

// StorageConfig describes the remote object store. AccessKey/SecretKey are
// the long-lived credential: the bridge always holds them, a standalone
// client only when direct uploads are accepted.
type StorageConfig struct {
	Endpoint      string `mapstructure:"endpoint"` // host:port, no scheme
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	Region        string `mapstructure:"region"`
	PublicBaseURL string `mapstructure:"public_base_url"` // e.g. https://cdn.example.com/listings
}

// HasCredential reports whether direct writes to the store are possible.
func (s StorageConfig) HasCredential() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

type BridgeConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "remote" or "local"
	DataDir         string        `mapstructure:"data_dir"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ClientConfig struct {
	Origin          string        `mapstructure:"origin"` // where the bridge would live, empty = standalone
	CacheDir        string        `mapstructure:"cache_dir"`
	CacheQuotaBytes int64         `mapstructure:"cache_quota_bytes"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	DirectUploads   bool          `mapstructure:"direct_uploads"`
}

type ShareConfig struct {
	Code     string        `mapstructure:"code"`
	Interval time.Duration `mapstructure:"interval"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Configured reports whether enough SMTP settings are present to send mail.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Port > 0 && s.From != "" && s.To != ""
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output_file", "stdout")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "apartments")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.public_base_url", "")

	v.SetDefault("bridge.port", "3000")
	v.SetDefault("bridge.mode", "remote")
	v.SetDefault("bridge.data_dir", "data")
	v.SetDefault("bridge.max_body_bytes", 25<<20)
	v.SetDefault("bridge.shutdown_timeout", "10s")

	v.SetDefault("client.origin", "")
	v.SetDefault("client.cache_dir", defaultCacheDir())
	v.SetDefault("client.cache_quota_bytes", 5<<20)
	v.SetDefault("client.probe_timeout", "1500ms")
	v.SetDefault("client.direct_uploads", true)

	v.SetDefault("share.code", "")
	v.SetDefault("share.interval", "5s")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.connect_timeout", "5s")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.to", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "apartment-bridge")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + string(os.PathSeparator) + "apartment"
	}
	return ".apartment"
}

// LoadConfig reads defaults, an optional YAML file at path (file or
// directory) and FLAT_* environment variables, in increasing priority.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		if fi, err := os.Stat(path); err == nil {
			if fi.IsDir() {
				v.AddConfigPath(path)
				v.SetConfigName("config")
				v.SetConfigType("yaml")
			} else {
				v.SetConfigFile(path)
			}
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("FLAT") // FLAT_STORAGE_BUCKET
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// ValidateBridge checks the settings the bridge cannot start without.
func (c *Config) ValidateBridge() error {
	switch c.Bridge.Mode {
	case "remote":
		if !c.Storage.HasCredential() {
			return errors.New("bridge in remote mode requires storage.endpoint, storage.access_key and storage.secret_key")
		}
	case "local":
		if c.Bridge.DataDir == "" {
			return errors.New("bridge in local mode requires bridge.data_dir")
		}
	default:
		return fmt.Errorf("unknown bridge.mode %q", c.Bridge.Mode)
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required")
	}
	return nil
}

// ValidateClient checks that the client has at least one way to reach a
// remote document, or runs purely on its local cache.
func (c *Config) ValidateClient() error {
	if c.Client.CacheDir == "" {
		return errors.New("client.cache_dir is required")
	}
	if c.Client.ProbeTimeout <= 0 {
		return errors.New("client.probe_timeout must be positive")
	}
	if c.Share.Code != "" && c.Share.Interval <= 0 {
		return errors.New("share.interval must be positive when share.code is set")
	}
	return nil
}
