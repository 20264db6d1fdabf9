package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// SchedulerConfig points at the external scheduler service and tells it
// where to call back.
type SchedulerConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	WebhookBaseURL string        `mapstructure:"webhook_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// DispatchConfig bounds transport sends and provider config caching.
type DispatchConfig struct {
	SendTimeout      time.Duration `mapstructure:"send_timeout"`
	ProviderCacheTTL time.Duration `mapstructure:"provider_cache_ttl"`
}

// WorkerConfig drives the reconciler process.
type WorkerConfig struct {
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	StalenessThreshold time.Duration `mapstructure:"staleness_threshold"`
	EventRetention     time.Duration `mapstructure:"event_retention"`
	MetricsPort        int           `mapstructure:"metrics_port"`
}

// envOverrides are the few settings that deployments commonly inject
// through the environment instead of config.yaml.
type envOverrides struct {
	DatabaseHost     string `envconfig:"DB_HOST"`
	DatabasePassword string `envconfig:"DB_PASSWORD"`
	RedisURL         string `envconfig:"REDIS_URL"`
	SchedulerAPIURL  string `envconfig:"SCHEDULER_API_URL"`
	WebhookBaseURL   string `envconfig:"WEBHOOK_BASE_URL"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("scheduler.timeout", 10*time.Second)
	viper.SetDefault("dispatch.send_timeout", 15*time.Second)
	viper.SetDefault("dispatch.provider_cache_ttl", time.Minute)
	viper.SetDefault("worker.poll_interval", time.Minute)
	viper.SetDefault("worker.staleness_threshold", 15*time.Minute)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to read env overrides: %w", err)
	}
	if env.DatabaseHost != "" {
		config.Database.Host = env.DatabaseHost
	}
	if env.DatabasePassword != "" {
		config.Database.Password = env.DatabasePassword
	}
	if env.RedisURL != "" {
		config.Redis.URL = env.RedisURL
	}
	if env.SchedulerAPIURL != "" {
		config.Scheduler.APIURL = env.SchedulerAPIURL
	}
	if env.WebhookBaseURL != "" {
		config.Scheduler.WebhookBaseURL = env.WebhookBaseURL
	}

	return &config, nil
}
