package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Mapbox   MapboxConfig
	Gateway  GatewayConfig
	Route    RouteConfig
	Catalog  CatalogConfig
	Log      LogConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MapboxConfig struct {
	BaseURL        string
	AccessToken    string
	Profile        string
	GeocodeCountry string
	RetryAttempts  int
	RetryBackoff   time.Duration
}

// GatewayConfig - лимиты и кэш шлюза к провайдеру
type GatewayConfig struct {
	CallTimeout      time.Duration
	MaxInFlight      int64
	QuotaBudget      int64
	QuotaWindow      time.Duration
	CallerRate       float64
	CallerBurst      int
	RoadRouteTTL     time.Duration
	MultiWaypointTTL time.Duration
	GeocodeTTL       time.Duration
	CacheBackend     string // memory | redis
}

type RouteConfig struct {
	DefaultCruiseSpeedKmh float64
	MaxSelection          int
	MaxConcurrentLegs     int
	CacheMaxAge           time.Duration
	SweepInterval         time.Duration
	SessionIdleTTL        time.Duration
}

type CatalogConfig struct {
	Source      string // postgres | geojson
	GeoJSONPath string
}

type LogConfig struct {
	Level  string
	Format string
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	BatchSize         int64
	MaxRetries        int
	// ClaimIdle - через сколько простоя в pending сообщение забирается другим потребителем
	ClaimIdle time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_ENV", "development")
	v.SetDefault("API_CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "routes")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 60)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("MAPBOX_BASE_URL", "https://api.mapbox.com")
	v.SetDefault("MAPBOX_PROFILE", "mapbox/driving")
	v.SetDefault("MAPBOX_GEOCODE_COUNTRY", "br")
	v.SetDefault("MAPBOX_RETRY_ATTEMPTS", 2)
	v.SetDefault("MAPBOX_RETRY_BACKOFF_MS", 250)

	v.SetDefault("GATEWAY_CALL_TIMEOUT", 15)
	v.SetDefault("GATEWAY_MAX_IN_FLIGHT", 6)
	v.SetDefault("GATEWAY_QUOTA_BUDGET", 1000)
	v.SetDefault("GATEWAY_QUOTA_WINDOW", 3600)
	v.SetDefault("GATEWAY_CALLER_RATE", 5.0)
	v.SetDefault("GATEWAY_CALLER_BURST", 10)
	v.SetDefault("GATEWAY_ROAD_TTL", 24*3600)
	v.SetDefault("GATEWAY_MULTI_WAYPOINT_TTL", 7*24*3600)
	v.SetDefault("GATEWAY_GEOCODE_TTL", 30*24*3600)
	v.SetDefault("GATEWAY_CACHE_BACKEND", "memory")

	v.SetDefault("ROUTE_DEFAULT_CRUISE_SPEED", 200.0)
	v.SetDefault("ROUTE_MAX_SELECTION", 40)
	v.SetDefault("ROUTE_MAX_CONCURRENT_LEGS", 4)
	v.SetDefault("ROUTE_CACHE_MAX_AGE", 3600)
	v.SetDefault("ROUTE_SWEEP_INTERVAL", 60)
	v.SetDefault("ROUTE_SESSION_IDLE_TTL", 4*3600)

	v.SetDefault("CATALOG_SOURCE", "geojson")
	v.SetDefault("CATALOG_GEOJSON_PATH", "data/locations.geojson")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WORKER_ENABLED", true)
	v.SetDefault("WORKER_CONSUMER_GROUP", "route-compute-workers")
	v.SetDefault("WORKER_STREAM_READ_TIMEOUT", 5000)
	v.SetDefault("WORKER_BATCH_SIZE", 10)
	v.SetDefault("WORKER_MAX_RETRIES", 3)
	v.SetDefault("WORKER_CLAIM_IDLE", 60)
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("API_HOST"),
			Port:        v.GetInt("API_PORT"),
			Env:         v.GetString("API_ENV"),
			CORSOrigins: v.GetString("API_CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxConns:        v.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Mapbox: MapboxConfig{
			BaseURL:        v.GetString("MAPBOX_BASE_URL"),
			AccessToken:    v.GetString("MAPBOX_ACCESS_TOKEN"),
			Profile:        v.GetString("MAPBOX_PROFILE"),
			GeocodeCountry: v.GetString("MAPBOX_GEOCODE_COUNTRY"),
			RetryAttempts:  v.GetInt("MAPBOX_RETRY_ATTEMPTS"),
			RetryBackoff:   time.Duration(v.GetInt("MAPBOX_RETRY_BACKOFF_MS")) * time.Millisecond,
		},
		Gateway: GatewayConfig{
			CallTimeout:      time.Duration(v.GetInt("GATEWAY_CALL_TIMEOUT")) * time.Second,
			MaxInFlight:      v.GetInt64("GATEWAY_MAX_IN_FLIGHT"),
			QuotaBudget:      v.GetInt64("GATEWAY_QUOTA_BUDGET"),
			QuotaWindow:      time.Duration(v.GetInt("GATEWAY_QUOTA_WINDOW")) * time.Second,
			CallerRate:       v.GetFloat64("GATEWAY_CALLER_RATE"),
			CallerBurst:      v.GetInt("GATEWAY_CALLER_BURST"),
			RoadRouteTTL:     time.Duration(v.GetInt("GATEWAY_ROAD_TTL")) * time.Second,
			MultiWaypointTTL: time.Duration(v.GetInt("GATEWAY_MULTI_WAYPOINT_TTL")) * time.Second,
			GeocodeTTL:       time.Duration(v.GetInt("GATEWAY_GEOCODE_TTL")) * time.Second,
			CacheBackend:     v.GetString("GATEWAY_CACHE_BACKEND"),
		},
		Route: RouteConfig{
			DefaultCruiseSpeedKmh: v.GetFloat64("ROUTE_DEFAULT_CRUISE_SPEED"),
			MaxSelection:          v.GetInt("ROUTE_MAX_SELECTION"),
			MaxConcurrentLegs:     v.GetInt("ROUTE_MAX_CONCURRENT_LEGS"),
			CacheMaxAge:           time.Duration(v.GetInt("ROUTE_CACHE_MAX_AGE")) * time.Second,
			SweepInterval:         time.Duration(v.GetInt("ROUTE_SWEEP_INTERVAL")) * time.Second,
			SessionIdleTTL:        time.Duration(v.GetInt("ROUTE_SESSION_IDLE_TTL")) * time.Second,
		},
		Catalog: CatalogConfig{
			Source:      v.GetString("CATALOG_SOURCE"),
			GeoJSONPath: v.GetString("CATALOG_GEOJSON_PATH"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Worker: WorkerConfig{
			Enabled:           v.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     v.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(v.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			BatchSize:         v.GetInt64("WORKER_BATCH_SIZE"),
			MaxRetries:        v.GetInt("WORKER_MAX_RETRIES"),
			ClaimIdle:         time.Duration(v.GetInt("WORKER_CLAIM_IDLE")) * time.Second,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Route.DefaultCruiseSpeedKmh <= 0 {
		return fmt.Errorf("ROUTE_DEFAULT_CRUISE_SPEED must be positive, got %v", c.Route.DefaultCruiseSpeedKmh)
	}
	if c.Route.MaxSelection <= 0 {
		return fmt.Errorf("ROUTE_MAX_SELECTION must be positive, got %d", c.Route.MaxSelection)
	}
	switch c.Gateway.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown GATEWAY_CACHE_BACKEND %q", c.Gateway.CacheBackend)
	}
	switch c.Catalog.Source {
	case "postgres", "geojson":
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.Catalog.Source)
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DSN - строка подключения для драйвера pgx
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
