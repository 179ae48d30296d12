package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del watcher.
type Config struct {
	Watcher WatcherConfig `yaml:"watcher"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	Display DisplayConfig `yaml:"display"`
}

// WatcherConfig controla el polling y el recálculo de countdowns.
type WatcherConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	TickSeconds     int `yaml:"tick_seconds"` // recálculo en modo follow
	Workers         int `yaml:"workers"`      // 0 = NumCPU
	PageSize        int `yaml:"page_size"`
	MaxMarkets      int `yaml:"max_markets"` // 0 = sin límite
}

// APIConfig contiene el base URL de la API de mercados.
type APIConfig struct {
	BaseURL    string  `yaml:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec"`
}

// StorageConfig controla dónde se persisten los timelines.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// CacheConfig controla la cache Redis de snapshots de mercado.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TLS        bool   `yaml:"tls"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// DisplayConfig controla la salida por consola.
type DisplayConfig struct {
	OddsFormat string `yaml:"odds_format"` // price | percent | decimal | american | fractional
	Table      bool   `yaml:"table"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Default devuelve la configuración por defecto, usada cuando no hay archivo.
func Default() *Config {
	var cfg Config
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg
}

// PollInterval devuelve el intervalo de polling como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watcher.IntervalSeconds) * time.Second
}

// Tick devuelve el intervalo de recálculo del modo follow.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Watcher.TickSeconds) * time.Second
}

// CacheTTL devuelve la expiración de los snapshots cacheados.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RESOLWATCH_API_BASE"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("RESOLWATCH_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Addr = v
		cfg.Cache.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Watcher.IntervalSeconds <= 0 {
		cfg.Watcher.IntervalSeconds = 30
	}
	if cfg.Watcher.TickSeconds <= 0 {
		cfg.Watcher.TickSeconds = 1
	}
	if cfg.Watcher.PageSize <= 0 {
		cfg.Watcher.PageSize = 100
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://gamma-api.polymarket.com"
	}
	if cfg.API.RatePerSec <= 0 {
		cfg.API.RatePerSec = 18
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "resolwatch.db"
	}
	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = "localhost:6379"
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Display.OddsFormat == "" {
		cfg.Display.OddsFormat = "price"
	}
}
