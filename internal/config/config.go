package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"frost-risk-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Model     ModelConfig     `mapstructure:"model"`
	Window    WindowConfig    `mapstructure:"window"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the nightly trigger cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	Offset          time.Duration `mapstructure:"offset"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// WeatherConfig covers the forecast provider boundary and the fixed
// prediction site.
type WeatherConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Latitude       float64       `mapstructure:"latitude"`
	Longitude      float64       `mapstructure:"longitude"`
	LookaheadDays  int           `mapstructure:"lookahead_days"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Timezone       string        `mapstructure:"timezone"`
	LocationLabel  string        `mapstructure:"location_label"`
	StationLabel   string        `mapstructure:"station_label"`
	DataSource     string        `mapstructure:"data_source"`
}

// ModelConfig points at the pretrained classifier artifact.
type ModelConfig struct {
	ArtifactPath string `mapstructure:"artifact_path"`
}

// WindowConfig bounds the next-day scan band (hours inclusive).
type WindowConfig struct {
	BandStartHour int `mapstructure:"band_start_hour"`
	BandEndHour   int `mapstructure:"band_end_hour"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	MinProbability float64        `mapstructure:"min_probability"`
	Channels       []string       `mapstructure:"channels"`
	Telegram       TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FROSTWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "frostwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// One pipeline run per night, 21:00 UTC, after the evening model update
	// of the provider.
	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.offset", "21h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x66726f73))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("weather.base_url", "https://api.open-meteo.com")
	// Patala, Pucará (Huancayo, Junín, Perú), the station the model was
	// trained for.
	v.SetDefault("weather.latitude", -12.20892)
	v.SetDefault("weather.longitude", -75.07791)
	v.SetDefault("weather.lookahead_days", 2)
	v.SetDefault("weather.request_timeout", "10s")
	v.SetDefault("weather.user_agent", "frostwatcher/1.0")
	v.SetDefault("weather.timezone", "auto")
	v.SetDefault("weather.location_label", "Patala, Pucará (Open-Meteo)")
	v.SetDefault("weather.station_label", "Open-Meteo Forecast")
	v.SetDefault("weather.data_source", "open-meteo")

	v.SetDefault("model.artifact_path", "models/frost_tree.json")

	v.SetDefault("window.band_start_hour", 1)
	v.SetDefault("window.band_end_hour", 5)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_probability", 0.6)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.Offset < 0 || c.Scheduler.Offset >= c.Scheduler.Interval {
		return fmt.Errorf("scheduler.offset must be in [0, scheduler.interval)")
	}
	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		return fmt.Errorf("weather.latitude must be in [-90, 90]")
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		return fmt.Errorf("weather.longitude must be in [-180, 180]")
	}
	if c.Weather.LookaheadDays < 1 || c.Weather.LookaheadDays > 16 {
		return fmt.Errorf("weather.lookahead_days must be in [1, 16]")
	}
	if c.Weather.RequestTimeout <= 0 {
		return fmt.Errorf("weather.request_timeout must be greater than zero")
	}
	if c.Model.ArtifactPath == "" {
		return fmt.Errorf("model.artifact_path 必须配置")
	}
	if c.Window.BandStartHour < 0 || c.Window.BandStartHour > 23 ||
		c.Window.BandEndHour < 0 || c.Window.BandEndHour > 23 {
		return fmt.Errorf("window band hours must be in [0, 23]")
	}
	if c.Window.BandStartHour > c.Window.BandEndHour {
		return fmt.Errorf("window.band_start_hour must not exceed window.band_end_hour")
	}
	if c.Alerting.MinProbability < 0 || c.Alerting.MinProbability > 1 {
		return fmt.Errorf("alerting.min_probability must be in [0, 1]")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
