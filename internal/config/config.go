// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Rewards   RewardsConfig   `mapstructure:"rewards"`
	Boxes     BoxesConfig     `mapstructure:"boxes"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	// JobsSecret guards the /internal/jobs endpoints invoked by the external
	// cron trigger.
	JobsSecret string `mapstructure:"jobs_secret"`
}

// TelegramConfig contains bot token and notification settings.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	// InitDataMaxAge bounds how old a signed initData payload may be, in
	// seconds. Zero disables the age check.
	InitDataMaxAge int  `mapstructure:"init_data_max_age"`
	Notifications  bool `mapstructure:"notifications"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RewardsConfig contains streak, milestone, and bonus point settings.
type RewardsConfig struct {
	DailyCheckinPoints uint `mapstructure:"daily_checkin_points"`
	// CheckinCooldown is the minimum gap between successful check-ins.
	CheckinCooldown time.Duration `mapstructure:"checkin_cooldown"`
	// StreakGrace extends the nominal 24h cadence before a streak resets.
	StreakGrace time.Duration `mapstructure:"streak_grace"`
	// MultiplierTiers maps streak-day thresholds to multipliers. Lookup is a
	// step function: the highest threshold <= current streak wins.
	MultiplierTiers       []MultiplierTier `mapstructure:"multiplier_tiers"`
	WalletConnectionBonus uint             `mapstructure:"wallet_connection_bonus"`
	ReferrerBonus         uint             `mapstructure:"referrer_bonus"`
	RefereeBonus          uint             `mapstructure:"referee_bonus"`
}

// MultiplierTier is one step of the streak multiplier table.
type MultiplierTier struct {
	Days       uint    `mapstructure:"days"`
	Multiplier float64 `mapstructure:"multiplier"`
}

// BoxesConfig contains mystery box economy settings.
type BoxesConfig struct {
	PerDay int           `mapstructure:"per_day"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// SchedulerConfig contains daily reward pipeline settings.
type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Time     string `mapstructure:"time"` // "HH:MM"
	Timezone string `mapstructure:"timezone"`
}

// MetricsConfig contains Prometheus metrics exporter settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/streakfarm/")
	}

	setDefaults(v)

	// Bind specific environment variables (explicit bindings for 12-factor app compliance)
	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")
	_ = v.BindEnv("server.jobs_secret", "SERVER_JOBS_SECRET", "CRON_SECRET")

	// Telegram configuration
	_ = v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.init_data_max_age", "TELEGRAM_INIT_DATA_MAX_AGE")
	_ = v.BindEnv("telegram.notifications", "TELEGRAM_NOTIFICATIONS")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.time", "SCHEDULER_TIME")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults installs reward economy defaults so a minimal config file works.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")

	v.SetDefault("telegram.init_data_max_age", 86400)
	v.SetDefault("telegram.notifications", false)

	v.SetDefault("rewards.daily_checkin_points", 100)
	v.SetDefault("rewards.checkin_cooldown", "20h")
	v.SetDefault("rewards.streak_grace", "4h")
	v.SetDefault("rewards.wallet_connection_bonus", 5000)
	v.SetDefault("rewards.referrer_bonus", 2500)
	v.SetDefault("rewards.referee_bonus", 1000)

	v.SetDefault("boxes.per_day", 3)
	v.SetDefault("boxes.ttl", "3h")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.time", "00:05")
	v.SetDefault("scheduler.timezone", "UTC")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Server.JobsSecret == "" {
		return fmt.Errorf("server.jobs_secret is required")
	}
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Rewards.CheckinCooldown <= 0 {
		return fmt.Errorf("rewards.checkin_cooldown must be positive")
	}
	if c.Rewards.CheckinCooldown > 24*time.Hour+c.Rewards.StreakGrace {
		return fmt.Errorf("rewards.checkin_cooldown exceeds the streak window")
	}
	if c.Boxes.PerDay <= 0 {
		return fmt.Errorf("boxes.per_day must be positive")
	}
	for i, tier := range c.Rewards.MultiplierTiers {
		if i > 0 && tier.Days <= c.Rewards.MultiplierTiers[i-1].Days {
			return fmt.Errorf("rewards.multiplier_tiers must have strictly ascending days")
		}
		if tier.Multiplier <= 0 {
			return fmt.Errorf("rewards.multiplier_tiers[%d].multiplier must be positive", i)
		}
	}
	return nil
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// MultiplierTiersOrDefault returns the configured tier table, or the built-in
// one when the config omits it, always sorted ascending by days.
func (c *RewardsConfig) MultiplierTiersOrDefault() []MultiplierTier {
	tiers := c.MultiplierTiers
	if len(tiers) == 0 {
		tiers = []MultiplierTier{
			{Days: 1, Multiplier: 1.0},
			{Days: 7, Multiplier: 1.25},
			{Days: 14, Multiplier: 1.5},
			{Days: 30, Multiplier: 2.0},
			{Days: 50, Multiplier: 2.5},
			{Days: 100, Multiplier: 3.0},
			{Days: 200, Multiplier: 4.0},
			{Days: 365, Multiplier: 5.0},
		}
	}
	sorted := make([]MultiplierTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Days < sorted[j].Days })
	return sorted
}
