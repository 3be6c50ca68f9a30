package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"taxtrail/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WorldBank WorldBankConfig `mapstructure:"worldbank"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// WorldBankConfig covers indicator lookups.
type WorldBankConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	BenchmarkCountry  string        `mapstructure:"benchmark_country"`
	InflationCountry  string        `mapstructure:"inflation_country"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// ExchangeConfig covers currency conversion.
type ExchangeConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	BaseCurrency string        `mapstructure:"base_currency"`
	TTL          time.Duration `mapstructure:"ttl"`
	Timeout      time.Duration `mapstructure:"timeout"`
	WarmInterval time.Duration `mapstructure:"warm_interval"`
}

// AuthConfig governs bearer token verification and account registration.
// Accounts registered with an email in AdminEmails get the Admin role.
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	Issuer      string        `mapstructure:"issuer"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
	AdminEmails []string      `mapstructure:"admin_emails"`
}

// AlertingConfig routes notifications for critical verdicts.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Telegram TelegramConfig `mapstructure:"telegram"`
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
	MaxRows int `mapstructure:"max_rows"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TAXTRAIL")
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

	cfg.Exchange.BaseCurrency = strings.ToUpper(strings.TrimSpace(cfg.Exchange.BaseCurrency))
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
	v.SetDefault("app.name", "taxtrail")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("worldbank.base_url", "https://api.worldbank.org/v2")
	v.SetDefault("worldbank.timeout", "5s")
	v.SetDefault("worldbank.requests_per_minute", 60)
	v.SetDefault("worldbank.benchmark_country", "LKA")
	v.SetDefault("worldbank.inflation_country", "LKA")
	v.SetDefault("worldbank.user_agent", "")

	v.SetDefault("exchange.base_url", "https://open.er-api.com/v6/latest")
	v.SetDefault("exchange.base_currency", "LKR")
	v.SetDefault("exchange.ttl", "1h")
	v.SetDefault("exchange.timeout", "5s")
	v.SetDefault("exchange.warm_interval", "0s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "taxtrail")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.admin_emails", "")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.timeout", "10s")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_rows", 10000)
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
	if c.Export.MaxRows <= 0 {
		return fmt.Errorf("export.max_rows must be greater than zero")
	}
	if c.Exchange.TTL <= 0 {
		return fmt.Errorf("exchange.ttl must be greater than zero")
	}
	if c.Exchange.WarmInterval < 0 {
		return fmt.Errorf("exchange.warm_interval cannot be negative")
	}
	if len(c.Exchange.BaseCurrency) != 3 {
		return fmt.Errorf("exchange.base_currency must be a 3-letter ISO code")
	}
	if c.WorldBank.RequestsPerMinute < 0 {
		return fmt.Errorf("worldbank.requests_per_minute cannot be negative")
	}
	if strings.TrimSpace(c.WorldBank.BenchmarkCountry) == "" {
		return fmt.Errorf("worldbank.benchmark_country is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be greater than zero")
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

// RequireJWTSecret reports an error when the server would start without a signing key.
func (c *Config) RequireJWTSecret() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	return nil
}

// ResolveMaxRows returns either the CLI override or config default.
func (c *Config) ResolveMaxRows(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRows
}
