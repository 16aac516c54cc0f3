package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"ict-ledger/database"
	"ict-ledger/interfaces"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	DB          DBConfig          `mapstructure:"db"`
	Account     AccountConfig     `mapstructure:"account"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Trading     TradingConfig     `mapstructure:"trading"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Cron        CronConfig        `mapstructure:"cron"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Market      MarketConfig      `mapstructure:"market"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Money values are kept as strings and parsed into decimals so no float
// rounding happens between the config file and the ledger.
type AccountConfig struct {
	InitialBalance string `mapstructure:"initial_balance"`
}

type RiskConfig struct {
	MaxDailyLoss             string `mapstructure:"max_daily_loss"`
	MaxPositionRisk          string `mapstructure:"max_position_risk"`
	MaxPortfolioHeat         string `mapstructure:"max_portfolio_heat"`
	ConsecutiveLossThreshold int    `mapstructure:"consecutive_loss_threshold"`
	HaltOnDailyLoss          bool   `mapstructure:"halt_on_daily_loss"`
	MaxRetries               int    `mapstructure:"max_retries"`
}

type TradingConfig struct {
	Timezone    string            `mapstructure:"timezone"`
	PointValues map[string]string `mapstructure:"point_values"`
	// AutoCloseOnLevels closes marked positions whose price crossed stop or target
	AutoCloseOnLevels bool `mapstructure:"auto_close_on_levels"`
}

type PerformanceConfig struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
}

type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DailyReset    string `mapstructure:"daily_reset"`
	Recompute     string `mapstructure:"recompute"`
	MarkPositions string `mapstructure:"mark_positions"`
}

type AlertsConfig struct {
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
	ActivityDir     string `mapstructure:"activity_dir"`
}

type MarketConfig struct {
	AlpacaAPIKey    string `mapstructure:"alpaca_api_key"`
	AlpacaAPISecret string `mapstructure:"alpaca_api_secret"`
}

// Load reads .env (if present), the optional YAML file at path and ICT_*
// environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("ICT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":4600")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", "./data/ictledger.db")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("account.initial_balance", "10000")
	v.SetDefault("risk.max_daily_loss", "500")
	v.SetDefault("risk.max_position_risk", "300")
	v.SetDefault("risk.max_portfolio_heat", "1000")
	v.SetDefault("risk.consecutive_loss_threshold", 3)
	v.SetDefault("risk.halt_on_daily_loss", true)
	v.SetDefault("risk.max_retries", 5)
	v.SetDefault("trading.timezone", "America/New_York")
	v.SetDefault("trading.point_values", map[string]string{})
	v.SetDefault("trading.auto_close_on_levels", false)
	v.SetDefault("performance.risk_free_rate", 0.0)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.daily_reset", "0 0 0 * * *")
	v.SetDefault("cron.recompute", "@every 5m")
	v.SetDefault("cron.mark_positions", "")
	v.SetDefault("alerts.slack_webhook_url", "")
	v.SetDefault("alerts.activity_dir", "./activity_logs")
	v.SetDefault("market.alpaca_api_key", "")
	v.SetDefault("market.alpaca_api_secret", "")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the ledger cannot run with
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.DB.Driver) {
	case "sqlite":
	case "postgres":
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("db.driver %q is not supported", c.DB.Driver))
	}

	if _, err := c.InitialBalance(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Limits(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PointValues(); err != nil {
		errs = append(errs, err)
	}
	if c.Risk.MaxRetries < 1 {
		errs = append(errs, errors.New("risk.max_retries must be at least 1"))
	}
	return errors.Join(errs...)
}

// InitialBalance parses account.initial_balance
func (c Config) InitialBalance() (decimal.Decimal, error) {
	return positive("account.initial_balance", c.Account.InitialBalance)
}

// Limits parses the risk limits
func (c Config) Limits() (interfaces.AccountLimits, error) {
	var limits interfaces.AccountLimits
	var err error
	if limits.MaxDailyLoss, err = positive("risk.max_daily_loss", c.Risk.MaxDailyLoss); err != nil {
		return limits, err
	}
	if limits.MaxPositionRisk, err = positive("risk.max_position_risk", c.Risk.MaxPositionRisk); err != nil {
		return limits, err
	}
	if limits.MaxPortfolioHeat, err = positive("risk.max_portfolio_heat", c.Risk.MaxPortfolioHeat); err != nil {
		return limits, err
	}
	if c.Risk.ConsecutiveLossThreshold < 1 {
		return limits, errors.New("risk.consecutive_loss_threshold must be at least 1")
	}
	limits.ConsecutiveLossThreshold = c.Risk.ConsecutiveLossThreshold
	return limits, nil
}

// Location resolves the trading timezone used for day boundaries
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Trading.Timezone)
	if err != nil {
		return nil, fmt.Errorf("trading.timezone: %w", err)
	}
	return loc, nil
}

// PointValues parses per-symbol point values. Keys are upper-cased because
// viper lower-cases map keys.
func (c Config) PointValues() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(c.Trading.PointValues))
	for symbol, raw := range c.Trading.PointValues {
		v, err := positive("trading.point_values."+symbol, raw)
		if err != nil {
			return nil, err
		}
		out[strings.ToUpper(symbol)] = v
	}
	return out, nil
}

// Database maps the db section onto the storage config
func (c Config) Database() database.Config {
	return database.Config{
		Driver:          c.DB.Driver,
		Path:            c.DB.Path,
		DSN:             c.DB.DSN,
		MaxOpenConns:    c.DB.MaxOpenConns,
		MaxIdleConns:    c.DB.MaxIdleConns,
		ConnMaxLifetime: c.DB.ConnMaxLifetime,
	}
}

func positive(key, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return v, nil
}

// NewLogger builds the process logger
func NewLogger(cfg LogConfig) *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
