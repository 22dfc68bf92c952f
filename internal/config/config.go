package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/usecase"
)

// EnvPrefix prefixes every environment override, e.g. COMPANYPAGE_LOGGING_LOG_LEVEL.
// The bare tag (LOG_LEVEL) is accepted as well.
const EnvPrefix = "COMPANYPAGE"

type Config struct {
	Logging struct {
		Level string `yaml:"level" envconfig:"LOG_LEVEL"`
		File  string `yaml:"file" envconfig:"LOG_FILE"`
	} `yaml:"logging"`
	Server struct {
		Port         int    `yaml:"port" envconfig:"SERVER_PORT"`
		TemplatesDir string `yaml:"templates_dir" envconfig:"TEMPLATES_DIR"`
	} `yaml:"server"`
	MarketData struct {
		Provider       string        `yaml:"provider" envconfig:"MARKET_DATA_PROVIDER"`
		RESTBaseURL    string        `yaml:"rest_base_url" envconfig:"REST_BASE_URL"`
		RESTToken      string        `yaml:"rest_token" envconfig:"REST_TOKEN"`
		RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	} `yaml:"market_data"`
	Alpaca struct {
		APIKey    string `yaml:"api_key" envconfig:"ALPACA_API_KEY"`
		APISecret string `yaml:"api_secret" envconfig:"ALPACA_API_SECRET"`
		BaseURL   string `yaml:"base_url" envconfig:"ALPACA_BASE_URL"`
		DataURL   string `yaml:"data_url" envconfig:"ALPACA_DATA_URL"`
		StreamURL string `yaml:"stream_url" envconfig:"ALPACA_STREAM_URL"`
		Feed      string `yaml:"feed" envconfig:"ALPACA_FEED"`
		Stream    bool   `yaml:"stream" envconfig:"ALPACA_STREAM"`
	} `yaml:"alpaca"`
	Gateway struct {
		RetryAttempts   int           `yaml:"retry_attempts" envconfig:"RETRY_ATTEMPTS"`
		RetryBaseDelay  time.Duration `yaml:"retry_base_delay" envconfig:"RETRY_BASE_DELAY"`
		FundamentalsTTL time.Duration `yaml:"fundamentals_ttl" envconfig:"FUNDAMENTALS_TTL"`
	} `yaml:"gateway"`
	Page struct {
		RacePolicy string `yaml:"race_policy" envconfig:"RACE_POLICY"`
		NewsLimit  int    `yaml:"news_limit" envconfig:"NEWS_LIMIT"`
	} `yaml:"page"`
	Calendar struct {
		Timezone string `yaml:"timezone" envconfig:"MARKET_TIMEZONE"`
		Open     string `yaml:"open" envconfig:"MARKET_OPEN"`
	} `yaml:"calendar"`
	Polling struct {
		PriceCron string `yaml:"price_cron" envconfig:"PRICE_CRON"`
	} `yaml:"polling"`
	Storage struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"storage"`
	Account struct {
		DefaultID string `yaml:"default_id" envconfig:"ACCOUNT_ID"`
	} `yaml:"account"`
}

// Load reads path (a missing file is fine), then .env, then environment
// overrides, then fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.TemplatesDir == "" {
		c.Server.TemplatesDir = "internal/web/templates"
	}
	if c.MarketData.Provider == "" {
		c.MarketData.Provider = "alpaca"
	}
	if c.MarketData.RequestTimeout == 0 {
		c.MarketData.RequestTimeout = 10 * time.Second
	}
	if c.Alpaca.BaseURL == "" {
		c.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}
	if c.Alpaca.Feed == "" {
		c.Alpaca.Feed = "iex"
	}
	if c.Gateway.RetryAttempts == 0 {
		c.Gateway.RetryAttempts = 3
	}
	if c.Gateway.RetryBaseDelay == 0 {
		c.Gateway.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.Gateway.FundamentalsTTL == 0 {
		c.Gateway.FundamentalsTTL = 24 * time.Hour
	}
	if c.Page.RacePolicy == "" {
		c.Page.RacePolicy = string(usecase.RaceLatestIssued)
	}
	if c.Page.NewsLimit == 0 {
		c.Page.NewsLimit = 10
	}
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = "America/New_York"
	}
	if c.Calendar.Open == "" {
		c.Calendar.Open = "09:30"
	}
	if c.Polling.PriceCron == "" {
		c.Polling.PriceCron = "*/15 * * * * 1-5"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/company_page.db"
	}
}

// Validate checks that the configuration can start the service.
func (c *Config) Validate() error {
	switch c.MarketData.Provider {
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return fmt.Errorf("alpaca.api_key and alpaca.api_secret are required for the alpaca provider")
		}
	case "rest":
		if c.MarketData.RESTBaseURL == "" {
			return fmt.Errorf("market_data.rest_base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("market_data.provider must be alpaca or rest, got %q", c.MarketData.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Gateway.RetryAttempts < 1 {
		return fmt.Errorf("gateway.retry_attempts must be at least 1")
	}
	if _, err := usecase.ParseRacePolicy(c.Page.RacePolicy); err != nil {
		return fmt.Errorf("page.race_policy: %w", err)
	}
	if _, err := c.TradingCalendar(); err != nil {
		return fmt.Errorf("calendar: %w", err)
	}
	return nil
}

func (c *Config) TradingCalendar() (domain.TradingCalendar, error) {
	return domain.NewTradingCalendar(c.Calendar.Timezone, c.Calendar.Open)
}

func (c *Config) RetryPolicy() usecase.RetryPolicy {
	return usecase.RetryPolicy{Attempts: c.Gateway.RetryAttempts, BaseDelay: c.Gateway.RetryBaseDelay}
}

// ParseBuyingPower parses a decimal amount given on the command line or in seed files.
func ParseBuyingPower(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid buying power %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("buying power must not be negative: %s", s)
	}
	return d, nil
}
