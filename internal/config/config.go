package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cryptodash/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Balance  BalanceConfig  `yaml:"balance"`
	Market   MarketConfig   `yaml:"market"`
	Chat     ChatConfig     `yaml:"chat"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	// URL is a postgres:// DSN or a sqlite file DSN
	URL string `yaml:"url"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type BalanceConfig struct {
	SeedBalance   float64 `yaml:"seed_balance"`
	InitialFrame  string  `yaml:"initial_frame"`
	ReferenceMode string  `yaml:"reference_mode"` // "frame" or "session"
}

type MarketConfig struct {
	Enabled           bool                 `yaml:"enabled"`
	RefreshSchedule   string               `yaml:"refresh_schedule"` // robfig/cron spec
	MaxRetries        int                  `yaml:"max_retries"` // Retries after the first failed fetch
	RetryDelay        time.Duration        `yaml:"retry_delay"`
	SparklineCoins    int                  `yaml:"sparkline_coins"`
	SparklinePoints   int                  `yaml:"sparkline_points"`
	SparklineInterval string               `yaml:"sparkline_interval"`
	Coins             []models.CoinListing `yaml:"coins"`
}

type ChatConfig struct {
	MaxBodyLength int `yaml:"max_body_length"`
	HistoryLimit  int `yaml:"history_limit"`
	MaxHistory    int `yaml:"max_history"`
}

// Default returns the configuration used when no file or environment overrides are present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Environment: "development",
		},
		Database: DatabaseConfig{
			URL: "file:cryptodash.db?_foreign_keys=on",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Balance: BalanceConfig{
			SeedBalance:   12345.67,
			InitialFrame:  string(models.DefaultTimeFrame),
			ReferenceMode: "frame",
		},
		Market: MarketConfig{
			Enabled:           true,
			RefreshSchedule:   "@every 60s",
			MaxRetries:        3,
			RetryDelay:        5 * time.Second,
			SparklineCoins:    4,
			SparklinePoints:   7,
			SparklineInterval: "1d",
			Coins:             DefaultCoins(),
		},
		Chat: ChatConfig{
			MaxBodyLength: 500,
			HistoryLimit:  50,
			MaxHistory:    200,
		},
	}
}

// DefaultCoins is the dashboard coin list, in display order. Coins with a
// circulating supply get a derived market cap.
func DefaultCoins() []models.CoinListing {
	return []models.CoinListing{
		{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Pair: "BTCUSDT", CirculatingSupply: 19_800_000},
		{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Pair: "ETHUSDT", CirculatingSupply: 120_000_000},
		{ID: "binancecoin", Symbol: "BNB", Name: "BNB", Pair: "BNBUSDT"},
		{ID: "solana", Symbol: "SOL", Name: "Solana", Pair: "SOLUSDT"},
		{ID: "cardano", Symbol: "ADA", Name: "Cardano", Pair: "ADAUSDT"},
		{ID: "polkadot", Symbol: "DOT", Name: "Polkadot", Pair: "DOTUSDT"},
		{ID: "chainlink", Symbol: "LINK", Name: "Chainlink", Pair: "LINKUSDT"},
		{ID: "litecoin", Symbol: "LTC", Name: "Litecoin", Pair: "LTCUSDT"},
		{ID: "bitcoin-cash", Symbol: "BCH", Name: "Bitcoin Cash", Pair: "BCHUSDT"},
		{ID: "stellar", Symbol: "XLM", Name: "Stellar", Pair: "XLMUSDT"},
		{ID: "avalanche-2", Symbol: "AVAX", Name: "Avalanche", Pair: "AVAXUSDT"},
		{ID: "cosmos", Symbol: "ATOM", Name: "Cosmos Hub", Pair: "ATOMUSDT"},
		{ID: "algorand", Symbol: "ALGO", Name: "Algorand", Pair: "ALGOUSDT"},
		{ID: "vechain", Symbol: "VET", Name: "VeChain", Pair: "VETUSDT"},
		{ID: "tron", Symbol: "TRX", Name: "TRON", Pair: "TRXUSDT"},
		{ID: "filecoin", Symbol: "FIL", Name: "Filecoin", Pair: "FILUSDT"},
		{ID: "aave", Symbol: "AAVE", Name: "Aave", Pair: "AAVEUSDT"},
		{ID: "uniswap", Symbol: "UNI", Name: "Uniswap", Pair: "UNIUSDT"},
		{ID: "near", Symbol: "NEAR", Name: "NEAR Protocol", Pair: "NEARUSDT"},
		{ID: "hedera-hashgraph", Symbol: "HBAR", Name: "Hedera", Pair: "HBARUSDT"},
	}
}

// Load reads the optional YAML file at path, then .env, then environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// A missing .env is normal outside development
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Environment = getEnv("ENVIRONMENT", c.Server.Environment)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Balance.InitialFrame = getEnv("INITIAL_FRAME", c.Balance.InitialFrame)
	c.Balance.ReferenceMode = getEnv("REFERENCE_MODE", c.Balance.ReferenceMode)
	c.Market.RefreshSchedule = getEnv("MARKET_REFRESH", c.Market.RefreshSchedule)

	if v := os.Getenv("SEED_BALANCE"); v != "" {
		seed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse SEED_BALANCE: %w", err)
		}
		c.Balance.SeedBalance = seed
	}

	if v := os.Getenv("MARKET_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse MARKET_ENABLED: %w", err)
		}
		c.Market.Enabled = enabled
	}

	// MARKET_PAIRS narrows the coin list, e.g. "BTCUSDT,ETHUSDT"
	if v := os.Getenv("MARKET_PAIRS"); v != "" {
		c.Market.Coins = filterCoins(c.Market.Coins, strings.Split(v, ","))
	}
	return nil
}

func filterCoins(coins []models.CoinListing, pairs []string) []models.CoinListing {
	keep := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		keep[strings.ToUpper(strings.TrimSpace(p))] = true
	}

	var filtered []models.CoinListing
	for _, c := range coins {
		if keep[c.Pair] {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// Validate checks the configuration for values the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Balance.SeedBalance < 0 {
		return errors.New("balance.seed_balance must not be negative")
	}
	if _, err := models.ParseTimeFrame(c.Balance.InitialFrame); err != nil {
		return fmt.Errorf("balance.initial_frame: %w", err)
	}
	if c.Balance.ReferenceMode != "frame" && c.Balance.ReferenceMode != "session" {
		return fmt.Errorf("balance.reference_mode must be frame or session, got %q", c.Balance.ReferenceMode)
	}
	if c.Market.Enabled {
		if c.Market.RefreshSchedule == "" {
			return errors.New("market.refresh_schedule is required")
		}
		if c.Market.MaxRetries < 0 {
			return errors.New("market.max_retries must not be negative")
		}
		if c.Market.RetryDelay < 0 {
			return errors.New("market.retry_delay must not be negative")
		}
		if c.Market.SparklinePoints < 1 {
			return errors.New("market.sparkline_points must be at least 1")
		}
		if len(c.Market.Coins) == 0 {
			return errors.New("market.coins must not be empty")
		}
		seen := make(map[string]bool, len(c.Market.Coins))
		for _, coin := range c.Market.Coins {
			if coin.ID == "" || coin.Pair == "" {
				return fmt.Errorf("market.coins: id and pair are required (%+v)", coin)
			}
			if seen[coin.ID] {
				return fmt.Errorf("market.coins: duplicate id %q", coin.ID)
			}
			seen[coin.ID] = true
		}
	}
	if c.Chat.MaxBodyLength < 1 {
		return errors.New("chat.max_body_length must be at least 1")
	}
	if c.Chat.HistoryLimit < 1 || c.Chat.MaxHistory < c.Chat.HistoryLimit {
		return errors.New("chat.history_limit must be at least 1 and not above chat.max_history")
	}
	return nil
}

// IsProduction reports whether gin should run in release mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
