package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration. Secrets are loaded from the
// environment only and never written to the override file.
type Config struct {
	DataDir string `json:"data_dir" env:"DATA_DIR"`
	Debug   bool   `json:"debug" env:"CORTEXFOLIO_DEBUG"`

	// Chat model
	LLMProvider      string `json:"llm_provider" env:"LLM_PROVIDER"`
	LLMModel         string `json:"llm_model" env:"LLM_MODEL"`
	LLMBaseURL       string `json:"llm_base_url" env:"LLM_BASE_URL"`
	LLMMaxTokens     int    `json:"llm_max_tokens" env:"LLM_MAX_TOKENS"`
	StructuredOutput bool   `json:"structured_output" env:"LLM_STRUCTURED_OUTPUT"`
	OpenAIAPIKey     string `json:"-" env:"OPENAI_API_KEY"`
	DeepSeekAPIKey   string `json:"-" env:"DEEPSEEK_API_KEY"`

	// Market and research providers
	PolygonAPIKey    string        `json:"-" env:"POLYGON_API_KEY"`
	PolygonBaseURL   string        `json:"polygon_base_url" env:"POLYGON_BASE_URL"`
	YahooEnabled     bool          `json:"yahoo_enabled" env:"YAHOO_ENABLED"`
	RedditClientID   string        `json:"-" env:"REDDIT_CLIENT_ID"`
	RedditSecret     string        `json:"-" env:"REDDIT_KEY"`
	RedditUserAgent  string        `json:"reddit_user_agent" env:"REDDIT_USER_AGENT"`
	RedditBaseURL    string        `json:"reddit_base_url" env:"REDDIT_BASE_URL"`
	RedditOAuthURL   string        `json:"reddit_oauth_url" env:"REDDIT_OAUTH_URL"`
	ArticlesURL      string        `json:"articles_url" env:"URL_ARTICLES"`
	FirecrawlAPIKey  string        `json:"-" env:"FIRECRAWL_API_KEY"`
	FirecrawlBaseURL string        `json:"firecrawl_base_url" env:"FIRECRAWL_BASE_URL"`
	HTTPTimeout      time.Duration `json:"http_timeout" env:"HTTP_TIMEOUT"`
	ToolPacing       time.Duration `json:"tool_pacing" env:"TOOL_PACING"`
	QuoteCacheTTL    time.Duration `json:"quote_cache_ttl" env:"QUOTE_CACHE_TTL"`

	// Longport API Configuration
	LongportAppKey      string `json:"-" env:"LONGPORT_APP_KEY"`
	LongportAppSecret   string `json:"-" env:"LONGPORT_APP_SECRET"`
	LongportAccessToken string `json:"-" env:"LONGPORT_ACCESS_TOKEN"`

	// Storage
	StoreDriver   string `json:"store_driver" env:"STORE_DRIVER"`
	SQLitePath    string `json:"sqlite_path" env:"SQLITE_PATH"`
	MongoURI      string `json:"-" env:"MONGO_URI"`
	MongoDatabase string `json:"mongo_database" env:"MONGO_DATABASE"`

	// Server and scheduler
	HTTPAddr           string        `json:"http_addr" env:"HTTP_ADDR"`
	CronEnabled        bool          `json:"cron_enabled" env:"CRON_ENABLED"`
	CronSpec           string        `json:"cron_spec" env:"CRON_SPEC"`
	CronMinSnapshotAge time.Duration `json:"cron_min_snapshot_age" env:"CRON_MIN_SNAPSHOT_AGE"`

	LogLevel    string `json:"log_level" env:"LOG_LEVEL"`
	LogEncoding string `json:"log_encoding" env:"LOG_ENCODING"`

	// Risk defaults shared by planning, allocation and rebalancing.
	CashReservePct       float64 `json:"cash_reserve_pct" env:"CASH_RESERVE_PCT"`
	DefaultStopLossPct   float64 `json:"default_stop_loss_pct" env:"DEFAULT_STOP_LOSS_PCT"`
	DefaultTakeProfitPct float64 `json:"default_take_profit_pct" env:"DEFAULT_TAKE_PROFIT_PCT"`
	MaxSinglePositionPct float64 `json:"max_single_position_pct" env:"MAX_SINGLE_POSITION_PCT"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled" env:"EINO_DEBUG_ENABLED"`
	EinoDebugPort    int  `json:"eino_debug_port" env:"EINO_DEBUG_PORT"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	return DefaultConfigWithRoot(filepath.Join(currentDir, "data"))
}

// DefaultConfigWithRoot builds defaults rooted at dataDir, then applies
// .env and process environment overrides.
func DefaultConfigWithRoot(dataDir string) *Config {
	cfg := &Config{
		DataDir: dataDir,

		LLMProvider:  "deepseek",
		LLMModel:     "deepseek-chat",
		LLMMaxTokens: 8192,

		PolygonBaseURL:   "https://api.polygon.io",
		YahooEnabled:     true,
		RedditUserAgent:  "CortexFolio/1.0",
		RedditBaseURL:    "https://www.reddit.com",
		RedditOAuthURL:   "https://oauth.reddit.com",
		FirecrawlBaseURL: "https://api.firecrawl.dev",
		HTTPTimeout:      30 * time.Second,
		ToolPacing:       time.Second,
		QuoteCacheTTL:    30 * time.Second,

		StoreDriver:   "sqlite",
		MongoDatabase: "cortexfolio",

		HTTPAddr:           ":8000",
		CronSpec:           "0 0 14 * * 1-5",
		CronMinSnapshotAge: 12 * time.Hour,

		LogLevel:    "info",
		LogEncoding: "json",

		CashReservePct:       10,
		DefaultStopLossPct:   8,
		DefaultTakeProfitPct: 20,
		MaxSinglePositionPct: 25,

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	_ = cfg.loadFromEnv()

	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "cortexfolio.db")
	}
	return cfg
}

func (c *Config) loadFromEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.LLMProvider {
	case "openai", "deepseek":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLMProvider)
	}
	switch c.StoreDriver {
	case "sqlite", "mongo", "memory":
	default:
		return fmt.Errorf("unsupported store driver %q", c.StoreDriver)
	}
	if c.CashReservePct < 0 || c.CashReservePct >= 100 {
		return fmt.Errorf("cash_reserve_pct must be within [0, 100)")
	}
	if c.DefaultStopLossPct < 0 || c.DefaultStopLossPct > 100 {
		return fmt.Errorf("default_stop_loss_pct must be within 0..100")
	}
	if c.DefaultTakeProfitPct < 0 || c.DefaultTakeProfitPct > 100 {
		return fmt.Errorf("default_take_profit_pct must be within 0..100")
	}
	if c.MaxSinglePositionPct <= 0 || c.MaxSinglePositionPct > 100 {
		return fmt.Errorf("max_single_position_pct must be within (0, 100]")
	}
	if c.ToolPacing < 0 {
		return fmt.Errorf("tool_pacing must not be negative")
	}
	if c.QuoteCacheTTL < 0 {
		return fmt.Errorf("quote_cache_ttl must not be negative")
	}
	return nil
}

// LLMAPIKey returns the key for the configured provider.
func (c Config) LLMAPIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.DeepSeekAPIKey
}

func (c Config) RequireChatModel() error {
	if strings.TrimSpace(c.LLMAPIKey()) == "" {
		return fmt.Errorf("missing api key for llm provider %s", c.LLMProvider)
	}
	return nil
}

func (c Config) RequireFirecrawl() error {
	if c.FirecrawlAPIKey == "" {
		return fmt.Errorf("missing FIRECRAWL_API_KEY")
	}
	return nil
}

func (c Config) RequireArticles() error {
	if c.ArticlesURL == "" {
		return fmt.Errorf("missing URL_ARTICLES")
	}
	return nil
}

func (c Config) RequireStore() error {
	if c.StoreDriver == "mongo" && c.MongoURI == "" {
		return fmt.Errorf("missing MONGO_URI for mongo store")
	}
	return nil
}

func (c Config) LongportConfigured() bool {
	return c.LongportAppKey != "" && c.LongportAppSecret != "" && c.LongportAccessToken != ""
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Dir(c.SQLitePath)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
