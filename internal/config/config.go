package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port" env:"PORT"`
	Mode string `toml:"mode" env:"GIN_MODE"`
	// Public address used in emailed links. Defaults to the request host.
	BaseURL string `toml:"base_url" env:"BASE_URL"`
	// Seconds to wait for in-flight background jobs on shutdown.
	ShutdownTimeout int `toml:"shutdown_timeout" env:"LEADBLITZ_SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level      string `toml:"level" env:"LOG_LEVEL"`
	Format     string `toml:"format" env:"LOG_FORMAT"`
	File       string `toml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

type DatabaseConfig struct {
	DSN string `toml:"dsn" env:"DATABASE_URL"`
}

type RedisConfig struct {
	URL string `toml:"url" env:"REDIS_URL"`
}

type LLMConfig struct {
	Provider string `toml:"provider" env:"LLM_PROVIDER"`
	Model    string `toml:"model" env:"LLM_MODEL"`
	APIKey   string `toml:"api_key" env:"LLM_API_KEY"`
	BaseURL  string `toml:"base_url" env:"LLM_BASE_URL"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri" env:"MEMGRAPH_URI"`
	User     string `toml:"user" env:"MEMGRAPH_USER"`
	Password string `toml:"password" env:"MEMGRAPH_PASSWORD"`
}

type PromptConfig struct {
	ReviewSystem       string `toml:"review_system"`
	Review             string `toml:"review"`
	PersonalizeSystem  string `toml:"personalize_system"`
	PersonalizeBody    string `toml:"personalize_body"`
	PersonalizeSubject string `toml:"personalize_subject"`
}

type ScoringConfig struct {
	// Mode is "hybrid" (heuristics + LLM review) or "quick" (checklist only).
	Mode             string `toml:"mode" env:"LEADBLITZ_SCORING_MODE"`
	CacheTTLHours    int    `toml:"cache_ttl_hours"`
	MaxPages         int    `toml:"max_pages"`
	FetchTimeout     int    `toml:"fetch_timeout"`
	FetchRetries     int    `toml:"fetch_retries"`
	PerLeadTimeout   int    `toml:"per_lead_timeout"`
	BatchTimeout     int    `toml:"batch_timeout"`
	ImportTimeout    int    `toml:"import_timeout"`
	Render           bool   `toml:"render" env:"LEADBLITZ_RENDER"`
	BrowserBin       string `toml:"browser_bin" env:"LEADBLITZ_BROWSER_BIN"`
	RenderTimeout    int    `toml:"render_timeout"`
	QuickMaxBodySize int    `toml:"quick_max_body_size"`
}

type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret" env:"JWT_SECRET"`
	SecretKey     string `toml:"secret_key" env:"LEADBLITZ_SECRET_KEY"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
	SignupCredits int    `toml:"signup_credits" env:"LEADBLITZ_SIGNUP_CREDITS"`
	CookieSecure  bool   `toml:"cookie_secure" env:"LEADBLITZ_COOKIE_SECURE"`
	// Accounts registered with these emails are admins.
	AdminEmails []string `toml:"admin_emails" env:"ADMIN_EMAILS" envSeparator:","`
}

type PlacesConfig struct {
	APIKey  string `toml:"api_key" env:"GOOGLE_MAPS_API_KEY"`
	BaseURL string `toml:"base_url"`
}

type HunterConfig struct {
	APIKey  string `toml:"api_key" env:"HUNTER_API_KEY"`
	BaseURL string `toml:"base_url"`
}

type TwilioConfig struct {
	AccountSID string `toml:"account_sid" env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `toml:"auth_token" env:"TWILIO_AUTH_TOKEN"`
	From       string `toml:"from" env:"TWILIO_PHONE_NUMBER"`
	BaseURL    string `toml:"base_url"`
}

type SendGridConfig struct {
	APIKey  string `toml:"api_key" env:"SENDGRID_API_KEY"`
	From    string `toml:"from" env:"FROM_EMAIL"`
	BaseURL string `toml:"base_url"`
}

type SMTPConfig struct {
	Host     string `toml:"host" env:"SMTP_HOST"`
	Port     int    `toml:"port" env:"SMTP_PORT"`
	Username string `toml:"username" env:"SMTP_USERNAME"`
	Password string `toml:"password" env:"SMTP_PASSWORD"`
	From     string `toml:"from" env:"SMTP_FROM"`
}

type OutreachConfig struct {
	// Milliseconds between consecutive sends in a batch.
	Delay int `toml:"delay_ms" env:"LEADBLITZ_SEND_DELAY_MS"`
}

type ConcurrencyConfig struct {
	Scoring    int `toml:"scoring"`
	Import     int `toml:"import"`
	Enrichment int `toml:"enrichment"`
	Places     int `toml:"places"`
}

type Config struct {
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	LLM         LLMConfig         `toml:"llm"`
	Memgraph    MemgraphConfig    `toml:"memgraph"`
	Prompts     PromptConfig      `toml:"prompts"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Auth        AuthConfig        `toml:"auth"`
	Places      PlacesConfig      `toml:"places"`
	Hunter      HunterConfig      `toml:"hunter"`
	Twilio      TwilioConfig      `toml:"twilio"`
	SendGrid    SendGridConfig    `toml:"sendgrid"`
	SMTP        SMTPConfig        `toml:"smtp"`
	Outreach    OutreachConfig    `toml:"outreach"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", Mode: "release", ShutdownTimeout: 30},
		Log:      LogConfig{Level: "info", Format: "json", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 30},
		Database: DatabaseConfig{DSN: "leadblitz.db"},
		Prompts:  DefaultPrompts(),
		Scoring: ScoringConfig{
			Mode:             "hybrid",
			CacheTTLHours:    24,
			MaxPages:         3,
			FetchTimeout:     15,
			FetchRetries:     3,
			PerLeadTimeout:   30,
			BatchTimeout:     300,
			ImportTimeout:    45,
			RenderTimeout:    30,
			QuickMaxBodySize: 100 * 1024,
		},
		Auth:        AuthConfig{TokenTTLHours: 24 * 30, SignupCredits: 10},
		Places:      PlacesConfig{BaseURL: "https://maps.googleapis.com/maps/api/place"},
		Hunter:      HunterConfig{BaseURL: "https://api.hunter.io/v2"},
		Twilio:      TwilioConfig{BaseURL: "https://api.twilio.com/2010-04-01"},
		SendGrid:    SendGridConfig{BaseURL: "https://api.sendgrid.com/v3"},
		SMTP:        SMTPConfig{Port: 587},
		Outreach:    OutreachConfig{Delay: 1000},
		Concurrency: ConcurrencyConfig{Scoring: 5, Import: 10, Enrichment: 10, Places: 10},
	}
}

// Load reads the TOML file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse TOML: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Scoring.Mode) {
	case "hybrid", "quick":
	default:
		return fmt.Errorf("unsupported scoring mode: %s", c.Scoring.Mode)
	}
	if c.Scoring.MaxPages < 1 {
		return fmt.Errorf("scoring.max_pages must be at least 1")
	}
	if c.Concurrency.Import < 1 || c.Concurrency.Scoring < 1 {
		return fmt.Errorf("concurrency limits must be positive")
	}
	return nil
}

// HasLLM reports whether an LLM provider is configured.
func (c *Config) HasLLM() bool {
	if c.LLM.Provider == "" {
		return false
	}
	return c.LLM.APIKey != "" || strings.EqualFold(c.LLM.Provider, "ollama")
}
