// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Browser() BrowserConfig
	Network() NetworkConfig
	Agent() AgentConfig
	LLM() LLMConfig
	Places() PlacesConfig
	Cache() CacheConfig
	Server() ServerConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserConcurrency(int)

	// Network Setters
	SetNetworkNavigationTimeout(d time.Duration)
	SetNetworkPostLoadWait(d time.Duration)

	// Agent Setters
	SetAgentMaxIterations(int)
	SetAgentSessionIdleTimeout(d time.Duration)
}

// Config holds the entire application configuration. Fields are exported so
// tests can build fixtures directly; application code reads through the getters.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	NetworkCfg  NetworkConfig  `mapstructure:"network" yaml:"network"`
	AgentCfg    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	LLMCfg      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	PlacesCfg   PlacesConfig   `mapstructure:"places" yaml:"places"`
	CacheCfg    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	ServerCfg   ServerConfig   `mapstructure:"server" yaml:"server"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Network() NetworkConfig   { return c.NetworkCfg }
func (c *Config) Agent() AgentConfig       { return c.AgentCfg }
func (c *Config) LLM() LLMConfig           { return c.LLMCfg }
func (c *Config) Places() PlacesConfig     { return c.PlacesCfg }
func (c *Config) Cache() CacheConfig       { return c.CacheCfg }
func (c *Config) Server() ServerConfig     { return c.ServerCfg }

// -- Setters, used by CLI flag overrides --

func (c *Config) SetBrowserHeadless(b bool)               { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserConcurrency(n int)             { c.BrowserCfg.Concurrency = n }
func (c *Config) SetAgentMaxIterations(n int)             { c.AgentCfg.MaxIterations = n }
func (c *Config) SetNetworkPostLoadWait(d time.Duration) { c.NetworkCfg.PostLoadWait = d }
func (c *Config) SetNetworkNavigationTimeout(d time.Duration) {
	c.NetworkCfg.NavigationTimeout = d
}
func (c *Config) SetAgentSessionIdleTimeout(d time.Duration) {
	c.AgentCfg.SessionIdleTimeout = d
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the run audit database connection. An empty URL disables it.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// BrowserConfig holds settings for the headless browser.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool     `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Concurrency     int      `mapstructure:"concurrency" yaml:"concurrency"`
	ExecPath        string   `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	Args            []string `mapstructure:"args" yaml:"args"`
	// ActionTimeout bounds click/fill/select including the settle wait.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// SettleDelay is the quiet period after a DOM action before re-observing.
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	// Stealth masks automation markers some tee sheet vendors check for.
	Stealth  bool   `mapstructure:"stealth" yaml:"stealth"`
	Locale   string `mapstructure:"locale" yaml:"locale"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// NetworkConfig holds page-load settings.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// AgentConfig holds the control loop and session lifecycle settings.
type AgentConfig struct {
	MaxIterations      int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout" yaml:"session_idle_timeout"`
	TextLimit          int           `mapstructure:"text_limit" yaml:"text_limit"`
	StopPhrases        []string      `mapstructure:"stop_phrases" yaml:"stop_phrases"`
	// MaxSessions caps live sessions; zero means unbounded.
	MaxSessions int `mapstructure:"max_sessions" yaml:"max_sessions"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// LLMConfig selects the oracle model and the auxiliary ranking/chat model.
type LLMConfig struct {
	OracleModel       string                    `mapstructure:"oracle_model" yaml:"oracle_model"`
	RankingModel      string                    `mapstructure:"ranking_model" yaml:"ranking_model"`
	ChatModel         string                    `mapstructure:"chat_model" yaml:"chat_model"`
	RequestsPerSecond float64                   `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	MaxRetryElapsed   time.Duration             `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
	Models            map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// Model returns the named model configuration.
func (l LLMConfig) Model(name string) (LLMModelConfig, bool) {
	m, ok := l.Models[name]
	return m, ok
}

// PlacesConfig configures the course search collaborators.
type PlacesConfig struct {
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	PlacesBaseURL     string        `mapstructure:"places_base_url" yaml:"places_base_url"`
	MapsBaseURL       string        `mapstructure:"maps_base_url" yaml:"maps_base_url"`
	DefaultRadiusMile float64       `mapstructure:"default_radius_miles" yaml:"default_radius_miles"`
	UseMock           bool          `mapstructure:"use_mock" yaml:"use_mock"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend   string        `mapstructure:"backend" yaml:"backend"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db" yaml:"redis_db"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	AllowedOrigin  string        `mapstructure:"allowed_origin" yaml:"allowed_origin"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "holenone")
	v.SetDefault("logger.log_file", "holenone.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.concurrency", 4)
	v.SetDefault("browser.action_timeout", "15s")
	v.SetDefault("browser.settle_delay", "750ms")
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.locale", "en-US")

	// -- Network --
	v.SetDefault("network.navigation_timeout", "30s")
	v.SetDefault("network.post_load_wait", "1s")

	// -- Agent --
	v.SetDefault("agent.max_iterations", 5)
	v.SetDefault("agent.session_idle_timeout", "5m")
	v.SetDefault("agent.text_limit", 1000)
	v.SetDefault("agent.stop_phrases", []string{"no_action_needed", "cannot determine a clear next action"})
	v.SetDefault("agent.max_sessions", 0)

	// -- LLM --
	v.SetDefault("llm.oracle_model", "gemini")
	v.SetDefault("llm.ranking_model", "openai")
	v.SetDefault("llm.chat_model", "openai")
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.max_retry_elapsed", "30s")
	v.SetDefault("llm.models.gemini.provider", string(ProviderGemini))
	v.SetDefault("llm.models.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.models.gemini.api_timeout", "60s")
	v.SetDefault("llm.models.gemini.temperature", 0.2)
	v.SetDefault("llm.models.openai.provider", string(ProviderOpenAI))
	v.SetDefault("llm.models.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.models.openai.api_timeout", "60s")
	v.SetDefault("llm.models.openai.temperature", 0.3)

	// -- Places --
	v.SetDefault("places.places_base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.maps_base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("places.default_radius_miles", 25.0)
	v.SetDefault("places.use_mock", false)
	v.SetDefault("places.timeout", "15s")

	// -- Cache --
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)

	// -- Server --
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.request_timeout", "3m")
	v.SetDefault("server.allowed_origin", "*")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("database.url", "HOLENONE_DATABASE_URL")
	v.BindEnv("places.api_key", "HOLENONE_PLACES_API_KEY", "GOOGLE_MAPS_API_KEY")
	v.BindEnv("llm.models.gemini.api_key", "HOLENONE_GEMINI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("llm.models.openai.api_key", "HOLENONE_OPENAI_API_KEY", "OPENAI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Nested map entries are not always populated by Unmarshal from bound env vars.
	for name, envVar := range map[string]string{"gemini": "GEMINI_API_KEY", "openai": "OPENAI_API_KEY"} {
		if m, ok := cfg.LLMCfg.Models[name]; ok && m.APIKey == "" {
			m.APIKey = os.Getenv(envVar)
			cfg.LLMCfg.Models[name] = m
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.Concurrency <= 0 {
		return fmt.Errorf("browser.concurrency must be a positive integer")
	}
	if c.NetworkCfg.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	if err := c.AgentCfg.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	if err := c.LLMCfg.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	switch c.CacheCfg.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be one of memory, redis (got %q)", c.CacheCfg.Backend)
	}
	return nil
}

// Validate checks the agent loop settings.
func (a *AgentConfig) Validate() error {
	if a.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be greater than 0")
	}
	if a.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session_idle_timeout must be a positive duration")
	}
	if a.TextLimit <= 0 {
		return fmt.Errorf("text_limit must be a positive integer")
	}
	if a.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must not be negative")
	}
	return nil
}

// Validate checks that every referenced model exists and has a known provider.
func (l *LLMConfig) Validate() error {
	for _, name := range []string{l.OracleModel, l.RankingModel, l.ChatModel} {
		if name == "" {
			continue
		}
		m, ok := l.Models[name]
		if !ok {
			return fmt.Errorf("model %q is referenced but not defined under llm.models", name)
		}
		if m.Provider != ProviderGemini && m.Provider != ProviderOpenAI {
			return fmt.Errorf("model %q has unsupported provider %q", name, m.Provider)
		}
	}
	if l.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	return nil
}
