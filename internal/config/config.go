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
	Engine() EngineConfig
	A2A() A2AConfig
	Auth() AuthConfig
	Database() DatabaseConfig
	Validation() ValidationConfig
	Constitution() ConstitutionConfig
	Variables() map[string]VariableRange
	Agents() []AgentEndpoint
}

// Config holds the entire application configuration. The priority table,
// safe ranges and endpoint directory are loaded once at startup and treated
// as read-only for the life of the process.
type Config struct {
	LoggerCfg       LoggerConfig             `mapstructure:"logger" yaml:"logger"`
	EngineCfg       EngineConfig             `mapstructure:"engine" yaml:"engine"`
	A2ACfg          A2AConfig                `mapstructure:"a2a" yaml:"a2a"`
	AuthCfg         AuthConfig               `mapstructure:"auth" yaml:"auth"`
	DatabaseCfg     DatabaseConfig           `mapstructure:"database" yaml:"database"`
	ValidationCfg   ValidationConfig         `mapstructure:"validation" yaml:"validation"`
	ConstitutionCfg ConstitutionConfig       `mapstructure:"constitution" yaml:"constitution"`
	VariablesCfg    map[string]VariableRange `mapstructure:"variables" yaml:"variables"`
	AgentsCfg       []AgentEndpoint          `mapstructure:"agents" yaml:"agents"`
}

func (c *Config) Logger() LoggerConfig              { return c.LoggerCfg }
func (c *Config) Engine() EngineConfig              { return c.EngineCfg }
func (c *Config) A2A() A2AConfig                    { return c.A2ACfg }
func (c *Config) Auth() AuthConfig                  { return c.AuthCfg }
func (c *Config) Database() DatabaseConfig          { return c.DatabaseCfg }
func (c *Config) Validation() ValidationConfig      { return c.ValidationCfg }
func (c *Config) Constitution() ConstitutionConfig  { return c.ConstitutionCfg }
func (c *Config) Variables() map[string]VariableRange { return c.VariablesCfg }
func (c *Config) Agents() []AgentEndpoint           { return c.AgentsCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// EngineConfig tunes the orchestration engine.
type EngineConfig struct {
	// DecisionDeadline bounds one whole workflow; the caller races the run
	// against this and reports a timeout failure on expiry.
	DecisionDeadline time.Duration `mapstructure:"decision_deadline" yaml:"decision_deadline"`
	// CollectTimeout bounds each individual proposal request during fan-out.
	// An agent that misses it contributes no proposal, nothing more.
	CollectTimeout time.Duration `mapstructure:"collect_timeout" yaml:"collect_timeout"`
	// StepDuration is the per-action constant used for the execution plan's
	// estimated total duration.
	StepDuration time.Duration `mapstructure:"step_duration" yaml:"step_duration"`
	// StatusRecipient, when set, receives status messages on workflow
	// completion and failure.
	StatusRecipient string `mapstructure:"status_recipient" yaml:"status_recipient"`
	// ExecutorAgent is the agent id of the command execution collaborator.
	ExecutorAgent string `mapstructure:"executor_agent" yaml:"executor_agent"`
}

// A2AConfig tunes the outbound messaging client.
type A2AConfig struct {
	SenderID        string        `mapstructure:"sender_id" yaml:"sender_id"`
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	RateLimit       float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// AuthConfig configures bearer credential issuance.
type AuthConfig struct {
	// Secret is the HMAC signing key. Loaded from FOREMAN_AUTH_SECRET, never
	// from the config file on disk.
	Secret   string        `mapstructure:"secret" yaml:"-"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// DatabaseConfig holds the decision audit store connection details. An empty
// URL disables persistence.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ValidationConfig bounds inbound message size and content.
type ValidationConfig struct {
	MaxPayloadBytes int `mapstructure:"max_payload_bytes" yaml:"max_payload_bytes"`
	MaxStringLength int `mapstructure:"max_string_length" yaml:"max_string_length"`
	MaxArrayLength  int `mapstructure:"max_array_length" yaml:"max_array_length"`
}

// ConstitutionConfig is the fixed priority policy used to resolve
// conflicting proposals. Lower number wins.
type ConstitutionConfig struct {
	Priorities      map[string]int `mapstructure:"priorities" yaml:"priorities"`
	DefaultPriority int            `mapstructure:"default_priority" yaml:"default_priority"`
}

// PriorityOf maps a proposal type to its constitutional rank.
func (c ConstitutionConfig) PriorityOf(proposalType string) int {
	if p, ok := c.Priorities[proposalType]; ok {
		return p
	}
	return c.DefaultPriority
}

// VariableRange is the configured safe operating range of one control
// variable. A single commanded jump may never exceed 5x Step.
type VariableRange struct {
	Min  float64 `mapstructure:"min" yaml:"min"`
	Max  float64 `mapstructure:"max" yaml:"max"`
	Step float64 `mapstructure:"step" yaml:"step"`
}

// AgentEndpoint maps a specialist agent id to its network address.
type AgentEndpoint struct {
	ID       string `mapstructure:"id" yaml:"id"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "foreman-cli")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.decision_deadline", "60s")
	v.SetDefault("engine.collect_timeout", "30s")
	v.SetDefault("engine.step_duration", "30s")
	v.SetDefault("engine.status_recipient", "")
	v.SetDefault("engine.executor_agent", "plant_executor")

	// -- A2A --
	v.SetDefault("a2a.sender_id", "orchestrator")
	v.SetDefault("a2a.base_url", "http://localhost:8080")
	v.SetDefault("a2a.timeout", "30s")
	v.SetDefault("a2a.max_attempts", 3)
	v.SetDefault("a2a.initial_backoff", "1s")
	v.SetDefault("a2a.max_backoff", "60s")
	v.SetDefault("a2a.rate_limit", 50.0)
	v.SetDefault("a2a.rate_burst", 10)

	// -- Auth --
	v.SetDefault("auth.issuer", "foreman")
	v.SetDefault("auth.token_ttl", "5m")

	// -- Validation --
	v.SetDefault("validation.max_payload_bytes", 1<<20)
	v.SetDefault("validation.max_string_length", 1000)
	v.SetDefault("validation.max_array_length", 100)

	// -- Constitution --
	// Safety first, economics last. Lower number wins.
	v.SetDefault("constitution.priorities", map[string]int{
		"stability":    1,
		"emergency":    1,
		"quality":      2,
		"emissions":    3,
		"optimization": 4,
	})
	v.SetDefault("constitution.default_priority", 5)

	// -- Variables --
	// Baseline safe ranges for the pilot plant. Deployments override these
	// per site in the config file.
	v.SetDefault("variables", map[string]map[string]float64{
		"kiln_speed":       {"min": 2.0, "max": 4.5, "step": 0.1},
		"fuel_rate":        {"min": 3.0, "max": 6.5, "step": 0.1},
		"draft_pressure":   {"min": -30.0, "max": -10.0, "step": 1.0},
		"feed_rate":        {"min": 150.0, "max": 220.0, "step": 5.0},
		"cooler_airflow":   {"min": 60.0, "max": 95.0, "step": 2.5},
	})
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("auth.secret", "FOREMAN_AUTH_SECRET")
	v.BindEnv("database.url", "FOREMAN_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the secret if Unmarshal didn't pick it up.
	if cfg.AuthCfg.Secret == "" {
		cfg.AuthCfg.Secret = os.Getenv("FOREMAN_AUTH_SECRET")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.EngineCfg.DecisionDeadline <= 0 {
		return fmt.Errorf("engine.decision_deadline must be a positive duration")
	}
	if c.EngineCfg.CollectTimeout <= 0 {
		return fmt.Errorf("engine.collect_timeout must be a positive duration")
	}
	if c.A2ACfg.Timeout <= 0 {
		return fmt.Errorf("a2a.timeout must be a positive duration")
	}
	if c.A2ACfg.MaxAttempts <= 0 {
		return fmt.Errorf("a2a.max_attempts must be a positive integer")
	}
	if c.A2ACfg.InitialBackoff <= 0 || c.A2ACfg.MaxBackoff < c.A2ACfg.InitialBackoff {
		return fmt.Errorf("a2a backoff window is invalid: initial %s, max %s",
			c.A2ACfg.InitialBackoff, c.A2ACfg.MaxBackoff)
	}
	if c.ValidationCfg.MaxPayloadBytes <= 0 {
		return fmt.Errorf("validation.max_payload_bytes must be a positive integer")
	}
	for name, r := range c.VariablesCfg {
		if r.Max <= r.Min {
			return fmt.Errorf("variable %q has an inverted safe range [%g, %g]", name, r.Min, r.Max)
		}
		if r.Step <= 0 {
			return fmt.Errorf("variable %q must declare a positive step", name)
		}
	}
	seen := make(map[string]struct{}, len(c.AgentsCfg))
	for _, a := range c.AgentsCfg {
		if a.ID == "" || a.Endpoint == "" {
			return fmt.Errorf("agent entries require both id and endpoint")
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate agent id %q in endpoint directory", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}
