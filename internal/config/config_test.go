package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, 60*time.Second, cfg.Engine().DecisionDeadline)
	assert.Equal(t, 30*time.Second, cfg.Engine().CollectTimeout)
	assert.Equal(t, 30*time.Second, cfg.A2A().Timeout)
	assert.Equal(t, 3, cfg.A2A().MaxAttempts)
	assert.Equal(t, 1<<20, cfg.Validation().MaxPayloadBytes)

	// Constitution defaults: safety outranks economics.
	assert.Equal(t, 1, cfg.Constitution().PriorityOf("stability"))
	assert.Equal(t, 1, cfg.Constitution().PriorityOf("emergency"))
	assert.Equal(t, 2, cfg.Constitution().PriorityOf("quality"))
	assert.Equal(t, 4, cfg.Constitution().PriorityOf("optimization"))
	assert.Equal(t, 5, cfg.Constitution().PriorityOf("something_else"))

	kiln, ok := cfg.Variables()["kiln_speed"]
	require.True(t, ok, "kiln_speed must have a default safe range")
	assert.Less(t, kiln.Min, kiln.Max)
	assert.Positive(t, kiln.Step)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero deadline", func(c *Config) { c.EngineCfg.DecisionDeadline = 0 }},
		{"zero collect timeout", func(c *Config) { c.EngineCfg.CollectTimeout = 0 }},
		{"zero attempts", func(c *Config) { c.A2ACfg.MaxAttempts = 0 }},
		{"inverted backoff window", func(c *Config) { c.A2ACfg.MaxBackoff = c.A2ACfg.InitialBackoff / 2 }},
		{"inverted range", func(c *Config) {
			c.VariablesCfg["kiln_speed"] = VariableRange{Min: 4.5, Max: 2.0, Step: 0.1}
		}},
		{"zero step", func(c *Config) {
			c.VariablesCfg["kiln_speed"] = VariableRange{Min: 2.0, Max: 4.5, Step: 0}
		}},
		{"duplicate agent", func(c *Config) {
			c.AgentsCfg = []AgentEndpoint{
				{ID: "stability_agent", Endpoint: "http://a"},
				{ID: "stability_agent", Endpoint: "http://b"},
			}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewConfigFromViperOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("engine.decision_deadline", "90s")
	v.Set("a2a.sender_id", "orchestrator-2")
	v.Set("agents", []map[string]string{
		{"id": "stability_agent", "endpoint": "http://stability:8080/messages"},
	})

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Engine().DecisionDeadline)
	assert.Equal(t, "orchestrator-2", cfg.A2A().SenderID)
	require.Len(t, cfg.Agents(), 1)
	assert.Equal(t, "stability_agent", cfg.Agents()[0].ID)
}
