package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/foreman-cli/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.AuthCfg.Secret = "test-secret-please-ignore"
	cfg.AgentsCfg = []config.AgentEndpoint{
		{ID: "kiln_stability", Endpoint: "http://localhost:9101/messages"},
		{ID: "plant_executor", Endpoint: "http://localhost:9109/messages"},
	}
	return cfg
}

func newTestFactory() *concreteFactory {
	return &concreteFactory{registry: prometheus.NewRegistry()}
}

func TestCreateWithoutDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseCfg.URL = ""

	components, err := newTestFactory().Create(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer components.Shutdown()

	assert.NotNil(t, components.Engine)
	assert.Nil(t, components.Store)
	assert.Nil(t, components.DBPool)
}

func TestCreateRequiresAuthSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.AuthCfg.Secret = ""

	_, err := newTestFactory().Create(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOREMAN_AUTH_SECRET")
}
