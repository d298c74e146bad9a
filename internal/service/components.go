package service

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xkilldash9x/foreman-cli/internal/observability"
	"github.com/xkilldash9x/foreman-cli/internal/orchestrator"
	"github.com/xkilldash9x/foreman-cli/internal/store"
)

// Components holds the initialized services required to run workflows. It
// centralizes lifecycle management of the engine's dependencies.
type Components struct {
	Engine *orchestrator.Engine
	Store  *store.Store
	DBPool *pgxpool.Pool
}

// Shutdown releases held resources. Safe to call on a partially initialized
// struct.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()

	if c.DBPool != nil {
		c.DBPool.Close()
		logger.Debug("Database connection pool closed.")
	}
	logger.Debug("Components shut down.")
}
