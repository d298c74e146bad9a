// Package service wires the application together: it performs the full
// dependency injection for the orchestration engine and owns the lifecycle
// of everything it creates.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/a2a"
	"github.com/xkilldash9x/foreman-cli/internal/auth"
	"github.com/xkilldash9x/foreman-cli/internal/config"
	"github.com/xkilldash9x/foreman-cli/internal/conflict"
	"github.com/xkilldash9x/foreman-cli/internal/decision"
	"github.com/xkilldash9x/foreman-cli/internal/observability"
	"github.com/xkilldash9x/foreman-cli/internal/orchestrator"
	"github.com/xkilldash9x/foreman-cli/internal/resolver"
	"github.com/xkilldash9x/foreman-cli/internal/store"
	"github.com/xkilldash9x/foreman-cli/internal/validation"
)

// ComponentFactory creates the component set needed to run workflows. The
// abstraction keeps the run command's logic testable.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct {
	registry prometheus.Registerer
}

// NewComponentFactory creates a production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{registry: prometheus.DefaultRegisterer}
}

// Create handles the full dependency injection of the engine and its
// collaborators.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	components := &Components{}

	// Ensure cleanup happens if initialization fails midway.
	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Credential service
	tokenService, err := auth.NewTokenService(cfg.Auth())
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize token service (hint: check FOREMAN_AUTH_SECRET): %w", err)
		return nil, initializationErr
	}
	logger.Debug("Token service initialized.")

	// 2. Messaging client with layered retry
	client, err := a2a.NewClient(cfg.A2A(), cfg.Agents(), tokenService, logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize messaging client: %w", err)
		return nil, initializationErr
	}
	sender := a2a.NewRetryPolicy(client, cfg.A2A(), logger)
	logger.Debug("Messaging client initialized.", zap.Int("agents", len(cfg.Agents())))

	// 3. Proposal sources, one per registered specialist agent
	sources := make([]schemas.ProposalSource, 0, len(cfg.Agents()))
	for _, agent := range cfg.Agents() {
		if agent.ID == cfg.Engine().ExecutorAgent {
			continue
		}
		sources = append(sources, a2a.NewAgentProposalSource(sender, cfg.A2A().SenderID, agent.ID, logger))
	}
	if len(sources) == 0 {
		logger.Warn("No specialist agents configured, workflows will produce empty decisions.")
	}

	// 4. Command executor targeting the plant execution agent
	executor := a2a.NewCommandDispatcher(sender, tokenService, cfg.A2A().SenderID, cfg.Engine().ExecutorAgent, logger)

	// 5. Decision pipeline
	validator := validation.New(cfg.Validation(), cfg.Variables())
	detector := conflict.NewDetector(logger)
	res := resolver.NewResolver(cfg.Constitution(), validator, logger)
	synth := decision.NewSynthesizer(cfg.Engine().StepDuration, logger)
	logger.Debug("Decision pipeline initialized.",
		zap.Int("control_variables", len(cfg.Variables())))

	// 6. Optional decision audit store
	var decisionStore schemas.DecisionStore
	if url := cfg.Database().URL; url != "" {
		dbPool, err := pgxpool.New(ctx, url)
		if err != nil {
			initializationErr = fmt.Errorf("failed to create database connection pool: %w", err)
			return nil, initializationErr
		}
		components.DBPool = dbPool

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		dbStore, err := store.New(pingCtx, dbPool, logger)
		if err != nil {
			initializationErr = fmt.Errorf("failed to initialize decision store: %w", err)
			return nil, initializationErr
		}
		if err := dbStore.EnsureSchema(pingCtx); err != nil {
			initializationErr = err
			return nil, initializationErr
		}
		components.Store = dbStore
		decisionStore = dbStore
		logger.Debug("Decision audit store initialized.")
	} else {
		logger.Debug("No database configured, decision audit persistence disabled.")
	}

	// 7. Metrics
	sink := observability.NewMetricsSink(f.registry)

	// 8. Engine
	engine, err := orchestrator.New(
		cfg.Engine(), sources, detector, res, synth, validator, executor,
		orchestrator.Options{Sender: sender, Store: decisionStore, Sink: sink},
		logger,
	)
	if err != nil {
		initializationErr = fmt.Errorf("failed to create orchestration engine: %w", err)
		return nil, initializationErr
	}
	components.Engine = engine

	logger.Info("All components initialized successfully.")
	return components, nil
}
