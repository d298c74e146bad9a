// Package store persists the audit trail of completed workflows in
// PostgreSQL. Every terminal workflow, successful or failed, gets exactly one
// row keyed by its request id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

// DBPool abstracts pgxpool.Pool so the store can be tested against a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL decision audit store.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const schemaSQL = `
    CREATE TABLE IF NOT EXISTS workflow_decisions (
        request_id        TEXT PRIMARY KEY,
        conversation_id   TEXT NOT NULL,
        trigger           TEXT NOT NULL,
        status            TEXT NOT NULL,
        cause             TEXT,
        decision_id       TEXT,
        started_at        TIMESTAMPTZ NOT NULL,
        recorded_at       TIMESTAMPTZ NOT NULL,
        proposals         JSONB NOT NULL,
        conflicts         JSONB NOT NULL,
        decision          JSONB,
        execution_results JSONB NOT NULL
    );
`

// EnsureSchema creates the audit table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure audit schema: %w", err)
	}
	return nil
}

const insertDecisionSQL = `
    INSERT INTO workflow_decisions (
        request_id, conversation_id, trigger, status, cause, decision_id,
        started_at, recorded_at, proposals, conflicts, decision, execution_results
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    ON CONFLICT (request_id) DO UPDATE SET
        status            = EXCLUDED.status,
        cause             = EXCLUDED.cause,
        decision_id       = EXCLUDED.decision_id,
        recorded_at       = EXCLUDED.recorded_at,
        proposals         = EXCLUDED.proposals,
        conflicts         = EXCLUDED.conflicts,
        decision          = EXCLUDED.decision,
        execution_results = EXCLUDED.execution_results;
`

// SaveDecision writes the audit record of one terminal workflow. The write is
// transactional so a crash mid-save never leaves a partial record.
func (s *Store) SaveDecision(ctx context.Context, state *schemas.WorkflowState) error {
	if state == nil {
		return fmt.Errorf("cannot persist a nil workflow state")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	proposals, err := jsonbOrEmptyArray(state.Proposals)
	if err != nil {
		return fmt.Errorf("failed to serialize proposals: %w", err)
	}
	conflicts, err := jsonbOrEmptyArray(state.Conflicts)
	if err != nil {
		return fmt.Errorf("failed to serialize conflicts: %w", err)
	}
	results, err := jsonbOrEmptyArray(state.ExecutionResults)
	if err != nil {
		return fmt.Errorf("failed to serialize execution results: %w", err)
	}

	var decisionJSON json.RawMessage
	var decisionID *string
	if state.Decision != nil {
		decisionJSON, err = json.Marshal(state.Decision)
		if err != nil {
			return fmt.Errorf("failed to serialize decision: %w", err)
		}
		decisionID = &state.Decision.DecisionID
	}

	var cause *string
	if state.Cause != "" {
		cause = &state.Cause
	}

	if _, err := tx.Exec(ctx, insertDecisionSQL,
		state.RequestID, state.ConversationID, state.Trigger,
		string(state.Status), cause, decisionID,
		state.StartedAt.UTC(), time.Now().UTC(),
		proposals, conflicts, decisionJSON, results,
	); err != nil {
		return fmt.Errorf("failed to insert decision record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debug("Decision audit record written",
		zap.String("request_id", state.RequestID),
		zap.String("status", string(state.Status)),
	)
	return nil
}

const selectDecisionSQL = `
    SELECT request_id, conversation_id, trigger, status, cause,
           started_at, proposals, conflicts, decision, execution_results
    FROM workflow_decisions
    WHERE request_id = $1;
`

// GetDecision loads one audit record by request id. pgx.ErrNoRows is returned
// when the workflow was never recorded.
func (s *Store) GetDecision(ctx context.Context, requestID string) (*schemas.WorkflowState, error) {
	var (
		state      schemas.WorkflowState
		statusStr  string
		cause      *string
		proposals  json.RawMessage
		conflicts  json.RawMessage
		decision   json.RawMessage
		resultsRaw json.RawMessage
	)
	err := s.pool.QueryRow(ctx, selectDecisionSQL, requestID).Scan(
		&state.RequestID, &state.ConversationID, &state.Trigger, &statusStr, &cause,
		&state.StartedAt, &proposals, &conflicts, &decision, &resultsRaw,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load decision record %s: %w", requestID, err)
	}

	state.Status = schemas.WorkflowStatus(statusStr)
	if cause != nil {
		state.Cause = *cause
	}
	if err := json.Unmarshal(proposals, &state.Proposals); err != nil {
		return nil, fmt.Errorf("corrupt proposals column for %s: %w", requestID, err)
	}
	if err := json.Unmarshal(conflicts, &state.Conflicts); err != nil {
		return nil, fmt.Errorf("corrupt conflicts column for %s: %w", requestID, err)
	}
	if err := json.Unmarshal(resultsRaw, &state.ExecutionResults); err != nil {
		return nil, fmt.Errorf("corrupt execution results column for %s: %w", requestID, err)
	}
	if len(decision) > 0 && string(decision) != "null" {
		state.Decision = &schemas.Decision{}
		if err := json.Unmarshal(decision, state.Decision); err != nil {
			return nil, fmt.Errorf("corrupt decision column for %s: %w", requestID, err)
		}
	}
	return &state, nil
}

// jsonbOrEmptyArray serializes a slice, mapping nil to an empty JSON array so
// the NOT NULL columns stay queryable.
func jsonbOrEmptyArray[T any](v []T) (json.RawMessage, error) {
	if len(v) == 0 {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(v)
}
