// Package orchestrator drives one decision workflow from trigger to
// completed Decision: collect proposals, detect conflicts, resolve them
// against the constitution, synthesize the decision record and dispatch the
// approved actions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/a2a"
	"github.com/xkilldash9x/foreman-cli/internal/config"
	"github.com/xkilldash9x/foreman-cli/internal/conflict"
	"github.com/xkilldash9x/foreman-cli/internal/decision"
	"github.com/xkilldash9x/foreman-cli/internal/resolver"
	"github.com/xkilldash9x/foreman-cli/internal/validation"
)

// persistTimeout bounds the audit write that happens after the workflow's
// own context may already be done.
const persistTimeout = 30 * time.Second

// Engine runs decision workflows. All collaborators are injected at
// construction and immutable afterwards; one Engine serves any number of
// concurrent workflows, each owning its own WorkflowState.
type Engine struct {
	cfg         config.EngineConfig
	sources     []schemas.ProposalSource
	detector    *conflict.Detector
	resolver    *resolver.Resolver
	synthesizer *decision.Synthesizer
	validator   *validation.Validator
	executor    schemas.CommandExecutor
	sender      a2a.Sender
	store       schemas.DecisionStore
	sink        schemas.Sink
	logger      *zap.Logger
}

// Options carries the optional collaborators. Any nil field disables the
// corresponding side effect.
type Options struct {
	// Sender, when set, carries completion/failure status messages to the
	// configured status recipient.
	Sender a2a.Sender
	// Store, when set, persists the audit record of every terminal workflow.
	Store schemas.DecisionStore
	// Sink receives per-stage observability events.
	Sink schemas.Sink
}

// New creates an orchestration engine with its dependencies provided as
// interfaces.
func New(
	cfg config.EngineConfig,
	sources []schemas.ProposalSource,
	detector *conflict.Detector,
	res *resolver.Resolver,
	synth *decision.Synthesizer,
	validator *validation.Validator,
	executor schemas.CommandExecutor,
	opts Options,
	logger *zap.Logger,
) (*Engine, error) {
	if detector == nil || res == nil || synth == nil || validator == nil {
		return nil, errors.New("cannot initialize engine with nil pipeline components")
	}
	if executor == nil {
		return nil, errors.New("cannot initialize engine without a command executor")
	}
	if logger == nil {
		return nil, errors.New("cannot initialize engine without a logger")
	}
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}
	return &Engine{
		cfg:         cfg,
		sources:     sources,
		detector:    detector,
		resolver:    res,
		synthesizer: synth,
		validator:   validator,
		executor:    executor,
		sender:      opts.Sender,
		store:       opts.Store,
		sink:        sink,
		logger:      logger.Named("orchestrator"),
	}, nil
}

type nopSink struct{}

func (nopSink) Emit(schemas.Event) {}

// Run executes one workflow to a terminal state. The returned state is
// always non-nil; on failure its status is error and the returned error
// carries the category the boundary maps to an exit code. Stage transitions
// are strictly forward and the state is never touched again once terminal.
func (e *Engine) Run(ctx context.Context, trigger string, workflowContext map[string]interface{}) (*schemas.WorkflowState, error) {
	state := &schemas.WorkflowState{
		RequestID:      uuid.NewString(),
		ConversationID: uuid.NewString(),
		Trigger:        trigger,
		Context:        workflowContext,
		StartedAt:      time.Now().UTC(),
		Status:         schemas.StatusInitializing,
	}
	logger := e.logger.With(
		zap.String("request_id", state.RequestID),
		zap.String("trigger", trigger),
	)
	logger.Info("Workflow started")

	// Every message of this workflow shares one conversation id.
	ctx = a2a.WithConversationID(ctx, state.ConversationID)

	if trigger == "" {
		return e.fail(ctx, state, &schemas.ValidationError{Field: "trigger", Reason: "must not be empty"})
	}

	for !state.Status.Terminal() {
		stage := nextStage(state.Status)
		state.Status = stage
		e.notifyStatus(ctx, state, "running", "stage entered")
		start := time.Now()

		var err error
		switch stage {
		case schemas.StatusCollecting:
			state.Proposals, err = e.collect(ctx, state)
		case schemas.StatusAnalyzing:
			state.Conflicts = e.detector.Detect(state.Proposals)
		case schemas.StatusResolving:
			res := e.resolver.Resolve(state.Proposals, state.Conflicts)
			state.Approved, state.Rejected, state.Modified = res.Approved, res.Rejected, res.Modified
		case schemas.StatusDeciding:
			state.Decision, err = e.synthesizer.Synthesize(
				state.Proposals, state.Conflicts, state.Approved, state.Rejected, state.Modified)
		case schemas.StatusExecuting:
			state.ExecutionResults, err = e.dispatch(ctx, state)
			if err == nil {
				state.Status = schemas.StatusCompleted
			}
		}

		e.sink.Emit(schemas.Event{
			Name:      "stage",
			RequestID: state.RequestID,
			Stage:     stage,
			Duration:  time.Since(start),
			Err:       err,
		})
		if err != nil {
			return e.fail(ctx, state, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil && !state.Status.Terminal() {
			return e.fail(ctx, state, ctxErr)
		}
	}

	logger.Info("Workflow completed",
		zap.String("decision_id", state.Decision.DecisionID),
		zap.Int("approved", len(state.Approved)),
		zap.Int("rejected", len(state.Rejected)),
		zap.Int("modified", len(state.Modified)),
		zap.Duration("elapsed", time.Since(state.StartedAt)),
	)
	e.notifyStatus(ctx, state, "success", "workflow completed")
	e.persist(state)
	return state, nil
}

// RunWithDeadline races Run against the configured decision deadline. On
// expiry the caller gets a TimeoutError immediately; the underlying run
// keeps its context and finishes or fails on its own, so a slow executor
// cannot wedge the boundary.
func (e *Engine) RunWithDeadline(ctx context.Context, trigger string, workflowContext map[string]interface{}) (*schemas.WorkflowState, error) {
	deadline := e.cfg.DecisionDeadline
	if deadline <= 0 {
		return e.Run(ctx, trigger, workflowContext)
	}

	type outcome struct {
		state *schemas.WorkflowState
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		state, err := e.Run(ctx, trigger, workflowContext)
		done <- outcome{state, err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case out := <-done:
		return out.state, out.err
	case <-timer.C:
		e.logger.Warn("Decision deadline exceeded", zap.Duration("deadline", deadline))
		return nil, &schemas.TimeoutError{Deadline: deadline}
	}
}

// nextStage returns the stage after s in the forward-only order.
func nextStage(s schemas.WorkflowStatus) schemas.WorkflowStatus {
	switch s {
	case schemas.StatusInitializing:
		return schemas.StatusCollecting
	case schemas.StatusCollecting:
		return schemas.StatusAnalyzing
	case schemas.StatusAnalyzing:
		return schemas.StatusResolving
	case schemas.StatusResolving:
		return schemas.StatusDeciding
	case schemas.StatusDeciding:
		return schemas.StatusExecuting
	default:
		return schemas.StatusCompleted
	}
}

// fail moves the workflow to its terminal error state, records the cause,
// notifies the status recipient and persists the audit record.
func (e *Engine) fail(ctx context.Context, state *schemas.WorkflowState, cause error) (*schemas.WorkflowState, error) {
	failedAt := state.Status
	state.Status = schemas.StatusError
	state.Cause = cause.Error()

	e.logger.Error("Workflow failed",
		zap.String("request_id", state.RequestID),
		zap.String("stage", string(failedAt)),
		zap.String("category", string(schemas.CategoryOf(cause))),
		zap.Error(cause),
	)
	e.sink.Emit(schemas.Event{
		Name:      "workflow_failed",
		RequestID: state.RequestID,
		Stage:     failedAt,
		Err:       cause,
	})
	e.notifyStatus(ctx, state, "error", cause.Error())
	e.persist(state)
	return state, fmt.Errorf("workflow %s failed during %s: %w", state.RequestID, failedAt, cause)
}

// notifyStatus sends a status message to the configured recipient, once per
// stage entered and once at the terminal state. Delivery problems are logged
// and swallowed; status fan-out never changes a workflow's outcome.
func (e *Engine) notifyStatus(ctx context.Context, state *schemas.WorkflowState, outcome, detail string) {
	if e.sender == nil || e.cfg.StatusRecipient == "" {
		return
	}
	env := a2a.NewEnvelope("", e.cfg.StatusRecipient, state.ConversationID, schemas.StatusPayload{
		RequestID: state.RequestID,
		Stage:     string(state.Status),
		State:     outcome,
		Detail:    detail,
	})
	if _, err := e.sender.Send(ctx, env); err != nil {
		e.logger.Warn("Status notification failed",
			zap.String("request_id", state.RequestID),
			zap.String("recipient", e.cfg.StatusRecipient),
			zap.Error(err),
		)
	}
}

// persist writes the audit record on a fresh context so a cancelled or
// deadline-expired workflow still gets its record written.
func (e *Engine) persist(state *schemas.WorkflowState) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.store.SaveDecision(ctx, state); err != nil {
		e.logger.Error("Decision audit write failed",
			zap.String("request_id", state.RequestID),
			zap.Error(err),
		)
	}
}
