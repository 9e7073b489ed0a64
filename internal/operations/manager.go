package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/infrastructure"
)

// Manager orchestrates operation execution. Steps run sequentially in
// registration order and the first failure ends the run.
type Manager struct {
	registry *Registry
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager creates a new operation manager
func NewManager(registry *Registry, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if tracer == nil {
		tracer = NewOperationTracer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: registry,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "operations"),
	}
}

// RegisterStage registers a Step with the operation
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// Execute runs every registered step and returns the final state
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, *OperationState, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	steps := m.registry.List()
	state := NewOperationState(req.ID)
	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceOperationExecution(ctx, req.ID, len(steps))

	m.logger.InfoContext(ctx, "operation started",
		slog.String("operation_id", req.ID),
		slog.Int("step_count", len(steps)))

	state.Start()
	err := m.executeSequential(ctx, state, steps)
	if err != nil {
		if GetErrorType(err) == ErrorTypeCancellation {
			state.Cancel()
		} else {
			state.Fail(err)
		}
	} else {
		state.Complete()
	}
	m.tracer.RecordOperationCompletion(span, state.Status, err)

	resp := m.createResponse(state)
	if err != nil {
		infrastructure.WithError(m.logger, err).ErrorContext(ctx, "operation failed",
			slog.String("operation_id", req.ID),
			slog.String("step", FailedStep(err)),
			slog.Duration("duration", resp.Duration))
	} else {
		m.logger.InfoContext(ctx, "operation completed",
			slog.String("operation_id", req.ID),
			slog.Duration("duration", resp.Duration))
	}
	return resp, state, err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID(), err)
		}

		m.logger.InfoContext(ctx, "executing step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStep validates and runs one step inside its own span
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())

	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		infrastructure.WithError(m.logger, err).ErrorContext(ctx, "step validation failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()))
		if GetErrorType(err) == ErrorTypeValidation && FailedStep(err) != "" {
			return err
		}
		return wrapValidationError(step.ID(), err)
	}

	stepCtx, span := m.tracer.TraceStepExecution(ctx, state.ID, step.ID())
	stepState.Start()
	start := time.Now()
	err := step.Execute(stepCtx, state)
	duration := time.Since(start)
	m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), duration, err)

	if err != nil {
		stepState.Fail(err)
		infrastructure.WithError(m.logger, err).ErrorContext(ctx, "step failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration))
		if ctx.Err() != nil {
			return NewCancellationError(step.ID(), err)
		}
		return NewExecutionError(step.ID(), err)
	}

	stepState.Complete("")
	m.logger.InfoContext(ctx, "step completed",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStage(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}

// createResponse creates an operation response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.Status,
		Duration: state.Duration(),
		Steps:    state.Steps,
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}
