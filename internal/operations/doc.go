// Package operations runs the report pipeline as a sequence of steps.
//
// Core Components:
//
// Manager: executes the registered steps in order inside an OpenTelemetry
// span per step, tracking a StepState for each. The first failing step
// ends the run and the remaining steps are marked skipped.
//
// Step: a single unit of work. Steps pass their results to later steps
// through the OperationState context.
//
// Registry: keeps the steps in registration order.
//
// Pipeline steps: load, clean, categorize, join, aggregate, model and
// export, built from the application config by NewPipeline.
//
// Example usage:
//
//	manager, err := operations.NewPipeline(operations.PipelineConfigFromConfig(cfg), exp, tracer, logger)
//	if err != nil {
//	    return err
//	}
//	resp, state, err := manager.Execute(ctx, operations.OperationRequest{})
//	report, _ := operations.ReportFromState(state)
package operations
