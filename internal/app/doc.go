// Package app wires one invocation of the report: the analysis pipeline,
// the exporter, the report services and the optional preview server.
//
// # Lifecycle
//
//	1. The caller loads configuration and initializes logging and telemetry
//	2. NewApplication builds the pipeline, services and router
//	3. Run generates the report, then serves it while the preview is enabled
//	4. Stop flushes telemetry
//
// # Usage
//
//	a, err := app.NewApplication(cfg, providers, logger, nil)
//	if err != nil {
//	    return err
//	}
//	defer a.Stop(context.Background())
//	return a.Run(ctx)
//
// The package never calls os.Exit; the main function owns the exit code.
package app
