package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/analytics"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/config"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/dataprocessing"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/exporter"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/infrastructure"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/validation"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// PipelineConfig holds the settings of every pipeline step
type PipelineConfig struct {
	SchoolsFile   string
	CountiesFile  string
	ReferenceYear int
	Loader        dataprocessing.LoaderConfig
	Cleaner       dataprocessing.CleanerConfig
	Categorizer   dataprocessing.CategorizerConfig
	Aggregator    analytics.AggregatorConfig
	Modeler       analytics.ModelerConfig
}

// PipelineConfigFromConfig maps the application config onto the steps
func PipelineConfigFromConfig(cfg *config.Config) PipelineConfig {
	var delimiter rune
	for _, r := range cfg.Inputs.Delimiter {
		delimiter = r
		break
	}
	return PipelineConfig{
		SchoolsFile:   cfg.Inputs.SchoolsFile,
		CountiesFile:  cfg.Inputs.CountiesFile,
		ReferenceYear: cfg.Analysis.ReferenceYear,
		Loader:        dataprocessing.LoaderConfig{Delimiter: delimiter},
		Cleaner: dataprocessing.CleanerConfig{
			Sentinel:       cfg.Analysis.Sentinel,
			CountySentinel: cfg.Analysis.CountySentinel,
		},
		Categorizer: dataprocessing.CategorizerConfig{
			LowQuantile:  cfg.Analysis.LowQuantile,
			HighQuantile: cfg.Analysis.HighQuantile,
		},
		Aggregator: analytics.AggregatorConfig{TopN: cfg.Analysis.TopN},
		Modeler:    analytics.ModelerConfig{LowEnrollmentMax: cfg.Analysis.LowEnrollmentMax},
	}
}

// NewPipeline registers the analysis steps in execution order. With a nil
// exporter the last step only assembles the report.
func NewPipeline(cfg PipelineConfig, exp *exporter.Exporter, tracer *OperationTracer, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = NewOperationTracer(nil)
	}
	metrics := tracer.Metrics()

	steps := []Step{
		NewLoadStep(dataprocessing.NewLoader(logger, cfg.Loader), validation.NewFileValidator(logger), cfg.SchoolsFile, cfg.CountiesFile, metrics),
		NewCleanStep(dataprocessing.NewCleaner(logger, cfg.Cleaner), metrics),
		NewCategorizeStep(dataprocessing.NewCategorizer(logger, cfg.Categorizer)),
		NewJoinStep(dataprocessing.NewJoiner(logger)),
		NewAggregateStep(analytics.NewAggregator(logger, cfg.Aggregator), cfg.ReferenceYear),
		NewModelStep(analytics.NewModeler(logger, cfg.Modeler), metrics),
		NewReportStep(exp),
	}

	manager := NewManager(NewRegistry(), tracer, logger)
	for _, step := range steps {
		if err := manager.RegisterStage(step); err != nil {
			return nil, fmt.Errorf("failed to register step: %w", err)
		}
	}
	return manager, nil
}

// ReportFromState returns the report assembled by the export step
func ReportFromState(state *OperationState) (*domain.Report, bool) {
	return contextValue[*domain.Report](state, ContextKeyReport)
}

// requireContext fails validation when a key is missing
func requireContext(state *OperationState, step string, keys ...string) error {
	for _, key := range keys {
		if _, ok := state.GetContext(key); !ok {
			return errMissingInput(step, key)
		}
	}
	return nil
}

// LoadStep reads both input tables
type LoadStep struct {
	BaseStage
	loader       *dataprocessing.Loader
	validator    *validation.FileValidator
	schoolsFile  string
	countiesFile string
	metrics      *infrastructure.PipelineMetrics
}

// NewLoadStep creates the load step
func NewLoadStep(loader *dataprocessing.Loader, validator *validation.FileValidator, schoolsFile, countiesFile string, metrics *infrastructure.PipelineMetrics) *LoadStep {
	return &LoadStep{
		BaseStage:    NewBaseStage(StepIDLoad, StepNameLoad),
		loader:       loader,
		validator:    validator,
		schoolsFile:  schoolsFile,
		countiesFile: countiesFile,
		metrics:      metrics,
	}
}

// Requires implements Dataflow
func (s *LoadStep) Requires() []string { return nil }

// Provides implements Dataflow
func (s *LoadStep) Provides() []string { return []string{ContextKeyInputs} }

// Validate checks that both inputs are set and readable
func (s *LoadStep) Validate(state *OperationState) error {
	if s.schoolsFile == "" || s.countiesFile == "" {
		return NewValidationError(s.ID(), "schools and counties files are required")
	}
	if s.validator == nil {
		return nil
	}
	for _, path := range []string{s.schoolsFile, s.countiesFile} {
		if err := s.validator.ValidateInputFile(path); err != nil {
			return err
		}
	}
	return nil
}

// Execute loads the inputs into the operation context
func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	inputs, err := s.loader.LoadInputs(ctx, s.schoolsFile, s.countiesFile)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyInputs, inputs)

	s.metrics.RecordRowsLoaded(ctx, "schools", len(inputs.Schools))
	s.metrics.RecordRowsLoaded(ctx, "counties", len(inputs.Counties))

	stepState := state.GetStage(s.ID())
	stepState.SetMetadata("schools", len(inputs.Schools))
	stepState.SetMetadata("counties", len(inputs.Counties))
	stepState.SetMessage(fmt.Sprintf("loaded %d schools and %d counties", len(inputs.Schools), len(inputs.Counties)))
	return nil
}

// CleanStep applies the cleaning rules to the schools table
type CleanStep struct {
	BaseStage
	cleaner *dataprocessing.Cleaner
	metrics *infrastructure.PipelineMetrics
}

// NewCleanStep creates the clean step
func NewCleanStep(cleaner *dataprocessing.Cleaner, metrics *infrastructure.PipelineMetrics) *CleanStep {
	return &CleanStep{
		BaseStage: NewBaseStage(StepIDClean, StepNameClean),
		cleaner:   cleaner,
		metrics:   metrics,
	}
}

// Requires implements Dataflow
func (s *CleanStep) Requires() []string { return []string{ContextKeyInputs} }

// Provides implements Dataflow
func (s *CleanStep) Provides() []string { return []string{ContextKeySchools, ContextKeyCleaningReport} }

// Validate checks that the inputs were loaded
func (s *CleanStep) Validate(state *OperationState) error {
	return requireContext(state, s.ID(), s.Requires()...)
}

// Execute cleans the schools and records what each rule changed
func (s *CleanStep) Execute(ctx context.Context, state *OperationState) error {
	inputs, ok := contextValue[*dataprocessing.Inputs](state, ContextKeyInputs)
	if !ok {
		return errMissingInput(s.ID(), ContextKeyInputs)
	}

	schools, report := s.cleaner.Clean(ctx, inputs.Schools)
	state.SetContext(ContextKeySchools, schools)
	state.SetContext(ContextKeyCleaningReport, report)

	s.metrics.RecordCleaning(ctx, dataprocessing.RuleDropMissingCounty, report.DroppedMissingCounty, 0)
	s.metrics.RecordCleaning(ctx, dataprocessing.RuleSentinelToMissing, 0, sum(report.SentinelNulled))
	s.metrics.RecordCleaning(ctx, dataprocessing.RuleUnrecoverableLunch, 0, sum(report.Unrecoverable))
	infrastructure.AddSpanEvent(ctx, "cleaning_report", map[string]interface{}{
		"rows_in":          report.RowsIn,
		"rows_out":         report.RowsOut,
		"rescaled":         sum(report.Rescaled),
		"combined_overlap": report.CombinedOverlap,
	})

	stepState := state.GetStage(s.ID())
	stepState.SetMetadata("rows_out", report.RowsOut)
	stepState.SetMetadata("values_nulled", report.Nulled())
	stepState.SetMessage(fmt.Sprintf("kept %d of %d schools", report.RowsOut, report.RowsIn))
	return nil
}

func sum(counts map[string]int) int {
	n := 0
	for _, v := range counts {
		n += v
	}
	return n
}

// CategorizeStep assigns poverty tiers to the counties
type CategorizeStep struct {
	BaseStage
	categorizer *dataprocessing.Categorizer
}

// NewCategorizeStep creates the categorize step
func NewCategorizeStep(categorizer *dataprocessing.Categorizer) *CategorizeStep {
	return &CategorizeStep{
		BaseStage:   NewBaseStage(StepIDCategorize, StepNameCategorize),
		categorizer: categorizer,
	}
}

// Requires implements Dataflow
func (s *CategorizeStep) Requires() []string { return []string{ContextKeyInputs} }

// Provides implements Dataflow
func (s *CategorizeStep) Provides() []string { return []string{ContextKeyCounties, ContextKeyCutoffs} }

// Validate checks that the inputs were loaded
func (s *CategorizeStep) Validate(state *OperationState) error {
	return requireContext(state, s.ID(), s.Requires()...)
}

// Execute tiers the counties
func (s *CategorizeStep) Execute(ctx context.Context, state *OperationState) error {
	inputs, ok := contextValue[*dataprocessing.Inputs](state, ContextKeyInputs)
	if !ok {
		return errMissingInput(s.ID(), ContextKeyInputs)
	}

	counties, cutoffs := s.categorizer.Categorize(ctx, inputs.Counties)
	state.SetContext(ContextKeyCounties, counties)
	state.SetContext(ContextKeyCutoffs, cutoffs)

	state.GetStage(s.ID()).SetMessage(fmt.Sprintf("tiered %d counties over %d years", len(counties), len(cutoffs)))
	return nil
}

// JoinStep merges schools with their county-year row
type JoinStep struct {
	BaseStage
	joiner *dataprocessing.Joiner
}

// NewJoinStep creates the join step
func NewJoinStep(joiner *dataprocessing.Joiner) *JoinStep {
	return &JoinStep{
		BaseStage: NewBaseStage(StepIDJoin, StepNameJoin),
		joiner:    joiner,
	}
}

// Requires implements Dataflow
func (s *JoinStep) Requires() []string { return []string{ContextKeySchools, ContextKeyCounties} }

// Provides implements Dataflow
func (s *JoinStep) Provides() []string { return []string{ContextKeyMerged} }

// Validate checks that both tables were prepared
func (s *JoinStep) Validate(state *OperationState) error {
	return requireContext(state, s.ID(), s.Requires()...)
}

// Execute joins the tables
func (s *JoinStep) Execute(ctx context.Context, state *OperationState) error {
	schools, _ := contextValue[[]domain.EnrichedSchool](state, ContextKeySchools)
	counties, _ := contextValue[[]domain.EnrichedCounty](state, ContextKeyCounties)

	merged, err := s.joiner.Join(ctx, schools, counties)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyMerged, merged)

	state.GetStage(s.ID()).SetMessage(fmt.Sprintf("merged %d rows", len(merged)))
	return nil
}

// AggregateStep builds the summary tables
type AggregateStep struct {
	BaseStage
	aggregator    *analytics.Aggregator
	referenceYear int
}

// NewAggregateStep creates the aggregate step. A zero referenceYear
// selects the latest county year.
func NewAggregateStep(aggregator *analytics.Aggregator, referenceYear int) *AggregateStep {
	return &AggregateStep{
		BaseStage:     NewBaseStage(StepIDAggregate, StepNameAggregate),
		aggregator:    aggregator,
		referenceYear: referenceYear,
	}
}

// Requires implements Dataflow
func (s *AggregateStep) Requires() []string { return []string{ContextKeyMerged, ContextKeyCounties, ContextKeyCutoffs} }

// Provides implements Dataflow
func (s *AggregateStep) Provides() []string { return []string{ContextKeyReferenceYear, ContextKeyTables} }

// Validate checks that the merged table and cutoffs exist
func (s *AggregateStep) Validate(state *OperationState) error {
	return requireContext(state, s.ID(), s.Requires()...)
}

// Execute aggregates the merged records
func (s *AggregateStep) Execute(ctx context.Context, state *OperationState) error {
	merged, _ := contextValue[[]domain.MergedRecord](state, ContextKeyMerged)
	counties, _ := contextValue[[]domain.EnrichedCounty](state, ContextKeyCounties)
	cutoffs, _ := contextValue[[]domain.PovertyCutoffs](state, ContextKeyCutoffs)

	year, ok := analytics.ResolveReferenceYear(s.referenceYear, counties)
	if !ok {
		return NewValidationError(s.ID(), "no county year available to use as reference year")
	}

	tables := s.aggregator.Aggregate(ctx, merged, counties, cutoffs, year)
	state.SetContext(ContextKeyReferenceYear, year)
	state.SetContext(ContextKeyTables, tables)

	stepState := state.GetStage(s.ID())
	stepState.SetMetadata("reference_year", year)
	stepState.SetMessage(fmt.Sprintf("summarized %d counties for reference year %d", len(tables.Counties), year))
	return nil
}

// ModelStep fits the regressions
type ModelStep struct {
	BaseStage
	modeler *analytics.Modeler
	metrics *infrastructure.PipelineMetrics
}

// NewModelStep creates the model step
func NewModelStep(modeler *analytics.Modeler, metrics *infrastructure.PipelineMetrics) *ModelStep {
	return &ModelStep{
		BaseStage: NewBaseStage(StepIDModel, StepNameModel),
		modeler:   modeler,
		metrics:   metrics,
	}
}

// Requires implements Dataflow
func (s *ModelStep) Requires() []string { return []string{ContextKeyMerged, ContextKeyTables} }

// Provides implements Dataflow
func (s *ModelStep) Provides() []string { return []string{ContextKeyRegressions} }

// Validate checks that the summary tables exist
func (s *ModelStep) Validate(state *OperationState) error {
	return requireContext(state, s.ID(), s.Requires()...)
}

// Execute fits every regression and records their R²
func (s *ModelStep) Execute(ctx context.Context, state *OperationState) error {
	merged, _ := contextValue[[]domain.MergedRecord](state, ContextKeyMerged)
	tables, _ := contextValue[*domain.ReportTables](state, ContextKeyTables)

	regressions := s.modeler.FitAll(ctx, merged, tables.CountyYears, tables.ReferenceYear)
	state.SetContext(ContextKeyRegressions, regressions)

	fitted := 0
	for _, r := range regressions {
		if !r.Fitted() {
			continue
		}
		fitted++
		if r2, ok := r.Fit.RSquared.Get(); ok {
			s.metrics.RecordRegression(ctx, r.ID, r2)
		}
	}

	state.GetStage(s.ID()).SetMessage(fmt.Sprintf("fitted %d of %d regressions", fitted, len(regressions)))
	return nil
}

// ReportStep assembles the report and hands it to the exporter
type ReportStep struct {
	BaseStage
	exporter *exporter.Exporter
}

// NewReportStep creates the export step. With a nil exporter the report
// is only assembled.
func NewReportStep(exp *exporter.Exporter) *ReportStep {
	return &ReportStep{
		BaseStage: NewBaseStage(StepIDExport, StepNameExport),
		exporter:  exp,
	}
}

// Requires implements Dataflow
func (s *ReportStep) Requires() []string { return []string{ContextKeyMerged, ContextKeyTables, ContextKeyRegressions} }

// Provides implements Dataflow
func (s *ReportStep) Provides() []string { return []string{ContextKeyReport, ContextKeyExportResult} }

// Validate checks that the analysis produced its results
func (s *ReportStep) Validate(state *OperationState) error {
	return requireContext(state, s.ID(), s.Requires()...)
}

// Execute builds the report and writes every enabled output
func (s *ReportStep) Execute(ctx context.Context, state *OperationState) error {
	merged, _ := contextValue[[]domain.MergedRecord](state, ContextKeyMerged)
	tables, _ := contextValue[*domain.ReportTables](state, ContextKeyTables)
	regressions, _ := contextValue[[]domain.Regression](state, ContextKeyRegressions)

	report := &domain.Report{
		RunID:       state.ID,
		GeneratedAt: time.Now().UTC(),
		Tables:      tables,
		Regressions: regressions,
		Merged:      merged,
	}
	state.SetContext(ContextKeyReport, report)

	if s.exporter == nil {
		state.GetStage(s.ID()).SetMessage("report assembled")
		return nil
	}

	result, err := s.exporter.Export(ctx, report)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyExportResult, result)

	stepState := state.GetStage(s.ID())
	stepState.SetMetadata("files", result.Files)
	stepState.SetMessage(fmt.Sprintf("wrote %d files", len(result.Files)))
	return nil
}
