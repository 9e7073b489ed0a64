// Package dataprocessing turns the two raw input tables into the merged
// school-county dataset the report is built from.
//
// # Architecture
//
// The package is organized into four stages, run in order:
//
// 1. Loader: reads the schools and counties tables (delimited text or .xlsx)
// 2. Cleaner: recodes sentinels, repairs lunch fractions, derives z-scores and counts
// 3. Categorizer: tiers counties into low, medium and high poverty per year
// 4. Joiner: left-joins schools to their county-year row
//
// # Usage
//
//	loader := dataprocessing.NewLoader(logger, dataprocessing.LoaderConfig{Delimiter: ','})
//	inputs, err := loader.LoadInputs(ctx, "schools.csv", "counties.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	schools, report := dataprocessing.NewCleaner(logger, dataprocessing.DefaultCleanerConfig()).
//	    Clean(ctx, inputs.Schools)
//	counties, cutoffs := dataprocessing.NewCategorizer(logger, dataprocessing.DefaultCategorizerConfig()).
//	    Categorize(ctx, inputs.Counties)
//	merged, err := dataprocessing.Join(schools, counties)
package dataprocessing
