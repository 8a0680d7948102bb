// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Catalog: Read-only dataset configuration table
//   - Fetcher: Downloads one dataset from its source
//   - FetcherRegistry: Selects the fetcher for a source kind
//   - StepPipeline: Applies named preprocessing steps to a dataset stage
//   - CheckRegistry: Builds named validation checks
//   - ManifestStore: Download/preprocess session persistence
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, fetcher, or preprocessor package
package driven
