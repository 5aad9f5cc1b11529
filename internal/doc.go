// Package internal contains the implementation packages of the tmplc CLI.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules. Generated code only
// depends on pkg/render.
//
// # Package Organization
//
// The compiler core:
//
//   - ast: Syntax tree produced by a parser front-end
//   - astfile: YAML document decoding and the layout/component loader
//   - emit: Emission operations and compiled programs
//   - compiler: Lowering of a tree into operations
//   - codegen: Go source generation from a compiled program
//
// The tooling around it:
//
//   - build: Pipeline with a worker pool, output cache and metrics
//   - config: Viper based configuration with validation
//   - errors: Structured compile errors and diagnostics
//   - logging: Structured logging on log/slog
//   - registry: Discovered templates and their references
//   - scanner: View root discovery and document analysis
//   - watcher: Debounced file system monitoring
//   - version: Build information
//
// # Data Flow
//
// The scanner registers every document with the registry. The build
// pipeline loads each template through astfile, compiles it and hands the
// program to codegen. The watcher turns file changes into invalidations of
// the affected templates, which the pipeline rebuilds.
package internal
