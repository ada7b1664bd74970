// Package cli wires together the Cobra command tree for the assay binary.
//
// It defines the root command and all subcommands (review, results, clear,
// config, version), binds flags, reads configuration, invokes the review
// service, and returns deterministic exit codes for CI gating.
package cli
