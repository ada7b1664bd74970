// Assay reviews source code with the claude command line tool.
//
// It gathers files for a scope (a single file, a line selection, uncommitted
// changes, or everything changed relative to the default branch), sends them
// to claude in parallel batches, and reports structured issues with
// deterministic exit codes suitable for CI gating.
//
// Usage:
//
//	assay review                      # review uncommitted changes
//	assay review branch               # review changes relative to the default branch
//	assay review file --file main.go  # review one file
//	assay results                     # show the saved results of the last review
//	assay clear                       # delete the saved results
//
// See https://github.com/kacmedija/assay for full documentation.
package main
