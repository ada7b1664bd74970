// Package parser turns raw assistant output into structured review issues.
//
// Responses arrive as whatever text the assistant produced: a clean JSON
// array, an array wrapped in markdown fences, JSON buried in prose, or a
// half-valid mess. Parse applies four fallback strategies in a fixed order
// and takes the first that succeeds:
//
//  1. direct parse of the whole text (array, or object with an "issues" key)
//  2. the same after stripping markdown code fences
//  3. the substring between the first '[' and the last ']'
//  4. brace-depth scanning that recovers individual well-formed objects and
//     silently discards malformed spans
//
// Parse never returns an error. Total failure is reported as a ReviewResult
// with ParseError set and the original text preserved for diagnostics.
package parser
