// Package model defines the value types shared across the review engine:
// severity and category enumerations with lenient string coercion, the Issue
// and ReviewResult types, review scopes and depths, and progress snapshots.
//
// Issues carry a deliberately weak identity — (severity, category, file,
// title, line) — used to relocate a previously selected issue across result
// rebuilds. The fixed/fixing flags belong to the external quick-fix workflow;
// the engine itself only sets them when restoring persisted state.
package model
