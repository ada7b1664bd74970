// Package prompt assembles the request text sent to the assistant for a
// review batch. Assembly is deterministic and side-effect free: framing and
// JSON-only directives first, then the schema, a worked example, category and
// depth instructions, optional standards and custom blocks, the file payload,
// and a closing reminder. The section order is load-bearing — the assistant
// follows the format far more reliably when instructions precede the payload.
package prompt
