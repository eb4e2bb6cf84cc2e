// Package l6sessions owns Layer 6 (Sessions) of the gait data model.
//
// Responsibilities: accumulating sealed gait cycles and per-frame
// statistics into a session summary (dominant strike pattern, detection
// rate, latency percentiles, angle summaries, cadence), with an idempotent
// finalisation step.
// Key types: Aggregator, Cycle, Summary, Flag.
//
// Dependency rule: L6 may depend on L1-L5.
package l6sessions
