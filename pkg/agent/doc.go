// Package agent orchestrates conversational expense-assistant runs: it loads
// the owner's thread, drives the model through a bounded tool loop, and
// persists both sides of the exchange.
//
// Invariants:
//   - The owner id travels in tools.ExecContext, never in model parameters.
//   - The user message is persisted before the first provider call and the
//     assistant reply after the last one.
//   - The tool loop is bounded; a model that never stops calling tools is
//     cut off with an error rather than looping forever.
package agent
