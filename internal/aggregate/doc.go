// Package aggregate is the pure computation core: it turns a validated,
// in-memory snapshot of classified items into time-bucketed sentiment ratios
// and top-N reports. It performs no I/O, holds no state and is safe to call
// concurrently.
package aggregate
