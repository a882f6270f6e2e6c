// Package gait owns the value types shared by the gait-cycle validation
// engine.
//
// Responsibilities: the two analysis modes and their fixed feature
// orderings, per-task range tables, phase-normalised step arrays, the
// step→task mapping, and the canonical mapping from representative phase
// percentages to sample indices.
//
// Dependency rule: this package imports nothing from the engine
// sub-packages (validate, classify, synth, tuning). They depend on it.
// No I/O is allowed here; persistence lives in internal/rangestore and
// internal/db.
package gait
