// Package app provides the application service layer.
//
// StatsService runs the ancestor-propagating write protocol and the
// accumulator-backed rankings. Dashboard recomputes windowed rollups straight
// from post storage. SnapshotScheduler persists rollup scores four times a day
// for trend comparison. AnalysisRecorder and ReactionToggler track per-post
// state so corrections and reaction changes revert exactly what was applied.
// Depends on domain interfaces, not concrete implementations.
package app
