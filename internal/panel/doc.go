// Package panel turns the optimisation API's datasets into dashboard panels.
//
// This package is internal to EcoBoard and holds only pure functions: given
// decoded records it builds chart figures and the metrics summary. It performs
// no I/O.
//
// The main components are:
//
//   - [UsageRecord], [OptimizationRecord], [PredictionResult]: upstream payloads
//   - [Figure]: a chart as passed to the browser's newPlot call
//   - [GroupByServer]: per-server partitioning of usage records
//   - [ComputeSummary] and [Summary.Cards]: the metrics panel
package panel
