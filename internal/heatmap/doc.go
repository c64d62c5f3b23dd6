// Package heatmap aggregates streams of scalar telemetry into heat-map rows
// and scales them for display.
//
// The model has three levels. A Series (a row) keeps a bounded rolling
// window of observations for one metric, newest first, together with the
// minimum and maximum of the retained values. A Group is a named set of
// series, typically every metric recorded for one parameter. A Board is the
// set of all groups; on Update it computes, for every series name, the
// extrema across all groups and pushes them down so rows can be scaled
// against the whole board.
//
// Scaling maps an observation into [-1, 1] by dividing by the largest
// absolute extremum of the selected Mode, optionally after log compression
// ln(1+|x|) of both operands. A scaled magnitude above 1 means extremum
// tracking went wrong upstream; it is reported, never clamped.
//
// Nothing recomputes implicitly. After a batch of Add calls or setting
// changes the caller invokes Update before reading visible cells. None of
// the types are safe for concurrent use; SyncBoard wraps a Board with a
// single lock for hosts that feed it from several goroutines.
package heatmap
