package source

import "context"

// Sink receives observations. heatmap.SyncBoard satisfies it.
type Sink interface {
	Add(group, series string, value float64) error
}

// Source produces observations until it is exhausted or ctx is cancelled.
type Source interface {
	Run(ctx context.Context, sink Sink) error
}

// Sample is one observation as stored or transmitted by a producer.
type Sample struct {
	Group  string
	Series string
	Value  float64
}

// Stats counts what a source has delivered so far.
type Stats struct {
	Accepted  int
	Rejected  int
	Malformed int
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(group, series string, value float64) error

func (f SinkFunc) Add(group, series string, value float64) error {
	return f(group, series, value)
}
