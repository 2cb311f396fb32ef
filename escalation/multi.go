package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// =============================================================================
// MultiSink
// =============================================================================

// MultiSink writes every record to each of its sinks.
type MultiSink struct {
	Sinks  []Sink
	Logger *slog.Logger
}

// NewMultiSink creates a sink that fans out to sinks. Nil entries are
// skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{Logger: slog.Default()}
	for _, s := range sinks {
		if s != nil {
			m.Sinks = append(m.Sinks, s)
		}
	}
	return m
}

// Name implements the sink label.
func (m *MultiSink) Name() string { return "multi" }

// Record writes rec to every sink. A failing sink does not stop the others;
// the returned error joins all failures.
func (m *MultiSink) Record(ctx context.Context, rec Record) error {
	var errs []error
	for _, sink := range m.Sinks {
		if err := sink.Record(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", Name(sink), err))
			if m.Logger != nil {
				m.Logger.Warn("escalation sink failed",
					"sink", Name(sink),
					"runId", rec.RunID,
					"error", err,
				)
			}
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// NopSink
// =============================================================================

// NopSink discards records.
type NopSink struct{}

// Name implements the sink label.
func (NopSink) Name() string { return "nop" }

// Record implements Sink.
func (NopSink) Record(context.Context, Record) error { return nil }
