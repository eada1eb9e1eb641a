package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

const storeScopeName = "github.com/HendryAvila/phasegate/ledger"

// InstrumentedStore wraps ledger.Store with a span and counters per call.
// Use WrapStore to create one.
type InstrumentedStore struct {
	inner  ledger.Store
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

var _ ledger.Store = (*InstrumentedStore)(nil)

// WrapStore returns s decorated with OTel instrumentation, or s itself when
// telemetry is disabled.
func WrapStore(s ledger.Store) ledger.Store {
	if !Enabled() {
		return s
	}
	m := Meter(storeScopeName)
	ops, _ := m.Int64Counter("phasegate.ledger.operations",
		metric.WithDescription("Total ledger operations executed"),
	)
	dur, _ := m.Float64Histogram("phasegate.ledger.operation.duration",
		metric.WithDescription("Ledger operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("phasegate.ledger.errors",
		metric.WithDescription("Total ledger operation errors"),
	)
	return &InstrumentedStore{
		inner:  s,
		tracer: Tracer(storeScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

func (s *InstrumentedStore) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("ledger.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "ledger."+name, trace.WithAttributes(all...))
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func featureAttr(id string) attribute.KeyValue {
	return attribute.String("phasegate.feature.id", id)
}

func (s *InstrumentedStore) Init(ctx context.Context, layout ledger.Layout) error {
	ctx, span, t := s.op(ctx, "Init")
	err := s.inner.Init(ctx, layout)
	s.done(ctx, span, t, err)
	return err
}

func (s *InstrumentedStore) Load(ctx context.Context, layout ledger.Layout) (*ledger.Ledger, error) {
	ctx, span, t := s.op(ctx, "Load")
	v, err := s.inner.Load(ctx, layout)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) Add(ctx context.Context, layout ledger.Layout, p ledger.AddParams) (*ledger.Feature, error) {
	attrs := []attribute.KeyValue{attribute.String("phasegate.feature.type", string(p.Type))}
	ctx, span, t := s.op(ctx, "Add", attrs...)
	v, err := s.inner.Add(ctx, layout, p)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) Find(ctx context.Context, layout ledger.Layout, id string) (*ledger.Feature, error) {
	attrs := []attribute.KeyValue{featureAttr(id)}
	ctx, span, t := s.op(ctx, "Find", attrs...)
	v, err := s.inner.Find(ctx, layout, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) List(ctx context.Context, layout ledger.Layout) ([]ledger.Feature, error) {
	ctx, span, t := s.op(ctx, "List")
	v, err := s.inner.List(ctx, layout)
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) Remove(ctx context.Context, layout ledger.Layout, id string) error {
	attrs := []attribute.KeyValue{featureAttr(id)}
	ctx, span, t := s.op(ctx, "Remove", attrs...)
	err := s.inner.Remove(ctx, layout, id)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStore) UpdatePhase(ctx context.Context, layout ledger.Layout, id string, phase ledger.Phase) (*ledger.Feature, error) {
	attrs := []attribute.KeyValue{featureAttr(id), attribute.String("phasegate.phase", string(phase))}
	ctx, span, t := s.op(ctx, "UpdatePhase", attrs...)
	v, err := s.inner.UpdatePhase(ctx, layout, id, phase)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) SetPhase(ctx context.Context, layout ledger.Layout, id string, phase ledger.Phase) (*ledger.Feature, error) {
	attrs := []attribute.KeyValue{featureAttr(id), attribute.String("phasegate.phase", string(phase))}
	ctx, span, t := s.op(ctx, "SetPhase", attrs...)
	v, err := s.inner.SetPhase(ctx, layout, id, phase)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) UpdateMetadata(ctx context.Context, layout ledger.Layout, id string, edit ledger.MetadataEdit) (*ledger.Feature, error) {
	attrs := []attribute.KeyValue{featureAttr(id)}
	ctx, span, t := s.op(ctx, "UpdateMetadata", attrs...)
	v, err := s.inner.UpdateMetadata(ctx, layout, id, edit)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) Restore(ctx context.Context, layout ledger.Layout, f ledger.Feature) error {
	attrs := []attribute.KeyValue{featureAttr(f.ID)}
	ctx, span, t := s.op(ctx, "Restore", attrs...)
	err := s.inner.Restore(ctx, layout, f)
	s.done(ctx, span, t, err, attrs...)
	return err
}
