package observe

import (
	"context"
	"strconv"
	"time"

	"github.com/opentracing/opentracing-go"
	tracerLog "github.com/opentracing/opentracing-go/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Easy composes the default sinks: zap logging, a prometheus duration
// histogram named metricName, and opentracing spans.
func Easy(desc string, metricName string, extra ...Factory) Factory {
	chain := Chain{
		NewLoggerFactory(zap.L(), false, desc),
		NewPromFactory(metricName),
		NewTracerFactory(opentracing.GlobalTracer()),
	}
	return append(chain, extra...)
}

type LoggerFactory struct {
	logger      *zap.Logger
	recordNoErr bool
	desc        string
}

// NewLoggerFactory logs committed tasks. When recordNoErr is false only
// failures are logged.
func NewLoggerFactory(logger *zap.Logger, recordNoErr bool, desc string) *LoggerFactory {
	return &LoggerFactory{
		logger:      logger,
		recordNoErr: recordNoErr,
		desc:        desc,
	}
}

func (factory *LoggerFactory) TaskRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context) {
	if factory.logger == nil {
		return skipRecorder{}, ctx
	}
	return loggerRecorder{
		factory:   factory,
		name:      name,
		fields:    fields,
		startTime: time.Now(),
	}, ctx
}

type loggerRecorder struct {
	factory   *LoggerFactory
	name      string
	fields    []Field
	startTime time.Time
}

func (rec loggerRecorder) Commit(err error, fields ...Field) {
	factory := rec.factory
	if err == nil && !factory.recordNoErr {
		return
	}

	fs := make([]zap.Field, 0, len(rec.fields)+len(fields)+3)
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	fs = append(fs, zap.String("name", rec.name))
	fs = append(fs, zap.Duration("duration", time.Since(rec.startTime)))
	for _, f := range rec.fields {
		fs = append(fs, zap.String(f.Name, f.StringValue()))
	}
	for _, f := range fields {
		fs = append(fs, zap.String(f.Name, f.StringValue()))
	}

	if err == nil {
		factory.logger.Info(factory.desc, fs...)
	} else {
		factory.logger.Error(factory.desc, fs...)
	}
}

type PromFactory struct {
	fields map[string]bool
	hv     *prometheus.HistogramVec
}

// NewPromFactory observes task durations in milliseconds, labelled by task
// name and error outcome plus any declared extra field names.
func NewPromFactory(name string, fields ...string) *PromFactory {
	fields = append(fields, "err", "name")
	fs := make(map[string]bool)
	for _, f := range fields {
		fs[f] = true
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: name,
		Help: name,
	}, fields)
	return &PromFactory{
		fields: fs,
		hv:     hv,
	}
}

func (factory *PromFactory) MustRegister(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(factory.hv)
}

func (factory *PromFactory) TaskRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context) {
	if factory.hv == nil {
		return skipRecorder{}, ctx
	}
	return &promRecorder{
		factory:   factory,
		name:      name,
		fields:    fields,
		startTime: time.Now(),
	}, ctx
}

type promRecorder struct {
	factory   *PromFactory
	name      string
	fields    []Field
	startTime time.Time
}

func (rec *promRecorder) Commit(err error, fields ...Field) {
	labels := prometheus.Labels{
		"err":  strconv.FormatBool(err != nil),
		"name": rec.name,
	}
	for _, f := range append(rec.fields, fields...) {
		if f.Name == "err" || f.Name == "name" {
			continue
		}
		if rec.factory.fields[f.Name] {
			labels[f.Name] = f.StringValue()
		}
	}
	rec.factory.hv.With(labels).Observe(float64(time.Since(rec.startTime)) / float64(time.Millisecond))
}

type TracerFactory struct {
	tracer opentracing.Tracer
}

func NewTracerFactory(tracer opentracing.Tracer) *TracerFactory {
	return &TracerFactory{tracer: tracer}
}

func (factory *TracerFactory) TaskRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context) {
	tracer := factory.tracer
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}
	if tracer == nil {
		return skipRecorder{}, ctx
	}

	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, tracer, name)
	for _, f := range fields {
		span.SetTag(f.Name, f.Value())
	}
	return tracerRecorder{span: span}, ctx
}

type tracerRecorder struct {
	span opentracing.Span
}

func (rec tracerRecorder) Commit(err error, fields ...Field) {
	if err != nil {
		rec.span.SetTag("err", true)
		rec.span.LogFields(tracerLog.Error(err))
	}
	for _, f := range fields {
		rec.span.SetTag(f.Name, f.Value())
	}
	rec.span.Finish()
}
