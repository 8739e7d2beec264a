// Package observe records per-task outcomes across the ambient sinks:
// structured logs, duration histograms and trace spans. A Factory opens one
// Recorder per task; the Recorder is committed exactly once with the task's
// terminal error.
package observe

import (
	"context"
	"fmt"
	"strconv"
)

type Field struct {
	Name  string
	value interface{}
}

func String(name, value string) Field {
	return Field{Name: name, value: value}
}

func Int(name string, value int) Field {
	return Field{Name: name, value: value}
}

func Int64(name string, value int64) Field {
	return Field{Name: name, value: value}
}

func Bool(name string, value bool) Field {
	return Field{Name: name, value: value}
}

func (f Field) Value() interface{} {
	return f.value
}

func (f Field) StringValue() string {
	switch v := f.value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

type Recorder interface {
	Commit(err error, fields ...Field)
}

type Factory interface {
	TaskRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context)
}

// Chain fans one task out to several factories.
type Chain []Factory

func (chain Chain) TaskRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context) {
	recorders := make(chainRecorder, 0, len(chain))
	for _, factory := range chain {
		var rec Recorder
		rec, ctx = factory.TaskRecorder(ctx, name, fields...)
		recorders = append(recorders, rec)
	}
	return recorders, ctx
}

type chainRecorder []Recorder

func (recorders chainRecorder) Commit(err error, fields ...Field) {
	for _, rec := range recorders {
		rec.Commit(err, fields...)
	}
}

type skipRecorder struct{}

func (skipRecorder) Commit(err error, fields ...Field) {}
