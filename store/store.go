// Package store archives generated circuit pairs. A driver may equally well
// discard its results; archiving is opt-in per run.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/amartinfer/qcbatch/circuit"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: record for task index already saved")
	ErrBadRecord = errors.New("store: incomplete record")
)

// Record is one archived task output.
type Record struct {
	Index     int
	Seed      int64
	Full      *circuit.Circuit
	Reduced   *circuit.Circuit
	CreatedAt time.Time
}

func (rec Record) validate() error {
	if rec.Index < 0 || rec.Full == nil || rec.Reduced == nil {
		return errors.Wrapf(ErrBadRecord, "index %d", rec.Index)
	}
	return nil
}

type Archive interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, index int) (Record, error)
	Count(ctx context.Context) (int64, error)
	Close(ctx context.Context) error
}

// Memory is an in-process archive, keyed by task index.
type Memory struct {
	rw    sync.RWMutex
	table map[int]Record
}

func NewMemory() *Memory {
	return &Memory{table: map[int]Record{}}
}

func (mem *Memory) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	mem.rw.Lock()
	defer mem.rw.Unlock()
	if _, ok := mem.table[rec.Index]; ok {
		return errors.Wrapf(ErrDuplicate, "index %d", rec.Index)
	}
	// snapshot so later caller mutation cannot reach the archive
	rec.Full = rec.Full.Snapshot()
	rec.Reduced = rec.Reduced.Snapshot()
	mem.table[rec.Index] = rec
	return nil
}

func (mem *Memory) Load(ctx context.Context, index int) (Record, error) {
	mem.rw.RLock()
	rec, ok := mem.table[index]
	mem.rw.RUnlock()
	if !ok {
		return Record{}, errors.Wrapf(ErrNotFound, "index %d", index)
	}
	rec.Full = rec.Full.Snapshot()
	rec.Reduced = rec.Reduced.Snapshot()
	return rec, nil
}

func (mem *Memory) Count(ctx context.Context) (int64, error) {
	mem.rw.RLock()
	defer mem.rw.RUnlock()
	return int64(len(mem.table)), nil
}

func (mem *Memory) Close(ctx context.Context) error {
	mem.rw.Lock()
	defer mem.rw.Unlock()
	mem.table = map[int]Record{}
	return nil
}
