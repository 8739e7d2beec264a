// Package mongodb archives circuit records in a MongoDB collection, one
// document per task index.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/amartinfer/qcbatch/circuit"
	"github.com/amartinfer/qcbatch/store"
)

type Archive struct {
	client *mongo.Client
	col    *mongo.Collection
	logger *zap.Logger
}

type Option struct {
	Database   string
	Collection string
	Logger     *zap.Logger
}

// New connects, pings, and ensures the unique task-index index.
func New(ctx context.Context, uri string, opt Option) (*Archive, error) {
	if opt.Database == "" {
		opt.Database = "qcbatch"
	}
	if opt.Collection == "" {
		opt.Collection = "circuits"
	}
	if opt.Logger == nil {
		opt.Logger = zap.L()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}

	col := client.Database(opt.Database).Collection(opt.Collection)
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "task_index", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ensure task_index index")
	}

	return &Archive{
		client: client,
		col:    col,
		logger: opt.Logger,
	}, nil
}

type instructionDoc struct {
	Kind   int32     `bson:"kind"`
	Lanes  []int     `bson:"lanes"`
	Params []float64 `bson:"params,omitempty"`
}

type recordDoc struct {
	Index     int64            `bson:"task_index"`
	Seed      int64            `bson:"seed"`
	Width     int32            `bson:"width"`
	Full      []instructionDoc `bson:"full"`
	Reduced   []instructionDoc `bson:"reduced"`
	CreatedAt int64            `bson:"created_at"`
}

func encodeInstructions(c *circuit.Circuit) []instructionDoc {
	ins := c.Instructions()
	docs := make([]instructionDoc, 0, len(ins))
	for _, in := range ins {
		docs = append(docs, instructionDoc{
			Kind:   int32(in.Kind),
			Lanes:  in.Lanes,
			Params: in.Params,
		})
	}
	return docs
}

func decodeInstructions(width int, docs []instructionDoc) (*circuit.Circuit, error) {
	ins := make([]circuit.Instruction, 0, len(docs))
	for _, d := range docs {
		ins = append(ins, circuit.Instruction{
			Kind:   circuit.Kind(d.Kind),
			Lanes:  d.Lanes,
			Params: d.Params,
		})
	}
	return circuit.Restore(width, ins)
}

func (archive *Archive) Save(ctx context.Context, rec store.Record) error {
	if rec.Full == nil || rec.Reduced == nil || rec.Index < 0 {
		return errors.Wrapf(store.ErrBadRecord, "index %d", rec.Index)
	}
	doc := recordDoc{
		Index:     int64(rec.Index),
		Seed:      rec.Seed,
		Width:     int32(rec.Full.Width()),
		Full:      encodeInstructions(rec.Full),
		Reduced:   encodeInstructions(rec.Reduced),
		CreatedAt: rec.CreatedAt.UnixNano(),
	}
	_, err := archive.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(store.ErrDuplicate, "index %d", rec.Index)
	}
	if err != nil {
		return errors.Wrapf(err, "insert record %d", rec.Index)
	}
	return nil
}

func (archive *Archive) Load(ctx context.Context, index int) (store.Record, error) {
	var doc recordDoc
	err := archive.col.FindOne(ctx, bson.D{{Key: "task_index", Value: int64(index)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Record{}, errors.Wrapf(store.ErrNotFound, "index %d", index)
	}
	if err != nil {
		return store.Record{}, errors.Wrapf(err, "find record %d", index)
	}

	full, err := decodeInstructions(int(doc.Width), doc.Full)
	if err != nil {
		return store.Record{}, errors.Wrapf(err, "decode full circuit %d", index)
	}
	reduced, err := decodeInstructions(int(doc.Width), doc.Reduced)
	if err != nil {
		return store.Record{}, errors.Wrapf(err, "decode reduced circuit %d", index)
	}

	return store.Record{
		Index:     int(doc.Index),
		Seed:      doc.Seed,
		Full:      full,
		Reduced:   reduced,
		CreatedAt: timeFromUnixNano(doc.CreatedAt),
	}, nil
}

func (archive *Archive) Count(ctx context.Context) (int64, error) {
	n, err := archive.col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, errors.Wrap(err, "count records")
	}
	return n, nil
}

func (archive *Archive) Close(ctx context.Context) error {
	return archive.client.Disconnect(ctx)
}

func timeFromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns)
}

var _ store.Archive = (*Archive)(nil)
