package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amartinfer/qcbatch/generate"
	"github.com/amartinfer/qcbatch/store"
)

// needs a running mongod; set QCBATCH_MONGO_URI (e.g. mongodb://localhost:27017)
func testArchive(t *testing.T) *Archive {
	t.Helper()
	uri := os.Getenv("QCBATCH_MONGO_URI")
	if uri == "" {
		t.Skip("QCBATCH_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	archive, err := New(ctx, uri, Option{
		Database:   "qcbatch_test",
		Collection: "circuits_" + t.Name(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = archive.col.Drop(ctx)
		_ = archive.Close(ctx)
	})
	return archive
}

func TestArchiveRoundTrip(t *testing.T) {
	archive := testArchive(t)
	ctx := context.Background()

	seeds := []int64{7, 8, 9}
	full, reduced, err := generate.Generate(1, seeds, 4, 3)
	require.NoError(t, err)

	rec := store.Record{
		Index:     1,
		Seed:      seeds[1],
		Full:      full,
		Reduced:   reduced,
		CreatedAt: time.Now(),
	}
	require.NoError(t, archive.Save(ctx, rec))

	got, err := archive.Load(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.Full.Equal(full))
	assert.True(t, got.Reduced.Equal(reduced))
	assert.True(t, got.Full.Measured())
	assert.False(t, got.Reduced.Measured())
	assert.Equal(t, seeds[1], got.Seed)

	n, err := archive.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestArchiveDuplicateIndex(t *testing.T) {
	archive := testArchive(t)
	ctx := context.Background()

	seeds := []int64{7}
	full, reduced, err := generate.Generate(0, seeds, 2, 1)
	require.NoError(t, err)
	rec := store.Record{Index: 0, Seed: seeds[0], Full: full, Reduced: reduced, CreatedAt: time.Now()}

	require.NoError(t, archive.Save(ctx, rec))
	assert.True(t, errors.Is(archive.Save(ctx, rec), store.ErrDuplicate))
}

func TestArchiveNotFound(t *testing.T) {
	archive := testArchive(t)
	_, err := archive.Load(context.Background(), 404)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
