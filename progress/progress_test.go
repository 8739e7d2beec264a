package progress

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBarCountsAdvances(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf, 100, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bar.Advance(1)
		}()
	}
	wg.Wait()
	bar.Finish()

	assert.Equal(t, 100, bar.Count())
	assert.Contains(t, buf.String(), "100/100")
	assert.Contains(t, buf.String(), "100%")
	assert.Greater(t, bar.Elapsed(), time.Duration(0))
}

func TestBarFinishIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf, 10, 1000)
	bar.Advance(10)
	bar.Finish()
	elapsed := bar.Elapsed()
	out := buf.String()

	bar.Finish()
	bar.Advance(5)

	assert.Equal(t, out, buf.String())
	assert.Equal(t, 10, bar.Count())
	assert.Equal(t, elapsed, bar.Elapsed())
}

func TestBarIgnoresNonPositiveAdvance(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf, 10, 1000)
	bar.Advance(0)
	bar.Advance(-3)
	assert.Equal(t, 0, bar.Count())
}

func TestBarRenderThrottle(t *testing.T) {
	var buf bytes.Buffer
	// 1 render per second allowed, so the burst token covers the first
	// advance and the rest go unrendered
	bar := NewBar(&buf, 1000, 1)
	for i := 0; i < 1000; i++ {
		bar.Advance(1)
	}
	writes := bytes.Count(buf.Bytes(), []byte("\r"))
	assert.LessOrEqual(t, writes, 2)

	bar.Finish()
	assert.Contains(t, buf.String(), fmt.Sprintf("%d/%d", 1000, 1000))
}

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rep := NewLogReporter(zap.New(core), 5, time.Nanosecond)

	for i := 0; i < 5; i++ {
		rep.Advance(1)
	}
	rep.Finish()
	rep.Finish()

	assert.Equal(t, 5, rep.Count())
	finished := logs.FilterMessage("batch finished").All()
	require.Len(t, finished, 1)

	// observed counts never decrease
	last := int64(-1)
	for _, entry := range logs.All() {
		m := entry.ContextMap()
		count, ok := m["completed"].(int64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, count, last)
		last = count
	}
	assert.EqualValues(t, 5, last)
}

func TestNopTracksCount(t *testing.T) {
	rep := NewNop()
	rep.Advance(3)
	rep.Advance(2)
	rep.Finish()
	assert.Equal(t, 5, rep.Count())
	assert.Greater(t, rep.Elapsed(), time.Duration(0))
}
