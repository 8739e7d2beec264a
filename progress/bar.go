package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const barCells = 32

// Bar renders an in-place text bar to a stream. Intermediate renders go
// through a rate limiter so a large batch does not turn every completion
// into a terminal write; Finish always renders the final state.
type Bar struct {
	mu         sync.Mutex
	w          io.Writer
	total      int
	count      int
	start      time.Time
	finishedAt time.Time
	limiter    *rate.Limiter
}

// NewBar writes to w, expecting total completions. refreshPerSecond bounds
// intermediate renders; values below 1 fall back to 10.
func NewBar(w io.Writer, total int, refreshPerSecond float64) *Bar {
	if refreshPerSecond < 1 {
		refreshPerSecond = 10
	}
	return &Bar{
		w:       w,
		total:   total,
		start:   time.Now(),
		limiter: rate.NewLimiter(rate.Limit(refreshPerSecond), 1),
	}
}

func (bar *Bar) Advance(n int) {
	if n <= 0 {
		return
	}
	bar.mu.Lock()
	defer bar.mu.Unlock()
	if !bar.finishedAt.IsZero() {
		return
	}
	bar.count += n
	if bar.limiter.Allow() {
		bar.render()
	}
}

func (bar *Bar) Finish() {
	bar.mu.Lock()
	defer bar.mu.Unlock()
	if !bar.finishedAt.IsZero() {
		return
	}
	bar.finishedAt = time.Now()
	bar.render()
	fmt.Fprintln(bar.w)
}

func (bar *Bar) Count() int {
	bar.mu.Lock()
	defer bar.mu.Unlock()
	return bar.count
}

func (bar *Bar) Elapsed() time.Duration {
	bar.mu.Lock()
	defer bar.mu.Unlock()
	return bar.elapsed()
}

func (bar *Bar) elapsed() time.Duration {
	if !bar.finishedAt.IsZero() {
		return bar.finishedAt.Sub(bar.start)
	}
	return time.Since(bar.start)
}

// render holds bar.mu.
func (bar *Bar) render() {
	done := bar.count
	if bar.total > 0 && done > bar.total {
		done = bar.total
	}
	var filled int
	var pct float64
	if bar.total > 0 {
		filled = done * barCells / bar.total
		pct = float64(done) * 100 / float64(bar.total)
	}
	fmt.Fprintf(bar.w, "\r[%s%s] %d/%d %3.0f%% %s",
		strings.Repeat("#", filled),
		strings.Repeat(" ", barCells-filled),
		bar.count, bar.total, pct,
		bar.elapsed().Round(time.Millisecond))
}
