package utils

import (
	"image"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. Tests that find the default too
// aggressive may lower it.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// Span is the half-open range of work items [From, To).
type Span struct {
	From, To int
}

// Len is the number of items in the span.
func (s Span) Len() int {
	return s.To - s.From
}

// SplitSpans cuts [0, total) into at most parts contiguous, non-empty spans whose lengths differ
// by at most one.
func SplitSpans(total, parts int) []Span {
	if total <= 0 {
		return nil
	}
	if parts > total {
		parts = total
	}
	if parts < 1 {
		parts = 1
	}
	spans := make([]Span, 0, parts)
	base, extra := total/parts, total%parts
	from := 0
	for i := 0; i < parts; i++ {
		size := base
		if i < extra {
			size++
		}
		spans = append(spans, Span{From: from, To: from + size})
		from += size
	}
	return spans
}

// runSpans calls work once per span, each on its own goroutine, and waits for all of them.
func runSpans(spans []Span, work func(Span)) {
	var wg sync.WaitGroup
	wg.Add(len(spans))
	for _, span := range spans {
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			work(span)
		})
	}
	wg.Wait()
}

// ParallelForEach calls f for every i in [0, total), spreading contiguous runs of items over
// ParallelFactor goroutines. f must be safe to call concurrently for distinct i.
func ParallelForEach(total int, f func(i int)) {
	runSpans(SplitSpans(total, ParallelFactor), func(span Span) {
		for i := span.From; i < span.To; i++ {
			f(i)
		}
	})
}

// ParallelForEachPixel calls f for each [x, y] position of an image of the given size. The image
// is cut into horizontal bands of rows and each band is walked on its own goroutine.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	if size.X <= 0 {
		return
	}
	runSpans(SplitSpans(size.Y, ParallelFactor), func(band Span) {
		for y := band.From; y < band.To; y++ {
			for x := 0; x < size.X; x++ {
				f(x, y)
			}
		}
	})
}
