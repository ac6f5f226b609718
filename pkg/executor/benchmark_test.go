package executor

import (
	"fmt"
	"sync"
	"testing"

	"github.com/jzx17/gospmc/internal/baseline"
	"github.com/jzx17/gospmc/pkg/types"
	"github.com/rs/zerolog"
)

// piSlice computes one slice of the Leibniz series for pi
func piSlice(slice, iterations int) float64 {
	acc := 0.0
	for i := slice * iterations; i < (slice+1)*iterations; i++ {
		acc += 4.0 * float64(1-(i%2)*2) / float64(2*i+1)
	}
	return acc
}

type submitter interface {
	Submit(task types.Task) error
}

func runPi(b *testing.B, exec submitter) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var total float64

	wg.Add(b.N)
	for i := 0; i < b.N; i++ {
		slice := i
		if err := exec.Submit(func() {
			defer wg.Done()
			v := piSlice(slice, 100)
			mu.Lock()
			total += v
			mu.Unlock()
		}); err != nil {
			b.Fatal(err)
		}
	}
	wg.Wait()
}

func BenchmarkPi(b *testing.B) {
	for _, threads := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("spmc/threads=%d", threads), func(b *testing.B) {
			e, err := NewStarted(threads, 1024, WithLogger(zerolog.Nop()))
			if err != nil {
				b.Fatal(err)
			}
			defer e.Shutdown()

			b.ResetTimer()
			runPi(b, e)
		})

		b.Run(fmt.Sprintf("locked/threads=%d", threads), func(b *testing.B) {
			e, err := baseline.NewLockedExecutor(threads)
			if err != nil {
				b.Fatal(err)
			}
			defer e.Shutdown()

			b.ResetTimer()
			runPi(b, e)
		})
	}
}

func BenchmarkSubmit(b *testing.B) {
	e, err := NewStarted(4, 4096, WithLogger(zerolog.Nop()))
	if err != nil {
		b.Fatal(err)
	}
	defer e.Shutdown()

	task := func() {}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := e.Submit(task); err != nil {
			b.Fatal(err)
		}
	}
}
