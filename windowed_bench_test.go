package windowed

import (
	"fmt"
	"testing"
)

// BenchmarkLocate benchmarks offset lookups with different collection sizes.
func BenchmarkLocate(b *testing.B) {
	sizes := []int{100, 1000, 10000, 100000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Items_%d", size), func(b *testing.B) {
			idx := NewExtentIndex(uniformExtents(size, 50))
			total := idx.Total()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				idx.Locate(float64(i%1000) / 1000 * total)
			}
		})
	}
}

// BenchmarkUpdate benchmarks single-item extent updates.
func BenchmarkUpdate(b *testing.B) {
	sizes := []int{1000, 100000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Items_%d", size), func(b *testing.B) {
			idx := NewExtentIndex(uniformExtents(size, 50))

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = idx.Update(i%size, float64(40+i%20))
			}
		})
	}
}

// BenchmarkComputeWindow benchmarks a full window calculation per frame.
func BenchmarkComputeWindow(b *testing.B) {
	sizes := []int{100, 1000, 10000, 100000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Items_%d", size), func(b *testing.B) {
			idx := NewExtentIndex(uniformExtents(size, 50))
			total := idx.Total()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				scroll := float64(i%1000) / 1000 * total
				_ = computeWindow(idx, scroll, 800, 5)
			}
		})
	}
}

// BenchmarkReconcile benchmarks pool reconciliation under a scrolling window.
func BenchmarkReconcile(b *testing.B) {
	idx := NewExtentIndex(uniformExtents(10000, 50))
	p := newSlotPool(nil, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scroll := float64((i % 100) * 50)
		p.reconcile(computeWindow(idx, scroll, 800, 5))
	}
}
