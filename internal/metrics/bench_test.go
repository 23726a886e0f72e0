package metrics

import (
	"io"
	"testing"
)

// BenchmarkCollector_BytesSent measures byte-counter overhead on the
// send path.
func BenchmarkCollector_BytesSent(b *testing.B) {
	c := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.BytesSent(4096)
	}
}

// BenchmarkCollector_Snapshot measures the cost of taking a snapshot.
func BenchmarkCollector_Snapshot(b *testing.B) {
	c := New()
	c.Connected()
	c.BytesSent(1024)
	c.RecordError("test")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Snapshot()
	}
}

// BenchmarkCollector_WritePrometheus measures text exposition.
func BenchmarkCollector_WritePrometheus(b *testing.B) {
	c := New()
	c.Connected()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.WritePrometheus(io.Discard)
	}
}

// BenchmarkNilCollector verifies nil-safe no-ops have zero overhead.
func BenchmarkNilCollector(b *testing.B) {
	var c *Collector
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Connected()
		c.BytesSent(32768)
		c.RecordError("test")
	}
}
