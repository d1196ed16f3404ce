// Package benchmarks provides memory footprint benchmarks.
package benchmarks

import (
	"fmt"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/comalice/tapemachine"
	"github.com/comalice/tapemachine/internal/core"
)

func BenchmarkExecuteAllocs(b *testing.B) {
	for _, n := range []int{10, 1000, 100_000} {
		b.Run(fmt.Sprintf("cells=%d", n), func(b *testing.B) {
			table := GenSweepTable(2)
			tape := GenTape(n)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := tapemachine.Execute(table, tape, 0, 0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRecordYAMLDecode(b *testing.B) {
	for _, n := range []int{100, 10_000} {
		b.Run(fmt.Sprintf("cells=%d", n), func(b *testing.B) {
			data := GenRecordYAML(n)
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				var rec core.Record
				if err := yaml.Unmarshal(data, &rec); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRecordVerify(b *testing.B) {
	r := core.NewRunner()
	var rec core.Record
	if err := yaml.Unmarshal(GenRecordYAML(1000), &rec); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := r.Verify(rec); err != nil {
			b.Fatal(err)
		}
	}
}
