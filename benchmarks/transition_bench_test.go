// Package benchmarks provides performance benchmarks for the engine step loop.
package benchmarks

import (
	"fmt"
	"testing"

	"github.com/comalice/tapemachine"
	"github.com/comalice/tapemachine/internal/tables"
)

func BenchmarkAddition(b *testing.B) {
	table := tables.Addition()
	tape := tables.SampleTape()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := tapemachine.Run(table, tape, 0, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSweep(b *testing.B) {
	for _, n := range []int{100, 10_000, 1_000_000} {
		b.Run(fmt.Sprintf("cells=%d", n), func(b *testing.B) {
			table := GenSweepTable(8)
			tape := GenTape(n)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				res, err := tapemachine.Execute(table, tape, 0, 0, tapemachine.WithMaxSteps(0))
				if err != nil {
					b.Fatal(err)
				}
				if res.Status != tapemachine.HaltedOffTape {
					b.Fatalf("unexpected status %s", res.Status)
				}
			}
			b.ReportMetric(float64(n)*float64(b.N)/b.Elapsed().Seconds(), "steps/sec")
		})
	}
}

func BenchmarkStepCeiling(b *testing.B) {
	table := GenFlipTable()
	tape := tapemachine.Tape{0}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := tapemachine.Execute(table, tape, 0, 0, tapemachine.WithMaxSteps(100_000))
		if err == nil {
			b.Fatal("expected step ceiling")
		}
	}
}

func BenchmarkSweepWithObserver(b *testing.B) {
	table := GenSweepTable(8)
	tape := GenTape(10_000)
	changes := 0
	observe := tapemachine.WithObserver(func(tapemachine.StateChange) { changes++ })
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tapemachine.Execute(table, tape, 0, 0, observe); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(changes)/float64(b.N), "changes/run")
}
