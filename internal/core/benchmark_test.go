package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/adelakul/retail-pulse/internal/catalog"
)

// ============================================================================
// Fixtures
// ============================================================================

// benchCSV builds a sales export with n data rows; every tenth row carries
// an unparseable quantity.
func benchCSV(n int) []byte {
	var buf bytes.Buffer
	buf.WriteString("\ufeffOrder ID,Item Description,Total Price,Order Date,Qty Sold,Region,Cust Type\n")
	for i := 0; i < n; i++ {
		qty := fmt.Sprint(i%7 + 1)
		if i%10 == 9 {
			qty = "n/a"
		}
		fmt.Fprintf(&buf, "ORD-%05d,Widget %d,\"$1,%03d.50\",03/%02d/2024,%s,West,Retail\n", i, i%50, i%1000, i%28+1, qty)
	}
	return buf.Bytes()
}

// ============================================================================
// Table Reader Benchmarks
// ============================================================================

// BenchmarkReadTable benchmarks CSV parsing with BOM stripping.
func BenchmarkReadTable(b *testing.B) {
	data := benchCSV(1000)
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ReadTable(bytes.NewReader(data), "bench.csv", ReadOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReadTable_Latin1 benchmarks the legacy-encoding decode path.
func BenchmarkReadTable_Latin1(b *testing.B) {
	data := bytes.ReplaceAll(benchCSV(1000), []byte("Widget"), []byte("Caf\xe9"))
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ReadTable(bytes.NewReader(data), "bench.csv", ReadOptions{Encoding: "latin1"}); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

// BenchmarkServiceResolve benchmarks header resolution alone.
func BenchmarkServiceResolve(b *testing.B) {
	svc := NewService(catalog.Default(), nil, Options{})
	columns := []string{"Order ID", "Item Description", "Total Price", "Order Date", "Qty Sold", "Region", "Cust Type"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Resolve(columns, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkServiceRun benchmarks a dry run: resolve plus coercion of every
// row.
func BenchmarkServiceRun(b *testing.B) {
	t, err := ReadTable(bytes.NewReader(benchCSV(1000)), "bench.csv", ReadOptions{})
	if err != nil {
		b.Fatal(err)
	}
	svc := NewService(catalog.Default(), nil, Options{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Run(context.Background(), t, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkServiceRunParallel benchmarks concurrent runs sharing one
// catalog.
func BenchmarkServiceRunParallel(b *testing.B) {
	t, err := ReadTable(bytes.NewReader(benchCSV(200)), "bench.csv", ReadOptions{})
	if err != nil {
		b.Fatal(err)
	}
	svc := NewService(catalog.Default(), nil, Options{})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.Run(context.Background(), t, nil); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// ============================================================================
// Error Mapping Benchmarks
// ============================================================================

// BenchmarkMapError benchmarks the pattern scan, best and worst case.
func BenchmarkMapError(b *testing.B) {
	errs := []error{
		errors.New("catalog invalid: no fields declared"),
		errors.New(strings.Repeat("x", 200)),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, err := range errs {
			MapError(err)
		}
	}
}
