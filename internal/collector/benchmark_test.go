package collector

import (
	"testing"

	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleBenchOutput = `goos: linux
goarch: amd64
pkg: example.com/demo
cpu: Intel(R) Xeon(R) CPU
BenchmarkEncode-8   	 1000000	      1500 ns/op	     256 B/op	       4 allocs/op
BenchmarkDecode-8   	  500000	      3000 ns/op	      12.5 MB/s
PASS
ok  	example.com/demo	3.012s
`

func TestParseBenchmarks(t *testing.T) {
	records, err := parseBenchmarks([]byte(sampleBenchOutput), "demo", schema.WithProvenance("abc", "main"), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, records, 4)

	encode := records[:3]
	assert.Equal(t, schema.ExecutionTime, encode[0].Type)
	assert.InDelta(t, 1.5e-6, encode[0].Value, 1e-12)
	assert.Equal(t, schema.UnitSeconds, encode[0].Unit)
	assert.Equal(t, "BenchmarkEncode-8", encode[0].FunctionName)
	assert.Equal(t, "example.com/demo", encode[0].Metadata["pkg"])
	assert.Equal(t, "1000000", encode[0].Metadata["iters"])

	assert.Equal(t, schema.MemoryUsage, encode[1].Type)
	assert.InDelta(t, 256.0, encode[1].Value, 1e-9)
	assert.Equal(t, schema.Allocations, encode[2].Type)
	assert.InDelta(t, 4.0, encode[2].Value, 1e-9)

	// Throughput is skipped, only sec/op is kept for Decode
	assert.Equal(t, "BenchmarkDecode-8", records[3].FunctionName)
	assert.Equal(t, schema.ExecutionTime, records[3].Type)
	assert.Equal(t, "abc", records[3].CommitHash)
}

func TestParseBenchmarksMalformed(t *testing.T) {
	_, err := parseBenchmarks([]byte("BenchmarkBroken-8 notanumber\n"), "demo", schema.WithProvenance("", ""), zap.NewNop())
	assert.ErrorIs(t, err, schema.ErrDataParsingFailed)
}

func TestParseBenchmarksEmpty(t *testing.T) {
	records, err := parseBenchmarks([]byte("PASS\nok  \texample.com/demo\t0.01s\n"), "demo", schema.WithProvenance("", ""), zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, records)
}
