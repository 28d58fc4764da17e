// Package main benchmarks the perfwatch storage backends.
// It writes a synthetic history of metric records into each backend, then times
// the write path and the read paths the report engine relies on, running each
// phase multiple times, treating the first run as cold and averaging the rest as warm,
// and generating CSV output for performance analysis and documentation.
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory used for the file and sqlite stores (defaults to a temp dir)
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/huangsam/perfwatch/internal/iostore"
	"github.com/huangsam/perfwatch/schema"
	"go.uber.org/zap"
)

// BenchmarkResult holds the result of one backend phase (cold run and average of warm runs).
type BenchmarkResult struct {
	Backend  string
	Phase    string
	Records  int
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir  string
	Project  string
	Commits  int
	PerRound int
	Runs     int
	Backends []schema.StorageBackend
}

func main() {
	if len(os.Args) > 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	workDir := ""
	if len(os.Args) == 2 {
		workDir = os.Args[1]
	} else {
		dir, err := os.MkdirTemp("", "perfwatch-benchmark-*")
		if err != nil {
			fmt.Printf("Failed to create work dir: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = os.RemoveAll(dir) }()
		workDir = dir
	}

	config := BenchmarkConfig{
		WorkDir:  workDir,
		Project:  "benchmark",
		Commits:  50,
		PerRound: 40,
		Runs:     4,
		Backends: []schema.StorageBackend{schema.MemoryBackend, schema.FileBackend, schema.SQLiteBackend},
	}

	results, err := runBenchmarks(context.Background(), config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// syntheticHistory builds one round of records per commit, spaced an hour apart.
func syntheticHistory(config BenchmarkConfig, run int) ([][]schema.MetricRecord, error) {
	types := []schema.MetricType{schema.BuildDuration, schema.TestDuration, schema.ExecutionTime, schema.Allocations}
	start := time.Now().UTC().Add(-time.Duration(config.Commits) * time.Hour)

	rounds := make([][]schema.MetricRecord, 0, config.Commits)
	for c := range config.Commits {
		commit := fmt.Sprintf("%040d", run*config.Commits+c)
		ts := start.Add(time.Duration(c) * time.Hour)
		round := make([]schema.MetricRecord, 0, config.PerRound)
		for i := range config.PerRound {
			metricType := types[i%len(types)]
			r, err := schema.NewMetricRecord(schema.BenchmarkSource, metricType, float64(100+i+c%7), config.Project,
				schema.WithTimestamp(ts.Add(time.Duration(i)*time.Millisecond)),
				schema.WithProvenance(commit, "main"),
				schema.WithMetadata(map[string]string{"benchmark": fmt.Sprintf("Benchmark%d", i)}))
			if err != nil {
				return nil, err
			}
			round = append(round, r)
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

// openStore opens a fresh store for one run of a backend.
func openStore(config BenchmarkConfig, backend schema.StorageBackend, run int) (contract.MetricStore, error) {
	storage := contract.StorageConfig{Backend: backend}
	switch backend {
	case schema.FileBackend:
		storage.Path = filepath.Join(config.WorkDir, fmt.Sprintf("file-%d", run))
	case schema.SQLiteBackend:
		storage.Path = filepath.Join(config.WorkDir, fmt.Sprintf("sqlite-%d.db", run))
	}
	return iostore.NewStore(storage, zap.NewNop())
}

// runBenchmarks executes all phases across configured backends.
func runBenchmarks(ctx context.Context, config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d backends, %d commits x %d records, %d runs\n",
		len(config.Backends), config.Commits, config.PerRound, config.Runs)

	for _, backend := range config.Backends {
		fmt.Printf("Benchmarking %s\n", backend)
		timings := map[string][]float64{}

		for run := range config.Runs {
			phases, err := runOnce(ctx, config, backend, run)
			if err != nil {
				return nil, fmt.Errorf("%s run %d: %w", backend, run, err)
			}
			for phase, secs := range phases {
				timings[phase] = append(timings[phase], secs)
			}
		}

		for _, phase := range []string{"store", "window", "commit", "latest"} {
			results = append(results, summarize(string(backend), phase, config.Commits*config.PerRound, timings[phase]))
		}
	}
	return results, nil
}

// runOnce fills a new store and times each access path once.
func runOnce(ctx context.Context, config BenchmarkConfig, backend schema.StorageBackend, run int) (map[string]float64, error) {
	store, err := openStore(config, backend, run)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close %s store: %v\n", backend, closeErr)
		}
	}()

	rounds, err := syntheticHistory(config, run)
	if err != nil {
		return nil, err
	}

	phases := make(map[string]float64, 4)

	start := time.Now()
	for _, round := range rounds {
		if err := store.StoreMetrics(ctx, round); err != nil {
			return nil, err
		}
	}
	phases["store"] = time.Since(start).Seconds()

	start = time.Now()
	if _, err := store.RetrieveMetrics(ctx, config.Project, schema.AllTime()); err != nil {
		return nil, err
	}
	phases["window"] = time.Since(start).Seconds()

	start = time.Now()
	if _, err := store.RetrieveMetricsForCommit(ctx, rounds[0][0].CommitHash, config.Project); err != nil {
		return nil, err
	}
	phases["commit"] = time.Since(start).Seconds()

	start = time.Now()
	if _, err := store.RetrieveLatestMetrics(ctx, config.Project, contract.DefaultResultLimit); err != nil {
		return nil, err
	}
	phases["latest"] = time.Since(start).Seconds()

	return phases, nil
}

// summarize splits phase timings into the cold run and the warm average.
func summarize(backend, phase string, records int, times []float64) BenchmarkResult {
	result := BenchmarkResult{Backend: backend, Phase: phase, Records: records, ColdTime: "N/A", WarmTime: "N/A"}
	if len(times) == 0 {
		return result
	}
	result.ColdTime = fmt.Sprintf("%.4fs", times[0])
	if warm := times[1:]; len(warm) > 0 {
		var sum float64
		for _, t := range warm {
			sum += t
		}
		result.WarmTime = fmt.Sprintf("%.4fs", sum/float64(len(warm)))
	}
	fmt.Printf("  %-7s cold: %s, warm average: %s\n", phase, result.ColdTime, result.WarmTime)
	return result
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("perfwatch_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"backend", "phase", "records", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		row := []string{result.Backend, result.Phase, fmt.Sprint(result.Records), result.ColdTime, result.WarmTime}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printPhaseSummary(results, "store", "Store:")
	printPhaseSummary(results, "window", "Window query:")
	printPhaseSummary(results, "commit", "Commit query:")
	printPhaseSummary(results, "latest", "Latest query:")
}

// printPhaseSummary displays results for a specific phase
func printPhaseSummary(results []BenchmarkResult, phase, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Phase == phase {
			fmt.Printf("  %-8s: Cold: %s, Warm: %s\n", result.Backend, result.ColdTime, result.WarmTime)
		}
	}
}
