// Package main runs the execution planners over generated instances with
// simulated robots and collects run metrics.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/elektrokombinacija/mapf-exec/internal/config"
	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/loader"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
	"github.com/elektrokombinacija/mapf-exec/internal/session"
)

// BenchmarkResult stores results from a single planner run.
type BenchmarkResult struct {
	Timestamp  string
	CommitHash string
	GoVersion  string
	OS         string
	Arch       string
	Instance   string
	NumAgents  int
	NumNodes   int
	Planner    string
	RuntimeMs  float64
	Success    bool
	Ticks      int
	Moves      int
	Swaps      int
	Rotations  int
	Waits      int
	Reassigned int
	Error      string
}

// PlannerMetrics holds per-planner aggregated metrics.
type PlannerMetrics struct {
	Name           string
	TotalRuns      int
	Successes      int
	TotalRuntimeMs float64
	TotalTicks     int
	TotalMoves     int
	TotalReassign  int
}

var planners = []string{"tswap", "pibt"}

func getGitCommit() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

// benchConfig runs ticks back to back with near-instant robots.
func benchConfig(maxTicks int) config.Config {
	cfg := config.Default()
	cfg.Tick = time.Millisecond
	cfg.InitDelay = 0
	cfg.MaxTicks = maxTicks
	cfg.Tolerance = 1
	cfg.Sim.Speed = 1e6
	cfg.Sim.TimeStep = time.Millisecond
	return cfg
}

// runPlanner executes one simulated run. Goal-driven runs succeed when
// every agent reaches its goal; lifelong runs succeed when they complete
// maxTicks ticks.
func runPlanner(graphPath, problemPath, name string, maxTicks int, timeout time.Duration) *BenchmarkResult {
	result := &BenchmarkResult{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		CommitHash: getGitCommit(),
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Instance:   strings.TrimSuffix(filepath.Base(graphPath), ".graph.yaml"),
		Planner:    name,
	}
	fail := func(err error) *BenchmarkResult {
		result.Error = err.Error()
		return result
	}

	variant, err := core.ParseVariant(name)
	if err != nil {
		return fail(err)
	}
	g, err := loader.LoadGraph(graphPath)
	if err != nil {
		return fail(err)
	}
	agents, err := loader.LoadProblem(problemPath)
	if err != nil {
		return fail(err)
	}
	result.NumAgents = len(agents)
	result.NumNodes = g.Len()

	cfg := benchConfig(0)
	if variant == core.VariantLifelong {
		cfg = benchConfig(maxTicks)
	}

	ctx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), logging.NewNop()), timeout)
	defer cancel()

	s, err := session.Open(ctx, session.Options{
		Config:   cfg,
		Variant:  variant,
		Mode:     session.ModeSim,
		Instance: &core.Instance{Graph: g, Agents: agents},
		Assign:   variant == core.VariantGoal,
	})
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	startTime := time.Now()
	sum, err := s.Run(ctx)
	result.RuntimeMs = float64(time.Since(startTime).Microseconds()) / 1000.0
	result.Ticks = sum.Ticks
	result.Moves = sum.Moves
	result.Swaps = sum.Swaps
	result.Rotations = sum.Rotations
	result.Waits = sum.Waits
	result.Reassigned = sum.Reassigned
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %v", timeout)
		}
		return fail(err)
	}
	result.Success = sum.Done || (variant == core.VariantLifelong && sum.Ticks == maxTicks)
	return result
}

func writeCSV(results []*BenchmarkResult, w io.Writer) error {
	writer := csv.NewWriter(w)

	header := []string{
		"timestamp", "commit_hash", "go_version", "os", "arch",
		"instance", "num_agents", "num_nodes", "planner",
		"runtime_ms", "success", "ticks", "moves",
		"swaps", "rotations", "waits", "reassigned", "error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			r.Timestamp, r.CommitHash, r.GoVersion, r.OS, r.Arch,
			r.Instance, strconv.Itoa(r.NumAgents), strconv.Itoa(r.NumNodes), r.Planner,
			fmt.Sprintf("%.3f", r.RuntimeMs), strconv.FormatBool(r.Success),
			strconv.Itoa(r.Ticks), strconv.Itoa(r.Moves),
			strconv.Itoa(r.Swaps), strconv.Itoa(r.Rotations), strconv.Itoa(r.Waits),
			strconv.Itoa(r.Reassigned), r.Error,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func printSummary(w io.Writer, results []*BenchmarkResult) {
	metrics := make(map[string]*PlannerMetrics)
	for _, r := range results {
		m, ok := metrics[r.Planner]
		if !ok {
			m = &PlannerMetrics{Name: r.Planner}
			metrics[r.Planner] = m
		}
		m.TotalRuns++
		if r.Success {
			m.Successes++
			m.TotalRuntimeMs += r.RuntimeMs
			m.TotalTicks += r.Ticks
			m.TotalMoves += r.Moves
			m.TotalReassign += r.Reassigned
		}
	}

	fmt.Fprintln(w, "\n=== BENCHMARK SUMMARY ===")
	fmt.Fprintf(w, "%-10s %8s %8s %12s %10s %10s %10s\n",
		"Planner", "Runs", "Success", "Avg Time(ms)", "AvgTicks", "AvgMoves", "Reassigned")
	fmt.Fprintln(w, strings.Repeat("-", 74))

	var names []string
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := metrics[name]
		avgTime, avgTicks, avgMoves := 0.0, 0.0, 0.0
		if m.Successes > 0 {
			avgTime = m.TotalRuntimeMs / float64(m.Successes)
			avgTicks = float64(m.TotalTicks) / float64(m.Successes)
			avgMoves = float64(m.TotalMoves) / float64(m.Successes)
		}
		fmt.Fprintf(w, "%-10s %8d %8d %12.2f %10.1f %10.1f %10d\n",
			m.Name, m.TotalRuns, m.Successes, avgTime, avgTicks, avgMoves, m.TotalReassign)
	}
}

func main() {
	inputDir := flag.String("input", "testdata", "Directory containing generated instances")
	outputFile := flag.String("output", "evidence/benchmark_results.csv", "Output CSV file")
	timeout := flag.Duration("timeout", 2*time.Minute, "Timeout per planner run")
	plannerFilter := flag.String("planner", "", "Run only specific planners (comma-separated)")
	maxTicks := flag.Int("ticks", 500, "Ticks per lifelong (pibt) run")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*outputFile), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	graphs, err := filepath.Glob(filepath.Join(*inputDir, "*.graph.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding instance files: %v\n", err)
		os.Exit(1)
	}
	if len(graphs) == 0 {
		fmt.Fprintf(os.Stderr, "No instance files found in %s\n", *inputDir)
		fmt.Fprintf(os.Stderr, "Run gen_instances first: go run ./tools/gen_instances -scaling -output testdata\n")
		os.Exit(1)
	}

	active := planners
	if *plannerFilter != "" {
		active = strings.Split(*plannerFilter, ",")
	}

	var results []*BenchmarkResult
	totalRuns := len(graphs) * len(active)
	currentRun := 0

	fmt.Printf("Running benchmarks: %d instances x %d planners = %d runs\n",
		len(graphs), len(active), totalRuns)
	fmt.Printf("Timeout per run: %v\n\n", *timeout)

	for _, graph := range graphs {
		problem := strings.TrimSuffix(graph, ".graph.yaml") + ".problem.yaml"
		for _, name := range active {
			currentRun++
			if *verbose {
				fmt.Printf("[%d/%d] %s / %s ... ", currentRun, totalRuns, filepath.Base(graph), name)
			} else {
				fmt.Printf("\r[%d/%d] Running...", currentRun, totalRuns)
			}

			result := runPlanner(graph, problem, name, *maxTicks, *timeout)
			results = append(results, result)

			if *verbose {
				if result.Success {
					fmt.Printf("OK (%.2fms, %d ticks)\n", result.RuntimeMs, result.Ticks)
				} else {
					fmt.Printf("FAILED %s\n", result.Error)
				}
			}
		}
	}
	fmt.Println()

	file, err := os.Create(*outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	if err := writeCSV(results, file); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
		os.Exit(1)
	}
	file.Close()
	fmt.Printf("Results written to: %s\n", *outputFile)

	printSummary(os.Stdout, results)
}
