package main

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/locked"
)

var (
	simStrategy string
	simHeapSize int
	simOps      int
	simSeed     int64
	simMaxSize  int
	simFreeRate float64
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().StringVarP(&simStrategy, "strategy", "s", "", "Allocation strategy: bump, freelist, fixed, dummy (default from config)")
	cmd.Flags().IntVar(&simHeapSize, "heap-size", 0, "Arena size in bytes (default from config)")
	cmd.Flags().IntVarP(&simOps, "ops", "n", 10000, "Number of operations to run")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Random seed; equal seeds give equal runs")
	cmd.Flags().IntVar(&simMaxSize, "max-size", 512, "Largest request size in bytes")
	cmd.Flags().Float64Var(&simFreeRate, "free-rate", 0.4, "Probability that an operation frees a live block")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a random allocation workload",
		Long: `The simulate command maps an anonymous arena, installs the selected
strategy on it, and runs a reproducible random mix of allocations and frees.
Every granted block is checked for alignment, containment in the arena, and
overlap with other live blocks.

Example:
  heapctl simulate --strategy freelist --ops 50000
  heapctl simulate --strategy fixed --max-size 4096 --json
  HEAPKIT_HEAP_SIZE=1048576 heapctl simulate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate()
		},
	}
	return cmd
}

// SimulationResult is the outcome of one simulate run.
type SimulationResult struct {
	Strategy   string
	HeapStart  string
	HeapSize   int
	Seed       int64
	Ops        int
	Allocs     int
	Frees      int
	OOM        int
	PeakLive   int
	PeakBytes  int64
	LiveAtEnd  int
	BytesAtEnd int64
	Stats      alloc.Stats
}

type liveBlock struct {
	addr   heap.Addr
	layout alloc.Layout
}

func runSimulate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if simStrategy != "" {
		s, err := alloc.ParseStrategy(simStrategy)
		if err != nil {
			return err
		}
		cfg.Strategy = s
		cfg.BlockSizes = nil
	}
	if simHeapSize > 0 {
		cfg.HeapSize = simHeapSize
	}
	if simOps < 0 {
		return fmt.Errorf("--ops must not be negative")
	}
	if simMaxSize <= 0 {
		return fmt.Errorf("--max-size must be positive")
	}

	r, err := heap.Map(cfg.HeapSize)
	if err != nil {
		return fmt.Errorf("failed to map arena: %w", err)
	}
	defer r.Close()

	h, err := locked.InitHeap(r, cfg)
	if err != nil {
		return err
	}
	printVerbose("Arena: %s\n", h.Region())

	res, err := simulate(h, cfg, rand.New(rand.NewSource(simSeed)))
	if err != nil {
		return err
	}
	res.Seed = simSeed

	if jsonOut {
		return printJSON(res)
	}
	printSimulation(res)
	return nil
}

// simulate drives h with simOps random operations and verifies every grant.
func simulate(h *locked.Heap, cfg locked.Config, rng *rand.Rand) (SimulationResult, error) {
	region := h.Region()
	res := SimulationResult{
		Strategy:  cfg.Strategy.String(),
		HeapStart: formatAddr(region.Start()),
		HeapSize:  int(region.Size()),
		Ops:       simOps,
	}

	live := make([]liveBlock, 0, 1024)
	var liveBytes int64

	for i := 0; i < simOps; i++ {
		if len(live) > 0 && rng.Float64() < simFreeRate {
			j := rng.Intn(len(live))
			b := live[j]
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]

			h.Deallocate(b.addr, b.layout)
			liveBytes -= int64(b.layout.Size)
			res.Frees++
			continue
		}

		l := alloc.Layout{
			Size:  uintptr(1 + rng.Intn(simMaxSize)),
			Align: uintptr(1) << rng.Intn(7),
		}
		addr, err := h.Allocate(l)
		if err != nil {
			res.OOM++
			printVerbose("op %d: %s: %v\n", i, l, err)
			continue
		}
		if addr%l.Align != 0 {
			return res, fmt.Errorf("op %d: %s granted misaligned address %s", i, l, formatAddr(addr))
		}
		if !region.Contains(addr, l.Size) {
			return res, fmt.Errorf("op %d: %s granted %s outside %s", i, l, formatAddr(addr), region)
		}
		live = append(live, liveBlock{addr: addr, layout: l})
		liveBytes += int64(l.Size)
		res.Allocs++

		res.PeakLive = max(res.PeakLive, len(live))
		res.PeakBytes = max(res.PeakBytes, liveBytes)

		if i%256 == 0 {
			if err := checkDisjoint(live); err != nil {
				return res, fmt.Errorf("op %d: %w", i, err)
			}
		}
	}
	if err := checkDisjoint(live); err != nil {
		return res, err
	}

	res.LiveAtEnd = len(live)
	res.BytesAtEnd = liveBytes
	res.Stats = h.Stats()
	return res, nil
}

// checkDisjoint reports the first pair of live blocks that overlap.
func checkDisjoint(live []liveBlock) error {
	sorted := make([]liveBlock, len(live))
	copy(sorted, live)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].addr < sorted[j].addr })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.addr+prev.layout.Size > cur.addr {
			return fmt.Errorf("blocks %s %s and %s %s overlap",
				formatAddr(prev.addr), prev.layout, formatAddr(cur.addr), cur.layout)
		}
	}
	return nil
}

func printSimulation(res SimulationResult) {
	printInfo("\nSimulation: %s\n", res.Strategy)
	printInfo("%s\n\n", strings.Repeat("=", 40))

	printInfo("Arena:\n")
	printInfo("  Start: %s\n", res.HeapStart)
	printInfo("  Size: %s (%s bytes)\n\n", formatBytes(int64(res.HeapSize)), formatNumber(int64(res.HeapSize)))

	printInfo("Workload (seed %d):\n", res.Seed)
	printInfo("  Operations: %s\n", formatNumber(int64(res.Ops)))
	printInfo("  Allocations: %s\n", formatNumber(int64(res.Allocs)))
	printInfo("  Frees: %s\n", formatNumber(int64(res.Frees)))
	if total := res.Allocs + res.OOM; total > 0 {
		printInfo("  Out of memory: %s (%.1f%%)\n", formatNumber(int64(res.OOM)), float64(res.OOM)*100/float64(total))
	}
	printInfo("  Peak live blocks: %s\n", formatNumber(int64(res.PeakLive)))
	printInfo("  Peak live bytes: %s\n", formatBytes(res.PeakBytes))
	printInfo("  Live at end: %s blocks, %s\n\n", formatNumber(int64(res.LiveAtEnd)), formatBytes(res.BytesAtEnd))

	st := res.Stats
	printInfo("Allocator:\n")
	printInfo("  Allocate calls: %s (%s failed)\n", formatNumber(int64(st.AllocCalls)), formatNumber(int64(st.AllocFailed)))
	printInfo("  Deallocate calls: %s\n", formatNumber(int64(st.FreeCalls)))
	printInfo("  Bytes handed out: %s\n", formatBytes(st.BytesAllocated))
	if st.ClassHits > 0 || st.FallbackCalls > 0 {
		printInfo("  Class hits: %s\n", formatNumber(int64(st.ClassHits)))
		printInfo("  Fallback calls: %s\n", formatNumber(int64(st.FallbackCalls)))
	}
}
