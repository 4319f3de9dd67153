package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/locked"
	"github.com/joshuapare/heapkit/internal/format"
)

var replayStrategy string

func init() {
	cmd := newReplayCmd()
	cmd.Flags().StringVarP(&replayStrategy, "strategy", "s", "", "Override the strategy named in the trace")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace.yaml>",
		Short: "Replay an allocation trace",
		Long: `The replay command runs a YAML trace of named allocations and frees
against a synthetic arena and prints the address each allocation received.
Operations may carry an expected address; a mismatch fails the replay.

Trace format:
  strategy: freelist
  start: 0x1000
  size: 4096
  ops:
    - {op: alloc, name: a, size: 16, align: 8, expect: 0x1000}
    - {op: free, name: a}

Example:
  heapctl replay trace.yaml
  heapctl replay trace.yaml --strategy bump --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args)
		},
	}
	return cmd
}

// Trace is a scripted sequence of allocator operations.
type Trace struct {
	Strategy string    `yaml:"strategy"`
	Start    uint64    `yaml:"start"`
	Size     int       `yaml:"size"`
	Ops      []TraceOp `yaml:"ops"`
}

// TraceOp is one step of a Trace. Op is "alloc" or "free"; a free names an
// earlier alloc and reuses its layout.
type TraceOp struct {
	Op     string  `yaml:"op"`
	Name   string  `yaml:"name"`
	Size   uint64  `yaml:"size"`
	Align  uint64  `yaml:"align"`
	Expect *uint64 `yaml:"expect,omitempty"`
}

// ReplayStep is the outcome of one TraceOp.
type ReplayStep struct {
	Op     string `json:"op"`
	Name   string `json:"name"`
	Layout string `json:"layout"`
	Addr   string `json:"addr,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	defaultTraceStart = 0x1000
	defaultTraceSize  = 4096
)

func loadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	t := &Trace{Strategy: "freelist", Start: defaultTraceStart, Size: defaultTraceSize}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(t); err != nil {
		return nil, fmt.Errorf("failed to parse trace %s: %w", path, err)
	}
	if t.Start == 0 {
		return nil, errors.New("trace start address must not be zero")
	}
	if !format.IsAligned(uintptr(t.Start), format.WordSize) {
		return nil, fmt.Errorf("trace start address %s is not %d-byte aligned", formatAddr(uintptr(t.Start)), format.WordSize)
	}
	if t.Size <= 0 {
		return nil, fmt.Errorf("trace size %d must be positive", t.Size)
	}
	return t, nil
}

func runReplay(args []string) error {
	tr, err := loadTrace(args[0])
	if err != nil {
		return err
	}
	if replayStrategy != "" {
		tr.Strategy = replayStrategy
	}
	printVerbose("Replaying %d operations from %s\n", len(tr.Ops), args[0])

	steps, err := replay(tr)
	if jsonOut {
		if jerr := printJSON(steps); jerr != nil {
			return jerr
		}
		return err
	}
	for _, s := range steps {
		switch {
		case s.Error != "":
			printInfo("%-5s %-8s %-22s %s\n", s.Op, s.Name, s.Layout, s.Error)
		default:
			printInfo("%-5s %-8s %-22s %s\n", s.Op, s.Name, s.Layout, s.Addr)
		}
	}
	return err
}

// replay runs tr on a fresh synthetic arena. It stops at the first step that
// is malformed or contradicts its expectation.
func replay(tr *Trace) ([]ReplayStep, error) {
	cfg := locked.DefaultConfig()
	s, err := alloc.ParseStrategy(tr.Strategy)
	if err != nil {
		return nil, err
	}
	cfg.Strategy = s
	cfg.HeapSize = tr.Size

	h, err := locked.InitHeap(heap.NewRegion(heap.Addr(tr.Start), make([]byte, tr.Size)), cfg)
	if err != nil {
		return nil, err
	}

	type named struct {
		addr   heap.Addr
		layout alloc.Layout
	}
	live := make(map[string]named)
	steps := make([]ReplayStep, 0, len(tr.Ops))

	for i, op := range tr.Ops {
		step := ReplayStep{Op: op.Op, Name: op.Name}
		switch op.Op {
		case "alloc":
			if _, dup := live[op.Name]; dup {
				return steps, fmt.Errorf("op %d: %q is already allocated", i, op.Name)
			}
			align := op.Align
			if align == 0 {
				align = 1
			}
			l, err := alloc.NewLayout(uintptr(op.Size), uintptr(align))
			if err != nil {
				return steps, fmt.Errorf("op %d: %w", i, err)
			}
			step.Layout = l.String()

			addr, err := h.Allocate(l)
			if err != nil {
				step.Error = err.Error()
				steps = append(steps, step)
				if op.Expect != nil {
					return steps, fmt.Errorf("op %d: %s expected %s, got %w", i, op.Name, formatAddr(uintptr(*op.Expect)), err)
				}
				continue
			}
			step.Addr = formatAddr(addr)
			steps = append(steps, step)
			live[op.Name] = named{addr: addr, layout: l}
			if op.Expect != nil && uint64(addr) != *op.Expect {
				return steps, fmt.Errorf("op %d: %s expected %s, got %s", i, op.Name, formatAddr(uintptr(*op.Expect)), step.Addr)
			}

		case "free":
			b, ok := live[op.Name]
			if !ok {
				return steps, fmt.Errorf("op %d: free of unknown block %q", i, op.Name)
			}
			h.Deallocate(b.addr, b.layout)
			delete(live, op.Name)
			step.Layout = b.layout.String()
			step.Addr = formatAddr(b.addr)
			steps = append(steps, step)

		default:
			return steps, fmt.Errorf("op %d: unknown operation %q", i, op.Op)
		}
	}
	return steps, nil
}
