package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
)

var (
	classesPreset string
	classesSize   uint64
	classesAlign  uint64
)

func init() {
	cmd := newClassesCmd()
	cmd.Flags().StringVarP(&classesPreset, "preset", "p", "", "Size-class preset: default, small, page (default from config)")
	cmd.Flags().Uint64Var(&classesSize, "size", 0, "Show which class serves a request of this size")
	cmd.Flags().Uint64Var(&classesAlign, "align", 8, "Alignment of the --size request")
	rootCmd.AddCommand(cmd)
}

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Show the fixed-block size classes",
		Long: `The classes command prints the size-class table of the fixed-block
strategy. With --size it also reports which class list serves that request,
or that the request goes to the fallback allocator.

Example:
  heapctl classes
  heapctl classes --preset small
  heapctl classes --size 100 --align 64`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
	return cmd
}

var classPresets = map[string]alloc.SizeClassConfig{
	"default": alloc.ConfigDefault,
	"small":   alloc.ConfigSmall,
	"page":    alloc.ConfigPage,
}

// ClassTable is the JSON form of the classes output.
type ClassTable struct {
	Name    string        `json:"name"`
	Classes []uintptr     `json:"classes"`
	Request *ClassRequest `json:"request,omitempty"`
}

// ClassRequest reports where one layout lands. Class is -1 for the fallback.
type ClassRequest struct {
	Size     uint64 `json:"size"`
	Align    uint64 `json:"align"`
	Class    int    `json:"class"`
	Block    uint64 `json:"block,omitempty"`
	Fallback bool   `json:"fallback"`
}

func selectClasses() (alloc.SizeClassConfig, error) {
	if classesPreset != "" {
		c, ok := classPresets[strings.ToLower(classesPreset)]
		if !ok {
			return alloc.SizeClassConfig{}, fmt.Errorf("unknown preset %q", classesPreset)
		}
		return c, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return alloc.SizeClassConfig{}, err
	}
	if c := cfg.SizeClasses(); c != nil {
		return *c, nil
	}
	return alloc.DefaultSizeClasses, nil
}

func runClasses() error {
	classes, err := selectClasses()
	if err != nil {
		return err
	}
	fa, err := alloc.NewFixedBlock(&classes)
	if err != nil {
		return err
	}

	table := ClassTable{Name: classes.Name, Classes: fa.BlockSizes()}
	if classesSize > 0 {
		l, err := alloc.NewLayout(uintptr(classesSize), uintptr(classesAlign))
		if err != nil {
			return err
		}
		req := &ClassRequest{Size: classesSize, Align: classesAlign, Class: -1}
		if idx, ok := fa.ListIndex(l); ok {
			req.Class = idx
			req.Block = uint64(table.Classes[idx])
		} else {
			req.Fallback = true
		}
		table.Request = req
	}

	if jsonOut {
		return printJSON(table)
	}

	printInfo("Size classes: %s\n", table.Name)
	for i, size := range table.Classes {
		printInfo("  [%d] %s\n", i, formatBytes(int64(size)))
	}
	if r := table.Request; r != nil {
		if r.Fallback {
			printInfo("\nsize=%d align=%d: larger than every class, served by the fallback\n", r.Size, r.Align)
		} else {
			printInfo("\nsize=%d align=%d: class [%d] (%d-byte blocks)\n", r.Size, r.Align, r.Class, r.Block)
		}
	}
	return nil
}
