package alloc

import (
	"fmt"
	"strings"
)

// Strategy selects an Allocator implementation at composition time.
type Strategy uint8

const (
	StrategyBump       Strategy = 1
	StrategyFreeList   Strategy = 2
	StrategyFixedBlock Strategy = 3
	StrategyDummy      Strategy = 4
)

var strategyNames = map[Strategy]string{
	StrategyBump:       "bump",
	StrategyFreeList:   "freelist",
	StrategyFixedBlock: "fixed",
	StrategyDummy:      "dummy",
}

// Strategies lists every selectable strategy in a stable order.
func Strategies() []Strategy {
	return []Strategy{StrategyBump, StrategyFreeList, StrategyFixedBlock, StrategyDummy}
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy maps a name to a Strategy. Accepted aliases: "linked-list" and
// "linkedlist" for freelist, "fixed-block" and "segregated" for fixed.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bump":
		return StrategyBump, nil
	case "freelist", "free-list", "linkedlist", "linked-list":
		return StrategyFreeList, nil
	case "fixed", "fixed-block", "fixedblock", "segregated":
		return StrategyFixedBlock, nil
	case "dummy":
		return StrategyDummy, nil
	}
	return 0, fmt.Errorf("%w: unknown strategy %q", ErrBadConfig, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if _, ok := strategyNames[s]; !ok {
		return nil, fmt.Errorf("%w: unknown strategy %d", ErrBadConfig, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, which lets YAML files and
// environment variables name a strategy.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// New builds an uninitialized allocator for the strategy. classes is used by
// StrategyFixedBlock only; nil selects DefaultSizeClasses.
func New(s Strategy, classes *SizeClassConfig) (Allocator, error) {
	switch s {
	case StrategyBump:
		return NewBump(), nil
	case StrategyFreeList:
		return NewLinkedList(), nil
	case StrategyFixedBlock:
		return NewFixedBlock(classes)
	case StrategyDummy:
		return &DummyAllocator{}, nil
	}
	return nil, fmt.Errorf("%w: unknown strategy %d", ErrBadConfig, uint8(s))
}
