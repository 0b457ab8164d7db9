package nix

import (
	"context"
	"slices"

	"nh-go/internal/nh"
)

// StoreCollector runs the Nix store garbage collector, `nix-store --gc` by default.
type StoreCollector struct {
	runner  *Runner
	command []string
}

// NewStoreCollector creates a collector that runs command through runner.
func NewStoreCollector(runner *Runner, command []string) *StoreCollector {
	return &StoreCollector{runner: runner, command: slices.Clone(command)}
}

// CollectGarbage runs the collector to completion.
func (c *StoreCollector) CollectGarbage(ctx context.Context) error {
	return c.runner.Run(ctx, c.command)
}

// Compile-time check that StoreCollector implements nh.StoreCollector interface
var _ nh.StoreCollector = (*StoreCollector)(nil)
