package exec

import (
	"k8s.io/klog/v2"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/device"
)

// LaunchConfig is the geometry of one kernel launch. Computed fresh per
// dispatch from the kernel's static resource footprint and the problem
// size; never cached.
type LaunchConfig struct {
	ThreadsPerBlock int
	Grid            int
	SharedBytes     int
}

const warpSize = 32

// configure derives launch geometry for a kernel over elems elements. For
// reduction-style kernels the grid size is also the number of partial
// results one pass produces, which the executor consumes to decide whether
// another pass is needed.
func (e *Engine) configure(n *ast.Node, elems int, fn device.Function) LaunchConfig {
	attrs := fn.Attributes()

	threads := min(e.maxBlockThreads, attrs.MaxThreadsPerBlock)
	threads = (threads / warpSize) * warpSize
	if threads < warpSize {
		threads = warpSize
	}

	grid := (elems + threads - 1) / threads
	if grid < 1 {
		grid = 1
	}

	cfg := LaunchConfig{ThreadsPerBlock: threads}
	switch n.Type {
	case ast.NodeFold, ast.NodeFoldSeg, ast.NodeScanl, ast.NodeScanr:
		// Multi-pass kernels keep one partial result per block; cap the
		// grid so the recursion terminates quickly.
		cfg.Grid = min(grid, e.maxGrid)
		// One accumulator slot per thread, sized for the widest (two
		// channel) element representation.
		cfg.SharedBytes = threads * 8
	default:
		cfg.Grid = grid
	}
	cfg.SharedBytes += attrs.SharedSizeBytes

	klog.V(2).Infof("launch %s over %d elements: %d threads/block, grid %d, %d shared bytes",
		n.Type, elems, cfg.ThreadsPerBlock, cfg.Grid, cfg.SharedBytes)
	return cfg
}
