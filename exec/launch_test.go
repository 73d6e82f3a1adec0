package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/device"
)

// stubFunc is a device.Function with a fixed resource footprint; the
// launch-side methods are never exercised by geometry tests.
type stubFunc struct {
	attrs device.FuncAttributes
}

func (f stubFunc) Attributes() device.FuncAttributes { return f.attrs }
func (f stubFunc) SetBlockShape(x, y, z int)         {}
func (f stubFunc) SetSharedSize(bytes int)           {}
func (f stubFunc) SetParams(raw []byte)              {}
func (f stubFunc) Launch(gw, gh int) error           { return nil }

func TestConfigureElementwise(t *testing.T) {
	e := &Engine{maxBlockThreads: 256, maxGrid: 64}
	fn := stubFunc{attrs: device.FuncAttributes{MaxThreadsPerBlock: 512}}
	n := &ast.Node{Type: ast.NodeMap}

	cfg := e.configure(n, 1000, fn)
	assert.Equal(t, 256, cfg.ThreadsPerBlock)
	assert.Equal(t, 4, cfg.Grid)
	assert.Equal(t, 0, cfg.SharedBytes)

	// One element still gets a full block.
	cfg = e.configure(n, 1, fn)
	assert.Equal(t, 1, cfg.Grid)
}

func TestConfigureRespectsKernelLimit(t *testing.T) {
	e := &Engine{maxBlockThreads: 256, maxGrid: 64}
	// A register-hungry kernel caps below the engine's block size; the
	// result rounds down to a whole number of warps.
	fn := stubFunc{attrs: device.FuncAttributes{MaxThreadsPerBlock: 100}}
	cfg := e.configure(&ast.Node{Type: ast.NodeMap}, 1000, fn)
	assert.Equal(t, 96, cfg.ThreadsPerBlock)

	// Never below one warp.
	fn = stubFunc{attrs: device.FuncAttributes{MaxThreadsPerBlock: 7}}
	cfg = e.configure(&ast.Node{Type: ast.NodeMap}, 1000, fn)
	assert.Equal(t, 32, cfg.ThreadsPerBlock)
}

func TestConfigureReduction(t *testing.T) {
	e := &Engine{maxBlockThreads: 128, maxGrid: 16}
	fn := stubFunc{attrs: device.FuncAttributes{MaxThreadsPerBlock: 512, SharedSizeBytes: 64}}

	cfg := e.configure(&ast.Node{Type: ast.NodeFold}, 1_000_000, fn)
	assert.Equal(t, 128, cfg.ThreadsPerBlock)
	assert.Equal(t, 16, cfg.Grid, "reduction grids are capped")
	assert.Equal(t, 128*8+64, cfg.SharedBytes)

	cfg = e.configure(&ast.Node{Type: ast.NodeScanl}, 200, fn)
	assert.Equal(t, 2, cfg.Grid)

	// A small reduction fits one block: its single pass finishes the job.
	cfg = e.configure(&ast.Node{Type: ast.NodeFold}, 100, fn)
	assert.Equal(t, 1, cfg.Grid)
}
