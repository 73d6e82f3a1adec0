// Package exec is the execution engine: it walks a typed computation tree
// and, per node, either resolves it on the host, binds it to accelerator
// memory, or dispatches it to a pre-compiled accelerator kernel, managing
// the lifetime of kernel binaries and device payloads across the walk.
//
// One logical executor goroutine drives a whole evaluation; device launches
// may be asynchronous internally but everything is issued on a single
// device command stream, so device-side ordering between dependent
// operations needs no extra host synchronization. The kernel table is the
// only shared state, and it serializes first-uses per hash.
package exec

import (
	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/device"
	"github.com/nushio3/accelerate/types/shapes"
)

// Config assembles the collaborators an Engine needs.
type Config struct {
	// Driver loads kernel binaries and launches functions.
	Driver device.Driver

	// Memory allocates, copies and frees device storage.
	Memory device.Memory

	// Kernels is the process-wide table populated by the code-generation
	// stage before execution starts.
	Kernels *KernelTable

	// Hash is the code generator's stable structural hash of a computation
	// node, the key under which its kernel was registered.
	Hash func(*ast.Node) string
}

// Engine executes computation trees. Safe for use by a single goroutine
// per Run; distinct Runs may share the Engine, the kernel table serializes
// the only cross-run state.
type Engine struct {
	driver  device.Driver
	mem     device.Memory
	kernels *KernelTable
	hash    func(*ast.Node) string

	// Launch tuning, read from the environment at construction.
	maxBlockThreads int
	maxGrid         int
}

// Environment knobs for launch geometry.
const (
	maxBlockThreadsKey = "ACCEL_MAX_BLOCK_THREADS"
	maxGridKey         = "ACCEL_MAX_GRID"
)

// New builds an Engine from its collaborators.
func New(cfg Config) (*Engine, error) {
	if cfg.Driver == nil || cfg.Memory == nil {
		return nil, errors.Errorf("exec.New: Driver and Memory collaborators are required")
	}
	if cfg.Kernels == nil {
		return nil, errors.Errorf("exec.New: a kernel table is required, populate it with the code-generation stage")
	}
	if cfg.Hash == nil {
		return nil, errors.Errorf("exec.New: a structural hash function is required (see package codegen)")
	}
	return &Engine{
		driver:          cfg.Driver,
		mem:             cfg.Memory,
		kernels:         cfg.Kernels,
		hash:            cfg.Hash,
		maxBlockThreads: env.Int(maxBlockThreadsKey, 256),
		maxGrid:         env.Int(maxGridKey, 64),
	}, nil
}

// Run evaluates a closed computation tree against an empty environment and
// returns its result: a device.Array, or an interp.Tuple of arrays for
// pair-producing computations. Ownership of the result payloads transfers
// to the caller, who releases them with Array.Release.
//
// On error, every payload the evaluation allocated is freed before
// returning; arrays introduced with ast.Use are never touched.
func (e *Engine) Run(root *ast.Node) (result any, err error) {
	sc := &runScope{}
	defer func() {
		if err != nil {
			sc.abort(e.mem)
		}
	}()
	return e.evalArray(root, Env{}, sc)
}

// Memory returns the device memory collaborator, for callers that need to
// upload inputs or release results.
func (e *Engine) Memory() device.Memory { return e.mem }

// newArray allocates a device-backed array and tracks it for error-path
// release.
func (e *Engine) newArray(sc *runScope, shape shapes.Shape) (device.Array, error) {
	arr, err := device.NewArray(e.mem, shape)
	if err != nil {
		return device.Array{}, err
	}
	sc.track(arr)
	return arr, nil
}
