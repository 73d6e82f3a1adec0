package exec

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/device"
)

// CompileTask is the handle to an external kernel compiler process. Wait
// blocks until the process terminates, with no timeout; String identifies
// the process for error reporting. codegen.Task is the production
// implementation over os/exec.
type CompileTask interface {
	Wait() error
	String() string
}

// KernelTable is the process-wide table of compiled kernel binaries, keyed
// by the structural content hash of the computation node that generated
// them. The code-generation stage inserts entries before execution starts;
// the engine only ever moves an entry from pending to ready, once, the
// first time its hash is needed. Entries persist for the life of the run.
type KernelTable struct {
	mu      sync.Mutex
	entries map[string]*kernelEntry

	// group serializes concurrent first-uses of the same hash: one caller
	// waits for the compiler and loads, the rest wait on that result.
	group singleflight.Group
}

// kernelEntry is the per-hash state machine: pending (task set, module nil)
// transitions to ready (module set) exactly once.
type kernelEntry struct {
	binPath string
	task    CompileTask

	mu     sync.Mutex
	module device.Module
}

// NewKernelTable returns an empty table.
func NewKernelTable() *KernelTable {
	return &KernelTable{entries: make(map[string]*kernelEntry)}
}

// Register inserts a pending entry: the binary the external compiler task
// is producing at binPath. task may be nil when the binary already exists
// on disk. Re-registering a key is a no-op: the first registration wins.
func (t *KernelTable) Register(key, binPath string, task CompileTask) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[key]; ok {
		return
	}
	t.entries[key] = &kernelEntry{binPath: binPath, task: task}
}

// Load returns the ready module for the given hash, blocking through the
// external compilation on first use. A missing entry is a
// KernelCacheMissError; an abnormal compiler exit is a
// CompilerFailureError.
func (t *KernelTable) Load(key string, drv device.Driver) (device.Module, error) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	t.mu.Unlock()
	if !ok {
		return nil, &KernelCacheMissError{Key: key}
	}

	entry.mu.Lock()
	module := entry.module
	entry.mu.Unlock()
	if module != nil {
		return module, nil
	}

	v, err, _ := t.group.Do(key, func() (any, error) {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		if entry.module != nil {
			// A previous flight completed between our check and this one.
			return entry.module, nil
		}
		if entry.task != nil {
			klog.V(1).Infof("kernel %q: waiting for compiler %s", key, entry.task)
			if waitErr := entry.task.Wait(); waitErr != nil {
				return nil, &CompilerFailureError{Task: entry.task.String(), Err: waitErr}
			}
		}
		module, loadErr := drv.LoadModule(entry.binPath)
		if loadErr != nil {
			return nil, errors.WithMessagef(loadErr, "loading kernel binary %s", entry.binPath)
		}
		klog.V(1).Infof("kernel %q: loaded %s", key, entry.binPath)
		entry.module = module
		return module, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(device.Module), nil
}

// loadKernel resolves the kernel module for a skeleton node through the
// engine's hash collaborator and the table.
func (e *Engine) loadKernel(n *ast.Node) (device.Module, error) {
	return e.kernels.Load(e.hash(n), e.driver)
}
