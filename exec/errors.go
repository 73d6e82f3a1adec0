package exec

import (
	"fmt"

	"github.com/nushio3/accelerate/types/shapes"
)

// The error kinds an evaluation can return. They are typed so callers can
// dispatch with errors.As; none of them is recoverable mid-evaluation --
// the engine unwinds, frees what it allocated, and reports.

// ShapeMismatchError reports a reshape whose target holds a different
// number of elements than its source.
type ShapeMismatchError struct {
	Source shapes.Shape
	Target shapes.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("reshape: target shape %s holds %d elements, source %s holds %d",
		e.Target, e.Target.Size(), e.Source, e.Source.Size())
}

// IndexOutOfBoundsError reports a fixed slice position at or beyond the
// corresponding source extent.
type IndexOutOfBoundsError struct {
	Axis   int
	Index  int
	Extent int
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("slice: fixed index %d out of bounds for extent %d at source axis %d",
		e.Index, e.Extent, e.Axis)
}

// KernelCacheMissError reports a computation whose hash has no kernel table
// entry: the code-generation stage did not run over this node first. This
// is a violated precondition, not a runtime condition.
type KernelCacheMissError struct {
	Key string
}

func (e *KernelCacheMissError) Error() string {
	return fmt.Sprintf("kernel cache: no entry for computation hash %q -- code generation did not run", e.Key)
}

// CompilerFailureError reports an external kernel compiler process that is
// missing or exited abnormally. Task identifies the process.
type CompilerFailureError struct {
	Task string
	Err  error
}

func (e *CompilerFailureError) Error() string {
	return fmt.Sprintf("external kernel compiler %s failed: %v", e.Task, e.Err)
}

func (e *CompilerFailureError) Unwrap() error { return e.Err }
