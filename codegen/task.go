package codegen

import (
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Task is one running external compiler invocation. It satisfies the
// engine's CompileTask: Wait blocks until the process exits, String
// identifies the command line in error reports. Compilation runs
// concurrently with tree evaluation; the engine only waits when it first
// needs the binary.
type Task struct {
	cmd *exec.Cmd
}

// Compile starts the external compiler and returns its task handle. Output
// lands wherever the command line says; callers register the resulting
// binary path in the kernel table alongside the task.
func Compile(name string, args ...string) (*Task, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.WithMessagef(err, "starting compiler %s", name)
	}
	klog.V(1).Infof("compiling: %s", strings.Join(cmd.Args, " "))
	return &Task{cmd: cmd}, nil
}

// Wait blocks until the compiler process terminates and reports its exit
// status. There is no timeout.
func (t *Task) Wait() error {
	if err := t.cmd.Wait(); err != nil {
		return errors.WithMessagef(err, "compiler %s", t)
	}
	return nil
}

func (t *Task) String() string {
	return strings.Join(t.cmd.Args, " ")
}
