// Command accelrun runs a small demonstration pipeline on the simulated
// accelerator: it uploads a vector, maps a shift over it, scans and reduces
// it, and prints the results along with the simulator's instrumentation
// counters. Useful as a smoke test of the whole dispatch path and as a
// worked example of wiring an Engine.
package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/nushio3/accelerate/ast"
	"github.com/nushio3/accelerate/codegen"
	"github.com/nushio3/accelerate/device"
	"github.com/nushio3/accelerate/device/devsim"
	"github.com/nushio3/accelerate/exec"
	"github.com/nushio3/accelerate/interp"
	"github.com/nushio3/accelerate/types/shapes"

	"github.com/gomlx/gopjrt/dtypes"
)

var flagN = flag.Int("n", 1000, "Number of elements in the demonstration vector.")

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if err := run(*flagN); err != nil {
		klog.Errorf("accelrun: %+v", err)
		os.Exit(1)
	}
}

func run(n int) error {
	dev := devsim.New()
	table := exec.NewKernelTable()
	eng, err := exec.New(exec.Config{
		Driver:  dev,
		Memory:  dev,
		Kernels: table,
		Hash:    codegen.StructuralHash,
	})
	if err != nil {
		return err
	}

	// Upload the input. The engine treats it as caller-owned: it is never
	// freed by evaluation.
	flat := make([]int32, n)
	for i := range flat {
		flat[i] = int32(i + 1)
	}
	shape := shapes.Make(dtypes.Int32, n)
	buf, err := dev.Alloc(shape.DType, n)
	if err != nil {
		return err
	}
	if err := dev.ToDevice(buf, flat); err != nil {
		return err
	}
	in := device.Pin(shape, buf)

	// shifted = map (+1) in; total = fold (+) shifted; prefix = scanl (+) shifted.
	addPair := func() *ast.Expr {
		return ast.PrimApp(ast.PrimAdd, ast.Tuple(ast.Prj(0, ast.Var(0)), ast.Prj(1, ast.Var(0))))
	}
	shifted := ast.Map(ast.PrimApp(ast.PrimAdd, ast.Tuple(ast.Var(0), ast.Const(int32(1)))), ast.Use(in))
	folded := ast.Fold(addPair(), shifted)
	scanned := ast.Scanl(addPair(), shifted)

	// Stand in for the compilation stage: register a simulated binary per
	// skeleton hash.
	register := func(node *ast.Node, kernels map[string]devsim.KernelFunc) {
		key := codegen.StructuralHash(node)
		path := "/sim/" + key + ".bin"
		dev.RegisterBinary(path, kernels)
		table.Register(key, path, nil)
	}
	add := func(a, b int32) int32 { return a + b }
	register(shifted, map[string]devsim.KernelFunc{
		"map": devsim.MapKernel(func(v int32) int32 { return v + 1 }),
	})
	register(folded, map[string]devsim.KernelFunc{
		"fold": devsim.FoldKernel(add),
	})
	register(scanned, map[string]devsim.KernelFunc{
		"inclusive_scan":   devsim.ScanKernel(add),
		"exclusive_update": devsim.UpdateKernel(add),
	})

	total, err := eng.Run(folded)
	if err != nil {
		return err
	}
	totalArr := total.(device.Array)
	v, err := dev.ReadScalar(totalArr.Data.Buf, 0)
	if err != nil {
		return err
	}
	fmt.Printf("sum of [2..%d+1] = %v\n", n, v)
	if err := totalArr.Release(dev); err != nil {
		return err
	}

	pair, err := eng.Run(scanned)
	if err != nil {
		return err
	}
	results := pair.(interp.Tuple)
	prefix := results[0].(device.Array)
	grand := results[1].(device.Array)
	last, err := dev.ReadScalar(prefix.Data.Buf, n-1)
	if err != nil {
		return err
	}
	fmt.Printf("last prefix sum = %v\n", last)
	if err := prefix.Release(dev); err != nil {
		return err
	}
	if err := grand.Release(dev); err != nil {
		return err
	}

	fmt.Printf("device: %d allocs, %d frees, %d module loads, %d launches, %d live buffers\n",
		dev.AllocCount.Load(), dev.FreeCount.Load(), dev.LoadCount.Load(),
		dev.LaunchCount.Load(), dev.LiveBuffers())
	return nil
}
