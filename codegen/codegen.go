// Package codegen is the host side of the kernel pipeline: it derives the
// stable content hash identifying each skeleton node's kernel, and tracks
// the external compiler processes producing the binaries. The engine in
// package exec consumes both through its Config.
package codegen

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/nushio3/accelerate/ast"
)

// StructuralHash returns the content hash of a computation node: a stable
// key over the node's operation, its embedded scalar expressions, the
// element types involved and any compile-time constants. Array payloads and
// extents never enter the hash; two nodes that generate the same kernel
// code hash alike regardless of the data flowing through them.
func StructuralHash(n *ast.Node) string {
	h := fnv.New64a()
	hashNode(h, n)
	return fmt.Sprintf("%016x", h.Sum64())
}

func hashNode(h hash.Hash64, n *ast.Node) {
	if n == nil {
		writeWord(h, 0)
		return
	}
	writeWord(h, uint64(n.Type))
	writeWord(h, uint64(n.Out))
	switch n.Type {
	case ast.NodeUse:
		// The payload is data, the element type shapes the generated reads.
		writeWord(h, uint64(n.UseArray().Shape.DType))
	case ast.NodeVar:
		writeWord(h, uint64(n.VarIndex()))
	case ast.NodeReplicate, ast.NodeSlice:
		for _, fixedAxis := range n.FixedAxes() {
			if fixedAxis {
				writeWord(h, 1)
			} else {
				writeWord(h, 2)
			}
		}
	}
	writeWord(h, uint64(len(n.Args)))
	for _, arg := range n.Args {
		hashNode(h, arg)
	}
	hashExpr(h, n.Fn)
	hashExpr(h, n.Aux)
}

func hashExpr(h hash.Hash64, x *ast.Expr) {
	if x == nil {
		writeWord(h, 0)
		return
	}
	writeWord(h, uint64(x.Type))
	switch x.Type {
	case ast.ExprVar, ast.ExprPrj:
		writeWord(h, uint64(x.Index))
	case ast.ExprConst:
		// Constants are baked into the kernel text, so they key it.
		writeString(h, fmt.Sprintf("%T=%v", x.Const, x.Const))
	case ast.ExprPrimConst:
		writeWord(h, uint64(x.Prim))
		writeWord(h, uint64(x.DType))
	case ast.ExprPrimApp:
		writeWord(h, uint64(x.Prim))
		writeWord(h, uint64(x.DType))
	case ast.ExprIndex, ast.ExprShape:
		// The referenced array contributes only its element type: the
		// extents arrive through shape slots at bind time.
		if x.Array != nil && x.Array.Type == ast.NodeUse {
			writeWord(h, uint64(x.Array.UseArray().Shape.DType))
		} else if x.Array != nil && x.Array.Type == ast.NodeVar {
			writeWord(h, uint64(x.Array.VarIndex()))
		}
	}
	writeWord(h, uint64(len(x.Kids)))
	for _, kid := range x.Kids {
		hashExpr(h, kid)
	}
}

func writeWord(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func writeString(h hash.Hash64, s string) {
	writeWord(h, uint64(len(s)))
	_, _ = h.Write([]byte(s))
}
