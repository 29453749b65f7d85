package codegen

import (
	"github.com/lhaig/forpasc/internal/ast"
	"github.com/lhaig/forpasc/internal/bytewriter"
	"github.com/lhaig/forpasc/internal/wasmop"
)

func (g *generator) emitTypeSection(out *bytewriter.Writer) {
	if len(g.sigTable) == 0 {
		return
	}
	out.Section(wasmop.SecType, func(w *bytewriter.Writer) {
		w.U32(uint32(len(g.sigTable)))
		for _, sig := range g.sigTable {
			w.Byte(0x60)
			w.U32(uint32(len(sig.params)))
			for _, p := range sig.params {
				w.Byte(p)
			}
			if sig.hasRes {
				w.U32(1)
				w.Byte(sig.result)
			} else {
				w.U32(0)
			}
		}
	})
}

func (g *generator) emitImportSection(out *bytewriter.Writer) {
	n := g.importCount
	if g.needsMemory && !g.ownMemory {
		n++
	}
	if n == 0 {
		return
	}
	out.Section(wasmop.SecImport, func(w *bytewriter.Writer) {
		w.U32(uint32(n))
		for _, fi := range g.funcs[:g.importCount] {
			w.Str(fi.moduleName)
			w.Str(fi.name)
			w.Byte(wasmop.KindFunc)
			w.U32(uint32(fi.sigID))
		}
		if g.needsMemory && !g.ownMemory {
			w.Str("env")
			w.Str("memory")
			w.Byte(wasmop.KindMemory)
			w.Byte(0x00) // limits: no maximum
			w.U32(1)
		}
	})
}

func (g *generator) emitFunctionSection(out *bytewriter.Writer) {
	locals := g.funcs[g.importCount:]
	if len(locals) == 0 {
		return
	}
	out.Section(wasmop.SecFunction, func(w *bytewriter.Writer) {
		w.U32(uint32(len(locals)))
		for _, fi := range locals {
			w.U32(uint32(fi.sigID))
		}
	})
}

func (g *generator) emitTableSection(out *bytewriter.Writer) {
	if !g.needsIndirect {
		return
	}
	out.Section(wasmop.SecTable, func(w *bytewriter.Writer) {
		w.U32(1)
		w.Byte(wasmop.RefFunc)
		w.Byte(0x00) // limits: no maximum
		w.U32(uint32(len(g.tableOrder)))
	})
}

func (g *generator) emitMemorySection(out *bytewriter.Writer) {
	if !g.ownMemory {
		return
	}
	out.Section(wasmop.SecMemory, func(w *bytewriter.Writer) {
		w.U32(1)
		w.Byte(0x00)
		w.U32(1)
	})
}

func (g *generator) emitGlobalSection(out *bytewriter.Writer) {
	if len(g.globals) == 0 {
		return
	}
	out.Section(wasmop.SecGlobal, func(w *bytewriter.Writer) {
		w.U32(uint32(len(g.globals)))
		for _, gl := range g.globals {
			w.Byte(gl.wasmType)
			if gl.mutable {
				w.Byte(0x01)
			} else {
				w.Byte(0x00)
			}
			g.emitConstInit(w, gl.wasmType, gl.init)
			w.Byte(wasmop.OpEnd)
		}
	})
}

// emitConstInit emits a global's constant initialiser expression: a
// numeric literal, a negated numeric literal, or the type's zero value
// when init is nil. Anything else is a non-constant initialiser error.
func (g *generator) emitConstInit(w *bytewriter.Writer, wt byte, init ast.Expr) {
	if init == nil {
		g.emitZeroConst(w, wt)
		return
	}

	negate := false
	expr := init
	if u, ok := expr.(*ast.UnaryOp); ok && u.Op == "-" {
		negate = true
		expr = u.Operand
	}
	lit, ok := expr.(*ast.NumberLit)
	if !ok {
		line, col := init.Pos()
		fail(line, col, "global initialiser must be a constant literal")
	}
	emitNumberLitConst(w, wt, lit, negate)
}

func (g *generator) emitZeroConst(w *bytewriter.Writer, wt byte) {
	switch wt {
	case wasmop.ValI32:
		w.Byte(wasmop.OpI32Const)
		w.S32(0)
	case wasmop.ValI64:
		w.Byte(wasmop.OpI64Const)
		w.S64(0)
	case wasmop.ValF32:
		w.Byte(wasmop.OpF32Const)
		w.F32(0)
	case wasmop.ValF64:
		w.Byte(wasmop.OpF64Const)
		w.F64(0)
	case wasmop.ValV128:
		w.Byte(wasmop.PrefixFD)
		w.U32(wasmop.SubV128Const)
		for i := 0; i < 16; i++ {
			w.Byte(0)
		}
	}
}

func (g *generator) emitExportSection(out *bytewriter.Writer) {
	locals := g.funcs[g.importCount:]
	var exported []funcInfo
	for _, fi := range locals {
		if fi.fn != nil && fi.fn.Exported {
			exported = append(exported, fi)
		}
		if fi.sr != nil && fi.sr.Exported {
			exported = append(exported, fi)
		}
	}
	n := len(exported)
	if g.ownMemory {
		n++
	}
	if n == 0 {
		return
	}
	out.Section(wasmop.SecExport, func(w *bytewriter.Writer) {
		w.U32(uint32(n))
		for _, fi := range exported {
			w.Str(fi.name)
			w.Byte(wasmop.KindFunc)
			w.U32(g.funcIndex[fi.name])
		}
		if g.ownMemory {
			w.Str("memory")
			w.Byte(wasmop.KindMemory)
			w.U32(0)
		}
	})
}

func (g *generator) emitElementSection(out *bytewriter.Writer) {
	if !g.needsIndirect || len(g.tableOrder) == 0 {
		return
	}
	out.Section(wasmop.SecElement, func(w *bytewriter.Writer) {
		w.U32(1) // one active segment
		w.U32(0) // table index 0
		w.Byte(wasmop.OpI32Const)
		w.S32(0)
		w.Byte(wasmop.OpEnd)
		w.U32(uint32(len(g.tableOrder)))
		for _, name := range g.tableOrder {
			w.U32(g.funcIndex[name])
		}
	})
}

func (g *generator) emitCodeSection(out *bytewriter.Writer) {
	locals := g.funcs[g.importCount:]
	if len(locals) == 0 {
		return
	}
	out.Section(wasmop.SecCode, func(w *bytewriter.Writer) {
		w.U32(uint32(len(locals)))
		for _, fi := range locals {
			body := g.emitFunctionBody(fi)
			w.U32(uint32(len(body)))
			w.RawBytes(body)
		}
	})
}
