package vm

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable listing of the program.
func (p *Program) Disassemble(w io.Writer) {
	fmt.Fprintf(w, "%s: %d instruction(s), regs i:%d f:%d s:%d p:%d\n",
		p.Name, len(p.Code), p.NumRegs[0], p.NumRegs[1], p.NumRegs[2], p.NumRegs[3])
	for i, ins := range p.Code {
		fmt.Fprintf(w, "%4d  %-10s %d, %d, %d%s\n", i, ins.Op, ins.A, ins.B, ins.C, p.annotate(ins))
	}
	if len(p.IntConsts) > 0 {
		fmt.Fprintf(w, "int constants: %v\n", p.IntConsts)
	}
	if len(p.FloatConsts) > 0 {
		fmt.Fprintf(w, "float constants: %v\n", p.FloatConsts)
	}
	if len(p.StringConsts) > 0 {
		fmt.Fprintf(w, "string constants: %q\n", p.StringConsts)
	}
}

func (p *Program) annotate(ins Instruction) string {
	switch ins.Op {
	case OpLK, OpAddRK, OpSubRK, OpMulRK, OpDivRK, OpDivURK, OpModRK, OpModURK,
		OpAndRK, OpOrRK, OpXorRK:
		if ins.C < len(p.IntConsts) {
			return fmt.Sprintf("  ; %d", p.IntConsts[ins.C])
		}
		if ins.Op == OpLK && ins.B < len(p.IntConsts) {
			return fmt.Sprintf("  ; %d", p.IntConsts[ins.B])
		}
	case OpLKF:
		if ins.B < len(p.FloatConsts) {
			return fmt.Sprintf("  ; %g", p.FloatConsts[ins.B])
		}
	case OpLKS:
		if ins.B < len(p.StringConsts) {
			return fmt.Sprintf("  ; %q", p.StringConsts[ins.B])
		}
	case OpJmp:
		return "  ; ->"
	}
	return ""
}
