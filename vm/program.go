package vm

import "spark/types"

// Program is a compiled function body: instructions, constant pools
// and the register file sizes the interpreter must provide.
type Program struct {
	Name string
	Code []Instruction

	IntConsts    []int
	FloatConsts  []float64
	StringConsts []string
	AddrConsts   []TaggedAddr

	NumRegs [types.NumRegClasses]int
}
