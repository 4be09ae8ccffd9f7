package vm

// Opcode identifies one register-machine instruction. Instructions
// carry up to three operand fields (A, B, C); suffix conventions:
// RR = both operands in registers, RK = right operand in the constant
// pool, KR = left operand in the constant pool, RI = right operand is
// an immediate.
type Opcode uint8

// Loads and moves
const (
	OpNop Opcode = iota
	OpLI         // A = dest, B = signed immediate
	OpLK         // A = dest, B = int constant index
	OpLKF        // A = dest, B = float constant index
	OpLKS        // A = dest, B = string constant index
	OpLKP        // A = dest, B = address constant index
	OpMove       // A = dest, B = src (int)
	OpMoveF
	OpMoveS
	OpMoveA
	OpMoveV2
	OpMoveV3
)

// Typed loads through a base pointer. A = dest, B = base pointer
// register, C = int constant index holding the byte offset.
const (
	OpLB Opcode = OpMoveV3 + 1 + iota
	OpLBU
	OpLH
	OpLHU
	OpLW
	OpLF
	OpLS
	OpLO
	OpLV2
	OpLV3
)

// Typed stores through a base pointer. A = base pointer register,
// B = value register, C = int constant index holding the byte offset.
const (
	OpSB Opcode = OpLV3 + 1 + iota
	OpSH
	OpSW
	OpSF
	OpSS
	OpSO
	OpSV2
	OpSV3
)

// Integer arithmetic. A = dest, B and C operands per suffix.
const (
	OpAddRR Opcode = OpSV3 + 1 + iota
	OpAddRK
	OpSubRR
	OpSubRK
	OpSubKR
	OpMulRR
	OpMulRK
	OpDivRR
	OpDivRK
	OpDivKR
	OpDivURR
	OpDivURK
	OpDivUKR
	OpModRR
	OpModRK
	OpModKR
	OpModURR
	OpModURK
	OpModUKR
	OpAndRR
	OpAndRK
	OpOrRR
	OpOrRK
	OpXorRR
	OpXorRK
	OpNeg // A = dest, B = src
	OpNot
	OpSllRR
	OpSllRI
	OpSllKR
	OpSraRR
	OpSraRI
	OpSraKR
	OpSrlRR
	OpSrlRI
	OpSrlKR
)

// Float arithmetic
const (
	OpAddFRR Opcode = OpSrlKR + 1 + iota
	OpAddFRK
	OpSubFRR
	OpSubFRK
	OpSubFKR
	OpMulFRR
	OpMulFRK
	OpDivFRR
	OpDivFRK
	OpDivFKR
	OpModFRR
	OpModFRK
	OpModFKR
	OpPowRR
	OpPowRK
	OpPowKR
	OpNegF
	OpFlop // A = dest, B = src, C = Flop* selector
)

// Vector arithmetic (all operands in float registers)
const (
	OpAddV2 Opcode = OpFlop + 1 + iota
	OpAddV3
	OpSubV2
	OpSubV3
	OpMulVF2RR
	OpMulVF2RK
	OpMulVF3RR
	OpMulVF3RK
	OpDivVF2RR
	OpDivVF2RK
	OpDivVF3RR
	OpDivVF3RK
	OpLenV2 // A = dest (scalar), B = vector start
	OpLenV3
	OpUnitV2
	OpUnitV3
	OpNegV2
	OpNegV3
)

// Pointer arithmetic and strings
const (
	OpAddARR Opcode = OpNegV3 + 1 + iota // pointer + byte offset
	OpAddARK
	OpConcat // A = dest, B, C string registers
	OpCast   // A = dest, B = src, C = Cast* selector
)

// Numeric intrinsics
const (
	OpMinRR Opcode = OpCast + 1 + iota
	OpMinRK
	OpMaxRR
	OpMaxRK
	OpMinFRR
	OpMinFRK
	OpMaxFRR
	OpMaxFRK
	OpATan2 // A = dest, B = y, C = x; result in degrees
)

// Comparisons and control flow. Conditional instructions decide
// whether the immediately following instruction (always a jump)
// executes: it runs when the comparison outcome equals the CmpCheck
// expectation encoded in A, and is skipped otherwise.
const (
	OpCmpI Opcode = OpATan2 + 1 + iota // A = Cmp* flags, B, C operands
	OpCmpU
	OpCmpF
	OpCmpS
	OpCmpA
	OpCmpV2
	OpCmpV3
	OpTest  // execute next when reg A == immediate B
	OpTestN // execute next when reg A == -B
	OpJmp   // A = target instruction index
	OpBound // abort when reg A >= immediate B (unsigned)
)

// Calls and returns
const (
	OpParam  Opcode = OpBound + 1 + iota // A = encoded reg class, B = register or constant index
	OpParamI                             // A = small int immediate
	OpCallK                              // A = address constant of callee, B = arg count, C = result count
	OpResult                             // A = encoded reg class, B = destination register
	OpTailK                              // A = address constant of callee, B = arg count
	OpRet                                // A = return slot | RetFinal, B = encoded reg class or RegEncNil, C = register or constant index
)

// Comparison flag bits for the Cmp* opcodes (operand field A).
const (
	CmpEQ     = 0      // equality (default method)
	CmpLT     = 1      // less-than
	CmpLE     = 2      // less-or-equal
	CmpCheck  = 1 << 2 // expect the negated outcome
	CmpApprox = 1 << 3 // epsilon / case-insensitive equality
	CmpBK     = 1 << 4 // operand B is a constant index
	CmpCK     = 1 << 5 // operand C is a constant index
)

// CmpMethod extracts the comparison method bits from Cmp* flags.
func CmpMethod(flags int) int { return flags & 3 }

// Cast selectors for OpCast.
const (
	CastI2F = iota
	CastU2F
	CastF2I
	CastF2U
	CastI2S
	CastU2S
	CastF2S
	CastV22S
	CastV32S
	CastP2S
	CastN2S
	CastS2N
	CastSo2S
	CastS2So
	CastCo2S
	CastS2Co
	CastSID2S
	CastTID2S
	CastI2B
	CastF2B
	CastA2B
	CastS2B
)

// Flop selectors for OpFlop (single-argument float functions). The
// *Deg variants convert between degrees and radians around the
// underlying function.
const (
	FlopExp = iota
	FlopLog
	FlopLog10
	FlopSqrt
	FlopCeil
	FlopFloor
	FlopRound
	FlopACos
	FlopASin
	FlopATan
	FlopCos
	FlopSin
	FlopTan
	FlopACosDeg
	FlopASinDeg
	FlopATanDeg
	FlopCosDeg
	FlopSinDeg
	FlopTanDeg
	FlopFabs
)

// Register class encodings used by OpParam, OpResult and OpRet.
const (
	RegEncInt     = 0
	RegEncFloat   = 1
	RegEncString  = 2
	RegEncPointer = 3
	RegEncKonst   = 1 << 2 // operand indexes a constant pool
	RegEncNil     = 1 << 3 // void (OpRet only)
)

// RetFinal marks the last OpRet of a function (operand field A).
const RetFinal = 1 << 7

var opNames = map[Opcode]string{
	OpNop: "nop", OpLI: "li", OpLK: "lk", OpLKF: "lkf", OpLKS: "lks", OpLKP: "lkp",
	OpMove: "move", OpMoveF: "movef", OpMoveS: "moves", OpMoveA: "movea",
	OpMoveV2: "movev2", OpMoveV3: "movev3",
	OpLB: "lb", OpLBU: "lbu", OpLH: "lh", OpLHU: "lhu", OpLW: "lw", OpLF: "lf",
	OpLS: "ls", OpLO: "lo", OpLV2: "lv2", OpLV3: "lv3",
	OpSB: "sb", OpSH: "sh", OpSW: "sw", OpSF: "sf", OpSS: "ss", OpSO: "so",
	OpSV2: "sv2", OpSV3: "sv3",
	OpAddRR: "add_rr", OpAddRK: "add_rk", OpSubRR: "sub_rr", OpSubRK: "sub_rk", OpSubKR: "sub_kr",
	OpMulRR: "mul_rr", OpMulRK: "mul_rk",
	OpDivRR: "div_rr", OpDivRK: "div_rk", OpDivKR: "div_kr",
	OpDivURR: "divu_rr", OpDivURK: "divu_rk", OpDivUKR: "divu_kr",
	OpModRR: "mod_rr", OpModRK: "mod_rk", OpModKR: "mod_kr",
	OpModURR: "modu_rr", OpModURK: "modu_rk", OpModUKR: "modu_kr",
	OpAndRR: "and_rr", OpAndRK: "and_rk", OpOrRR: "or_rr", OpOrRK: "or_rk",
	OpXorRR: "xor_rr", OpXorRK: "xor_rk", OpNeg: "neg", OpNot: "not",
	OpSllRR: "sll_rr", OpSllRI: "sll_ri", OpSllKR: "sll_kr",
	OpSraRR: "sra_rr", OpSraRI: "sra_ri", OpSraKR: "sra_kr",
	OpSrlRR: "srl_rr", OpSrlRI: "srl_ri", OpSrlKR: "srl_kr",
	OpAddFRR: "addf_rr", OpAddFRK: "addf_rk",
	OpSubFRR: "subf_rr", OpSubFRK: "subf_rk", OpSubFKR: "subf_kr",
	OpMulFRR: "mulf_rr", OpMulFRK: "mulf_rk",
	OpDivFRR: "divf_rr", OpDivFRK: "divf_rk", OpDivFKR: "divf_kr",
	OpModFRR: "modf_rr", OpModFRK: "modf_rk", OpModFKR: "modf_kr",
	OpPowRR: "pow_rr", OpPowRK: "pow_rk", OpPowKR: "pow_kr",
	OpNegF: "negf", OpFlop: "flop",
	OpAddV2: "addv2", OpAddV3: "addv3", OpSubV2: "subv2", OpSubV3: "subv3",
	OpMulVF2RR: "mulvf2_rr", OpMulVF2RK: "mulvf2_rk",
	OpMulVF3RR: "mulvf3_rr", OpMulVF3RK: "mulvf3_rk",
	OpDivVF2RR: "divvf2_rr", OpDivVF2RK: "divvf2_rk",
	OpDivVF3RR: "divvf3_rr", OpDivVF3RK: "divvf3_rk",
	OpLenV2: "lenv2", OpLenV3: "lenv3", OpUnitV2: "unitv2", OpUnitV3: "unitv3",
	OpNegV2: "negv2", OpNegV3: "negv3",
	OpAddARR: "adda_rr", OpAddARK: "adda_rk", OpConcat: "concat", OpCast: "cast",
	OpMinRR: "min_rr", OpMinRK: "min_rk", OpMaxRR: "max_rr", OpMaxRK: "max_rk",
	OpMinFRR: "minf_rr", OpMinFRK: "minf_rk", OpMaxFRR: "maxf_rr", OpMaxFRK: "maxf_rk",
	OpATan2: "atan2",
	OpCmpI: "cmpi", OpCmpU: "cmpu", OpCmpF: "cmpf", OpCmpS: "cmps", OpCmpA: "cmpa",
	OpCmpV2: "cmpv2", OpCmpV3: "cmpv3",
	OpTest: "test", OpTestN: "testn", OpJmp: "jmp", OpBound: "bound",
	OpParam: "param", OpParamI: "parami", OpCallK: "call_k", OpResult: "result",
	OpTailK: "tail_k", OpRet: "ret",
}

func (op Opcode) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "op?"
}
