package conformance

import (
	"fmt"
	"strings"

	"spark/builtins"
	"spark/compiler"
	"spark/diag"
	"spark/sym"
	"spark/types"
	"spark/vm"
)

func bagMessages(bag *diag.Bag) []diag.Message {
	if bag == nil {
		return nil
	}
	return bag.Messages
}

// Result is the outcome of one fixture case.
type Result struct {
	Case   LoadedCase
	Passed bool
	Err    error
}

// Run checks one case: the expression is built, resolved under the
// requested dialect, compared against the expectations, and compiled
// to instructions when the case asks for emission checks.
func Run(c LoadedCase) Result {
	err := run(c)
	return Result{Case: c, Passed: err == nil, Err: err}
}

func run(c LoadedCase) error {
	bag := diag.NewBag()
	ctx := &compiler.Context{Diag: bag, Builtins: builtins.Standard(), Lax: c.Test.Dialect == "lax"}

	tb := &treeBuilder{}
	node, err := tb.build(c.Test.Expr)
	if err != nil {
		return err
	}
	resolved := node.Resolve(ctx)

	expect := c.Test.Expect
	if expect.Error != "" {
		if resolved != nil {
			return fmt.Errorf("expected error %q, resolution succeeded", expect.Error)
		}
		for _, m := range bag.Messages {
			if m.Severity != diag.Warning && m.Severity != diag.Debug && strings.Contains(m.Text, expect.Error) {
				return nil
			}
		}
		return fmt.Errorf("expected error %q, got %v", expect.Error, bag.Messages)
	}
	if resolved == nil {
		return fmt.Errorf("resolution failed: %v", bag.Messages)
	}
	if expect.Warnings != nil && bag.WarningCount() != *expect.Warnings {
		return fmt.Errorf("got %d warnings, want %d: %v", bag.WarningCount(), *expect.Warnings, bag.Messages)
	}
	if expect.Type != "" && resolved.Type().String() != expect.Type {
		return fmt.Errorf("resolved type %s, want %s", resolved.Type(), expect.Type)
	}
	if expect.Const != nil {
		if err := checkConst(resolved, expect.Const); err != nil {
			return err
		}
	}
	if len(expect.Emits) == 0 && len(expect.Avoids) == 0 {
		return nil
	}
	return checkEmission(c.Test)
}

func checkConst(n compiler.Node, want *ConstValue) error {
	if !n.Constant() {
		return fmt.Errorf("did not fold to a constant")
	}
	v := n.(*compiler.Constant).Value
	switch {
	case want.Int != nil:
		if got := v.GetInt(); got != *want.Int {
			return fmt.Errorf("folded to %d, want %d", got, *want.Int)
		}
	case want.Float != nil:
		if got := v.GetFloat(); got != *want.Float {
			return fmt.Errorf("folded to %v, want %v", got, *want.Float)
		}
	case want.Str != nil:
		if got := v.GetString(); got != *want.Str {
			return fmt.Errorf("folded to %q, want %q", got, *want.Str)
		}
	case want.Bool != nil:
		if got := v.GetBool(); got != *want.Bool {
			return fmt.Errorf("folded to %v, want %v", got, *want.Bool)
		}
	default:
		return fmt.Errorf("const expectation has no value")
	}
	return nil
}

// Compile builds `return <expr>` around the case's expression tree and
// compiles it to a program. Locals named by the expression become
// declarations ahead of the return.
func Compile(tc TestCase) (*vm.Program, *diag.Bag, error) {
	tb := &treeBuilder{}
	node, err := tb.build(tc.Expr)
	if err != nil {
		return nil, nil, err
	}
	body := compiler.NewCompoundStatement(compiler.Pos{})
	for _, decl := range tb.decls {
		body.Add(decl)
	}
	body.Add(compiler.NewReturnStatement(compiler.Pos{}, node))

	var opts []compiler.Option
	if tc.Dialect == "lax" {
		opts = append(opts, compiler.WithLaxDialect())
	}
	return compiler.CompileBody(&sym.Function{Name: tc.Name}, body, opts...)
}

// checkEmission compiles a fresh copy of the tree and checks the
// required mnemonics against the emitted instructions. Matching the
// opcodes directly keeps the function-name header and the constant
// pools out of the comparison.
func checkEmission(tc TestCase) error {
	prog, bag, err := Compile(tc)
	if err != nil {
		return fmt.Errorf("compile: %v (%v)", err, bagMessages(bag))
	}
	present := make(map[string]bool, len(prog.Code))
	for _, ins := range prog.Code {
		present[ins.Op.String()] = true
	}
	for _, mn := range tc.Expect.Emits {
		if !present[mn] {
			return fmt.Errorf("missing instruction %q in:\n%s", mn, listing(prog))
		}
	}
	for _, mn := range tc.Expect.Avoids {
		if present[mn] {
			return fmt.Errorf("forbidden instruction %q present in:\n%s", mn, listing(prog))
		}
	}
	return nil
}

func listing(prog *vm.Program) string {
	var sb strings.Builder
	prog.Disassemble(&sb)
	return sb.String()
}

// treeBuilder turns the YAML expression schema into compiler nodes,
// keeping one declaration per named local.
type treeBuilder struct {
	locals map[string]*compiler.LocalVariableDeclaration
	decls  []*compiler.LocalVariableDeclaration
}

var typeNames = map[string]*types.Type{
	"":       types.TypeSInt32,
	"int":    types.TypeSInt32,
	"uint":   types.TypeUInt32,
	"double": types.TypeFloat64,
	"bool":   types.TypeBool,
	"string": types.TypeString,
	"name":   types.TypeName,
}

func (tb *treeBuilder) local(name, typeName string) (compiler.Node, error) {
	t, ok := typeNames[typeName]
	if !ok {
		return nil, fmt.Errorf("unknown local type %q", typeName)
	}
	if tb.locals == nil {
		tb.locals = make(map[string]*compiler.LocalVariableDeclaration)
	}
	decl := tb.locals[name]
	if decl == nil {
		decl = compiler.NewLocalVariableDeclaration(compiler.Pos{}, name, t, nil)
		tb.locals[name] = decl
		tb.decls = append(tb.decls, decl)
	}
	return compiler.NewLocalVariable(compiler.Pos{}, decl), nil
}

func (tb *treeBuilder) build(e Expr) (compiler.Node, error) {
	pos := compiler.Pos{}
	switch {
	case e.Int != nil:
		return compiler.NewIntConstant(pos, types.TypeSInt32, *e.Int), nil
	case e.Uint != nil:
		return compiler.NewIntConstant(pos, types.TypeUInt32, *e.Uint), nil
	case e.Float != nil:
		return compiler.NewFloatConstant(pos, *e.Float), nil
	case e.Str != nil:
		return compiler.NewStringConstant(pos, *e.Str), nil
	case e.Bool != nil:
		return compiler.NewBoolConstant(pos, *e.Bool), nil
	case e.Local != "":
		return tb.local(e.Local, e.Type)
	case e.Op == "":
		return nil, fmt.Errorf("expression node has neither a value nor an op")
	}

	args := make([]compiler.Node, len(e.Args))
	for i := range e.Args {
		a, err := tb.build(e.Args[i])
		if err != nil {
			return nil, err
		}
		args[i] = a
	}
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("op %q takes %d operands, got %d", e.Op, n, len(args))
		}
		return nil
	}

	switch e.Op {
	case "add", "sub":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewAddSub(pos, args[0], args[1], e.Op == "sub"), nil
	case "mul", "div", "mod":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewMulDiv(pos, args[0], args[1], map[string]byte{"mul": '*', "div": '/', "mod": '%'}[e.Op]), nil
	case "pow":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewPow(pos, args[0], args[1]), nil
	case "band", "bor", "bxor":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewBitOp(pos, args[0], args[1], map[string]byte{"band": '&', "bor": '|', "bxor": '^'}[e.Op]), nil
	case "shl", "shr", "ushr":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewShift(pos, args[0], args[1], map[string]string{"shl": "<<", "shr": ">>", "ushr": ">>>"}[e.Op]), nil
	case "concat":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewConcat(pos, args[0], args[1]), nil
	case "lt", "le", "gt", "ge":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewCompareRel(pos, args[0], args[1], map[string]string{"lt": "<", "le": "<=", "gt": ">", "ge": ">="}[e.Op]), nil
	case "eq", "ne", "approx":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewCompareEq(pos, args[0], args[1], map[string]string{"eq": "==", "ne": "!=", "approx": "~=="}[e.Op]), nil
	case "spaceship":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewLtGtEq(pos, args[0], args[1]), nil
	case "and", "or":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewBinaryLogical(pos, args[0], args[1], e.Op == "and"), nil
	case "cond":
		if err := need(3); err != nil {
			return nil, err
		}
		return compiler.NewConditional(args[0], args[1], args[2]), nil
	case "neg":
		if err := need(1); err != nil {
			return nil, err
		}
		return compiler.NewMinusSign(args[0]), nil
	case "bnot":
		if err := need(1); err != nil {
			return nil, err
		}
		return compiler.NewUnaryNotBitwise(args[0]), nil
	case "not":
		if err := need(1); err != nil {
			return nil, err
		}
		return compiler.NewUnaryNotBoolean(args[0]), nil
	case "abs":
		if err := need(1); err != nil {
			return nil, err
		}
		return compiler.NewAbs(pos, args[0]), nil
	case "min", "max":
		return compiler.NewMinMax(pos, args, e.Op == "max"), nil
	case "atan2":
		if err := need(2); err != nil {
			return nil, err
		}
		return compiler.NewATan2(pos, args[0], args[1]), nil
	case "int":
		if err := need(1); err != nil {
			return nil, err
		}
		return compiler.NewIntCast(args[0], types.TypeSInt32, true), nil
	case "toint":
		// Implicit integer context, dialect sensitive.
		if err := need(1); err != nil {
			return nil, err
		}
		return compiler.NewIntCast(args[0], types.TypeSInt32, false), nil
	case "double":
		if err := need(1); err != nil {
			return nil, err
		}
		return compiler.NewFloatCast(args[0]), nil
	case "bool":
		if err := need(1); err != nil {
			return nil, err
		}
		return compiler.NewBoolCast(args[0]), nil
	case "string":
		if err := need(1); err != nil {
			return nil, err
		}
		return compiler.NewStringCast(args[0]), nil
	default:
		return nil, fmt.Errorf("unknown op %q", e.Op)
	}
}
