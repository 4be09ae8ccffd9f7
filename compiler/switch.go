package compiler

import (
	"spark/types"
	"spark/vm"
)

// CaseStatement is a case or default label inside a switch. A nil
// Value marks the default label.
type CaseStatement struct {
	base
	Value Node

	site int
}

func NewCaseStatement(pos Pos, value Node) *CaseStatement {
	n := &CaseStatement{base: newBase(pos), Value: value, site: -1}
	n.valueType = types.TypeVoid
	return n
}

func (n *CaseStatement) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Value == nil {
		return n
	}
	if n.Value = n.Value.Resolve(ctx); n.Value == nil {
		return nil
	}
	if !n.Value.Constant() {
		ctx.Error(n.pos, "Case label must be a constant value")
		return nil
	}
	t := n.Value.Type()
	if !t.IsInteger() && t.Kind != types.KindName {
		ctx.Error(n.pos, "Case label must be an integer or name constant")
		return nil
	}
	return n
}

func (n *CaseStatement) Emit(b *vm.Builder) vm.Reg { return vm.Reg{} }

// matchesConditionType rejects a name label on an integer switch and
// the other way around; default labels always pass.
func (n *CaseStatement) matchesConditionType(ctx *Context, cond *types.Type) bool {
	if n.Value == nil {
		return true
	}
	if (cond.Kind == types.KindName) != (n.Value.Type().Kind == types.KindName) {
		ctx.Error(n.pos, "Type mismatch in case statement")
		return false
	}
	return true
}

// SwitchStatement dispatches an integer or name condition over a flat
// list of labels and statements. Falling through a label into the next
// case's statements is the normal control flow; break exits.
type SwitchStatement struct {
	base
	Condition Node
	Content   []Node

	breaks  []*JumpStatement
	reduced bool
}

func NewSwitchStatement(pos Pos, cond Node, content []Node) *SwitchStatement {
	n := &SwitchStatement{base: newBase(pos), Condition: cond, Content: content}
	n.valueType = types.TypeVoid
	return n
}

func (n *SwitchStatement) addBreak(j *JumpStatement) { n.breaks = append(n.breaks, j) }

func (n *SwitchStatement) Resolve(ctx *Context) Node {
	if n.beginResolve() {
		return n
	}
	if n.Condition = n.Condition.Resolve(ctx); n.Condition == nil {
		return nil
	}
	if failed(n.Condition) {
		return nil
	}
	if n.Condition.Type().Kind != types.KindName {
		if n.Condition = NewIntCast(n.Condition, types.TypeSInt32, false).Resolve(ctx); n.Condition == nil {
			return nil
		}
	}

	if n.Condition.Constant() {
		slice, ok := n.selectedSlice(ctx)
		if !ok {
			return nil
		}
		n.Content = slice
		n.reduced = true
	}

	outerBrk := ctx.Breakable
	ctx.Breakable = n
	defer func() { ctx.Breakable = outerBrk }()

	ok := true
	seen := map[int]bool{}
	haveDefault := false
	for i := range n.Content {
		n.Content[i].DiscardResult()
		s := n.Content[i].Resolve(ctx)
		if s == nil {
			ok = false
			continue
		}
		n.Content[i] = s
		if c, isCase := s.(*CaseStatement); isCase && !n.reduced {
			if c.Value == nil {
				if haveDefault {
					ctx.Error(c.pos, "Multiple default labels in one switch")
					ok = false
				}
				haveDefault = true
				continue
			}
			if !c.matchesConditionType(ctx, n.Condition.Type()) {
				ok = false
				continue
			}
			v := constValue(c.Value).GetInt()
			if seen[v] {
				ctx.Error(c.pos, "Duplicate case label %d", v)
				ok = false
			}
			seen[v] = true
		}
	}
	if !ok {
		return nil
	}
	return n
}

// selectedSlice narrows a constant-condition switch to the statements
// between the matching label and the next top-level break. Labels have
// to be folded eagerly here, before the main content pass.
func (n *SwitchStatement) selectedSlice(ctx *Context) ([]Node, bool) {
	want := constValue(n.Condition).GetInt()
	match, def := -1, -1
	for i, s := range n.Content {
		c, isCase := s.(*CaseStatement)
		if !isCase {
			continue
		}
		if c.Value == nil {
			def = i
			continue
		}
		if resolved := c.Resolve(ctx); resolved == nil {
			return nil, false
		}
		if !c.matchesConditionType(ctx, n.Condition.Type()) {
			return nil, false
		}
		if constValue(c.Value).GetInt() == want && match < 0 {
			match = i
		}
	}
	if match < 0 {
		match = def
	}
	if match < 0 {
		return nil, true
	}
	var out []Node
	for _, s := range n.Content[match+1:] {
		if _, isCase := s.(*CaseStatement); isCase {
			continue
		}
		if j, isJump := s.(*JumpStatement); isJump && !j.Continue {
			break
		}
		out = append(out, s)
	}
	return out, true
}

func (n *SwitchStatement) Emit(b *vm.Builder) vm.Reg {
	if !n.reduced {
		n.emitDispatch(b)
	}
	for _, s := range n.Content {
		if c, isCase := s.(*CaseStatement); isCase {
			if c.site >= 0 {
				b.BackpatchToHere(c.site)
			}
			continue
		}
		r := s.Emit(b)
		r.Free(b)
	}
	for _, j := range n.breaks {
		if j.site >= 0 {
			b.BackpatchToHere(j.site)
		}
	}
	return vm.Reg{}
}

// emitDispatch lays down the test table. Values that fit the TEST
// immediate use the compact form; anything wider falls back to a
// constant-pool compare.
func (n *SwitchStatement) emitDispatch(b *vm.Builder) {
	cond := materialize(b, n.Condition.Emit(b))
	cond.Free(b)

	var def *CaseStatement
	for _, s := range n.Content {
		c, isCase := s.(*CaseStatement)
		if !isCase {
			continue
		}
		if c.Value == nil {
			def = c
			continue
		}
		v := constValue(c.Value).GetInt()
		switch {
		case v >= 0 && v <= 0xffff:
			b.Emit(vm.OpTest, cond.Num, v, 0)
		case v < 0 && -v <= 0xffff:
			b.Emit(vm.OpTestN, cond.Num, -v, 0)
		default:
			b.Emit(vm.OpCmpI, vm.CmpEQ|vm.CmpCK, cond.Num, b.IntConst(v))
		}
		c.site = b.EmitJump()
	}

	// No test matched: go to the default label, or past the switch.
	miss := b.EmitJump()
	if def != nil {
		def.site = miss
		return
	}
	n.breaks = append(n.breaks, &JumpStatement{site: miss})
}
