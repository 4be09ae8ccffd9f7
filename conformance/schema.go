// Package conformance runs the YAML fixture suites under testdata/:
// each fixture describes an expression tree, the dialect to resolve it
// under, and what the compiler must produce, from folded constants and
// diagnostics down to the instructions of the emitted program.
package conformance

// Suite is one YAML fixture file.
type Suite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Tests       []TestCase `yaml:"tests"`
}

// TestCase is a single expression check.
type TestCase struct {
	Name    string      `yaml:"name"`
	Dialect string      `yaml:"dialect,omitempty"` // strict (default) or lax
	Expr    Expr        `yaml:"expr"`
	Expect  Expectation `yaml:"expect"`
}

// Expr is a YAML-encoded expression tree. Exactly one of the leaf
// fields or Op is set; Args carries the operands of an operator node.
type Expr struct {
	Int   *int     `yaml:"int,omitempty"`
	Uint  *int     `yaml:"uint,omitempty"`
	Float *float64 `yaml:"float,omitempty"`
	Str   *string  `yaml:"str,omitempty"`
	Bool  *bool    `yaml:"bool,omitempty"`

	// Local names a register-backed local shared across the test case;
	// Type picks its type (int unless said otherwise).
	Local string `yaml:"local,omitempty"`
	Type  string `yaml:"type,omitempty"`

	Op   string `yaml:"op,omitempty"`
	Args []Expr `yaml:"args,omitempty"`
}

// Expectation says what must come out of resolution and emission.
type Expectation struct {
	// Const is the folded constant the expression must resolve to.
	Const *ConstValue `yaml:"const,omitempty"`

	// Type is the resolved type's name, checked when set.
	Type string `yaml:"type,omitempty"`

	// Error is a substring of a required diagnostic; resolution must
	// fail.
	Error string `yaml:"error,omitempty"`

	// Warnings is the exact number of warnings resolution must leave.
	Warnings *int `yaml:"warnings,omitempty"`

	// Emits lists instruction mnemonics that must appear in the
	// compiled program; Avoids lists ones that must not.
	Emits  []string `yaml:"emits,omitempty"`
	Avoids []string `yaml:"avoids,omitempty"`
}

// ConstValue is a typed constant expectation.
type ConstValue struct {
	Int   *int     `yaml:"int,omitempty"`
	Float *float64 `yaml:"float,omitempty"`
	Str   *string  `yaml:"str,omitempty"`
	Bool  *bool    `yaml:"bool,omitempty"`
}
