// Package diag is the diagnostics sink of the compiler. Nodes report
// here and signal failure through return values; nothing in this
// package panics or returns errors.
package diag

import (
	"fmt"
	"io"
)

// Severity ranks a diagnostic.
type Severity int

const (
	// Fatal stops the resolution of the reporting node.
	Fatal Severity = iota
	// OptError is fatal in the strict dialect but downgraded to a
	// warning (with a best-effort coercion) in the lax dialect.
	// Callers decide; the sink only records what it is told.
	OptError
	Warning
	// Debug is a verbose trace message, not counted anywhere.
	Debug
)

func (s Severity) String() string {
	switch s {
	case Fatal:
		return "error"
	case OptError:
		return "error"
	case Warning:
		return "warning"
	case Debug:
		return "debug"
	default:
		return "unknown"
	}
}

// Pos is a source position for diagnostics.
type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Message is one recorded diagnostic.
type Message struct {
	Severity Severity
	Pos      Pos
	Text     string
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s: %s", m.Pos, m.Severity, m.Text)
}

// Sink accepts diagnostics. Implementations must not panic; callers
// detect failure from resolution return values, not from the sink.
type Sink interface {
	Report(sev Severity, pos Pos, format string, args ...any)
}

// Bag collects diagnostics and counts errors and warnings. One Bag
// belongs to one compilation; it is not safe for concurrent use.
type Bag struct {
	Messages []Message
	errors   int
	warnings int
}

func NewBag() *Bag {
	return &Bag{}
}

func (b *Bag) Report(sev Severity, pos Pos, format string, args ...any) {
	b.Messages = append(b.Messages, Message{Severity: sev, Pos: pos, Text: fmt.Sprintf(format, args...)})
	switch sev {
	case Fatal, OptError:
		b.errors++
	case Warning:
		b.warnings++
	}
}

func (b *Bag) HasErrors() bool { return b.errors > 0 }

func (b *Bag) ErrorCount() int { return b.errors }

func (b *Bag) WarningCount() int { return b.warnings }

// Dump writes every collected message, one per line.
func (b *Bag) Dump(w io.Writer) {
	for _, m := range b.Messages {
		fmt.Fprintln(w, m)
	}
}
