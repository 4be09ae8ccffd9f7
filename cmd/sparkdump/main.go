package main

import (
	"flag"
	"fmt"
	"os"

	"spark/conformance"
	"spark/diag"
)

func main() {
	caseName := flag.String("case", "", "Only dump the named case")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Println("Usage: sparkdump [-case name] <fixture.yaml>")
		fmt.Println("Compiles the expression cases in a fixture file and prints their disassembly.")
		fmt.Println("Example: sparkdump -case 'runtime divide picks the konst-register form' conformance/testdata/arithmetic.yaml")
		os.Exit(1)
	}

	suite, err := conformance.LoadSuite(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", args[0], err)
		os.Exit(1)
	}

	dumped := 0
	for _, tc := range suite.Tests {
		if *caseName != "" && tc.Name != *caseName {
			continue
		}
		dumped++
		fmt.Printf("=== %s: %s\n", suite.Name, tc.Name)
		prog, bag, err := conformance.Compile(tc)
		for _, m := range messages(bag) {
			fmt.Fprintf(os.Stderr, "%s: %s\n", severityName(m.Severity), m.Text)
		}
		if err != nil {
			fmt.Printf("  (does not compile: %v)\n\n", err)
			continue
		}
		prog.Disassemble(os.Stdout)
		fmt.Println()
	}
	if dumped == 0 {
		fmt.Fprintf(os.Stderr, "No case named %q in %s\n", *caseName, args[0])
		fmt.Fprintln(os.Stderr, "Available cases:")
		for _, tc := range suite.Tests {
			fmt.Fprintf(os.Stderr, "  %s\n", tc.Name)
		}
		os.Exit(1)
	}
}

func messages(bag *diag.Bag) []diag.Message {
	if bag == nil {
		return nil
	}
	return bag.Messages
}

func severityName(s diag.Severity) string {
	switch s {
	case diag.Warning:
		return "warning"
	case diag.Debug:
		return "debug"
	default:
		return "error"
	}
}
