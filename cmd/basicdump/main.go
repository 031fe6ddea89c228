package main

import (
	"fmt"
	"os"
	"strings"

	"basic10/pkg/compiler"
	"basic10/pkg/ic10"

	"github.com/alecthomas/repr"
)

const testSource = `VAR x = 10
VAR y = 20
PRINT x + y
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse
	prog, err := compiler.Parse(tokens, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	fmt.Println("AST")
	repr.New(os.Stdout, repr.Indent("  ")).Println(prog)
	fmt.Println()

	// Generate and assemble
	res, err := compiler.Compile(src, compiler.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}

	fmt.Printf("IC10 (%d lines)\n", res.InstructionCount)
	for i, line := range strings.Split(strings.TrimSuffix(res.Code, "\n"), "\n") {
		if src, ok := res.SourceMap.SourceLine(i); ok {
			fmt.Printf("%3d  %-32s ; line %d\n", i, line, src)
		} else {
			fmt.Printf("%3d  %s\n", i, line)
		}
	}
	fmt.Println()

	for _, w := range res.Warnings {
		fmt.Println("warning:", w)
	}
	fmt.Print(res.Symbols)
	if pairs := res.Hashes.Pairs(); len(pairs) > 0 {
		fmt.Println("Hashes:")
		for _, p := range pairs {
			fmt.Printf("  %-12s %s\n", ic10.FormatNumber(float64(p.Hash)), p.Text)
		}
	}
}
