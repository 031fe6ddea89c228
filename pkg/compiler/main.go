// Package compiler provides a Basic-10 lexer, parser and code generator
// that targets IC10, the programmable chip language of Stationeers.
//
// Pipeline: BASIC source → Lex → Parse → Generate → asm.Assemble → IC10 text
package compiler
