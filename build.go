package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"basic10/pkg/compiler"
	"basic10/pkg/utils"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// buildResult is one compiled file.
type buildResult struct {
	Source string
	Output string
	Result *compiler.Result
}

func compileFile(path string, opts compiler.Options) (*compiler.Result, error) {
	src, _, err := utils.ReadSource(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		if tokens, err := compiler.Lex(src); err == nil {
			tracef("%s: lex: %d tokens", path, len(tokens))
		}
	}
	res, err := compiler.Compile(src, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tracef("%s: generate: %d lines, %d warnings", path, res.InstructionCount, len(res.Warnings))
	return res, nil
}

// compileAll compiles files concurrently. Results come back in argument
// order; the first failure cancels the rest.
func compileAll(c *cli.Context, files []string) ([]*compiler.Result, error) {
	opts := compileOptions(c)
	results := make([]*compiler.Result, len(files))
	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := compileFile(file, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func buildCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return errors.New("no source files given")
	}
	out := c.String("output")
	if out != "" && len(files) > 1 {
		return errors.New("-o needs exactly one source file")
	}

	results, err := compileAll(c, files)
	if err != nil {
		return err
	}
	for i, res := range results {
		b := buildResult{Source: files[i], Output: utils.OutputPath(files[i], out, ".ic10"), Result: res}
		if err := utils.WriteOutput(b.Output, []byte(res.Code)); err != nil {
			return err
		}
		if c.Bool("map") {
			data, err := sourceMapJSON(b)
			if err != nil {
				return err
			}
			if err := utils.WriteOutput(b.Output+".map.json", data); err != nil {
				return err
			}
		}
		reportWarnings(c, files[i], res)
		fmt.Fprintf(c.App.Writer, "%s -> %s (%d lines)\n", b.Source, b.Output, res.InstructionCount)
	}
	return nil
}

func checkCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return errors.New("no source files given")
	}
	results, err := compileAll(c, files)
	if err != nil {
		return err
	}
	for i, res := range results {
		reportWarnings(c, files[i], res)
		fmt.Fprintf(c.App.Writer, "%s: ok, %d lines\n", files[i], res.InstructionCount)
	}
	return nil
}

func reportWarnings(c *cli.Context, file string, res *compiler.Result) {
	for _, w := range res.Warnings {
		fmt.Fprintf(c.App.ErrWriter, "%s: warning: %s\n", file, w)
	}
}

type mapSymbol struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Line int    `json:"line"`
}

type mapHash struct {
	Text string `json:"text"`
	Hash int32  `json:"hash"`
}

// sourceMapFile is the --map manifest. Lines pairs 0-based output lines
// with 1-based BASIC lines.
type sourceMapFile struct {
	BuildID      string            `json:"build_id"`
	Source       string            `json:"source"`
	Output       string            `json:"output"`
	Instructions int               `json:"instructions"`
	Lines        [][2]int          `json:"lines"`
	Symbols      []mapSymbol       `json:"symbols"`
	Registers    map[string]string `json:"registers,omitempty"`
	Devices      map[string]string `json:"devices,omitempty"`
	Hashes       []mapHash         `json:"hashes,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
}

func sourceMapJSON(b buildResult) ([]byte, error) {
	res := b.Result
	f := sourceMapFile{
		BuildID:      ulid.Make().String(),
		Source:       b.Source,
		Output:       b.Output,
		Instructions: res.InstructionCount,
		Lines:        res.SourceMap.Entries(),
		Registers:    res.SourceMap.Registers,
		Devices:      res.SourceMap.Devices,
		Warnings:     res.Warnings,
	}
	for _, s := range res.SourceMap.Symbols {
		f.Symbols = append(f.Symbols, mapSymbol{Name: s.Name, Kind: s.Kind.String(), Line: s.Line})
	}
	for _, p := range res.Hashes.Pairs() {
		f.Hashes = append(f.Hashes, mapHash{Text: p.Text, Hash: p.Hash})
	}
	return json.MarshalIndent(f, "", "  ")
}
