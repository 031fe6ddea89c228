package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"basic10/pkg/compiler"
	"basic10/pkg/ic10"
	"basic10/pkg/utils"

	"github.com/alecthomas/repr"
	"github.com/urfave/cli/v2"
)

var verbose bool

// tracef logs a pipeline stage when --verbose is on.
func tracef(format string, args ...interface{}) {
	if verbose {
		log.Printf(format, args...)
	}
}

func compileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "preserve-comments",
			Usage:   "copy # comments into the output",
			EnvVars: []string{"BASIC10_PRESERVE_COMMENTS"},
		},
		&cli.BoolFlag{
			Name:    "line-comments",
			Usage:   "tag every instruction with the BASIC line it came from",
			EnvVars: []string{"BASIC10_LINE_COMMENTS"},
		},
		&cli.StringFlag{
			Name:    "author",
			Usage:   "name written into the signature comment",
			Value:   compiler.DefaultAuthor,
			EnvVars: []string{"BASIC10_AUTHOR"},
		},
	}
}

func compileOptions(c *cli.Context) compiler.Options {
	return compiler.Options{
		PreserveComments:       c.Bool("preserve-comments"),
		EmitSourceLineComments: c.Bool("line-comments"),
		Author:                 c.String("author"),
	}
}

func oneFile(c *cli.Context) (string, error) {
	if c.Args().Len() > 1 {
		return "", errors.New("too many arguments, this command takes one file")
	}
	file := c.Args().First()
	if file == "" {
		return "", errors.New("source file not provided")
	}
	return file, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "basic10",
		Usage: "compile Basic-10 programs into IC10 for Stationeers",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "verbose",
				Usage:       "log each compiler stage",
				Destination: &verbose,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "compile source files to .ic10",
				ArgsUsage: "files...",
				Flags: append(compileFlags(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "output file, only with a single source file",
					},
					&cli.BoolFlag{
						Name:  "map",
						Usage: "write a JSON source map next to each output",
					},
				),
				Action: buildCommand,
			},
			{
				Name:      "check",
				Usage:     "compile source files and report warnings without writing output",
				ArgsUsage: "files...",
				Flags:     compileFlags(),
				Action:    checkCommand,
			},
			{
				Name:      "run",
				Usage:     "compile a file (or load an .ic10 file) and run it on the simulator",
				ArgsUsage: "file",
				Flags: append(compileFlags(),
					&cli.StringFlag{
						Name:  "devices",
						Usage: "JSON device network to wire to the chip",
					},
					&cli.IntFlag{
						Name:  "ticks",
						Usage: "game ticks to run",
						Value: 100,
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "print every executed instruction",
					},
				),
				Action: runCommand,
			},
			{
				Name:      "hash",
				Usage:     "print the IC10 hash of each argument",
				ArgsUsage: "strings...",
				Action: func(c *cli.Context) error {
					if c.Args().Len() == 0 {
						return errors.New("nothing to hash")
					}
					for _, s := range c.Args().Slice() {
						fmt.Fprintf(c.App.Writer, "%d\t%s\n", ic10.Hash(s), s)
					}
					return nil
				},
			},
			{
				Name:      "tokens",
				Usage:     "dump the token stream of a file",
				ArgsUsage: "file",
				Action: func(c *cli.Context) error {
					file, err := oneFile(c)
					if err != nil {
						return err
					}
					src, _, err := utils.ReadSource(file)
					if err != nil {
						return err
					}
					tokens, err := compiler.Lex(src)
					if err != nil {
						return fmt.Errorf("%s: %w", file, err)
					}
					repr.New(c.App.Writer, repr.Indent("  ")).Println(tokens)
					return nil
				},
			},
			{
				Name:      "ast",
				Usage:     "dump the syntax tree of a file",
				ArgsUsage: "file",
				Action: func(c *cli.Context) error {
					file, err := oneFile(c)
					if err != nil {
						return err
					}
					src, _, err := utils.ReadSource(file)
					if err != nil {
						return err
					}
					tokens, err := compiler.Lex(src)
					if err != nil {
						return fmt.Errorf("%s: %w", file, err)
					}
					prog, err := compiler.Parse(tokens, src)
					if err != nil {
						return fmt.Errorf("%s: %w", file, err)
					}
					repr.New(c.App.Writer, repr.Indent("  ")).Println(prog)
					return nil
				},
			},
		},
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("basic10: ")

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
