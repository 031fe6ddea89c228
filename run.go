package main

import (
	"path/filepath"
	"strings"

	"basic10/pkg/chip"
	"basic10/pkg/devices"
	"basic10/pkg/utils"

	"github.com/urfave/cli/v2"
)

// loadProgram returns IC10 text for file: .ic10 files are read as is,
// anything else is compiled.
func loadProgram(c *cli.Context, file string) (string, error) {
	if strings.EqualFold(filepath.Ext(file), ".ic10") {
		code, _, err := utils.ReadSource(file)
		return code, err
	}
	res, err := compileFile(file, compileOptions(c))
	if err != nil {
		return "", err
	}
	reportWarnings(c, file, res)
	return res.Code, nil
}

func loadNetwork(path string) (*devices.Network, error) {
	if path == "" {
		return devices.NewNetwork(), nil
	}
	return devices.LoadNetworkFile(path)
}

func runCommand(c *cli.Context) error {
	file, err := oneFile(c)
	if err != nil {
		return err
	}
	code, err := loadProgram(c, file)
	if err != nil {
		return err
	}
	net, err := loadNetwork(c.String("devices"))
	if err != nil {
		return err
	}
	ch, err := chip.New(code, net)
	if err != nil {
		return err
	}
	if c.Bool("trace") {
		ch.Trace = c.App.ErrWriter
	}
	tracef("%s: running %d lines for up to %d ticks", file, ch.Lines(), c.Int("ticks"))

	runErr := ch.Run(c.Int("ticks"))
	ch.Dump(c.App.Writer)
	return runErr
}
