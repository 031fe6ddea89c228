// Package chip simulates an IC10 chip running in a circuit housing.
package chip

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"

	"basic10/pkg/asm"
	"basic10/pkg/devices"
	"basic10/pkg/ic10"
)

const (
	// LinesPerTick is how many lines a chip executes before the game moves
	// on to the next tick.
	LinesPerTick = 128
	// TickSeconds is the length of one game tick.
	TickSeconds = 0.5

	regSP = int(ic10.SP)
	regRA = int(ic10.RA)
)

// RuntimeError stops the chip. Line is the 0-based program line.
type RuntimeError struct {
	Line int
	Op   string
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Op, e.Msg)
}

type Chip struct {
	// Regs holds r0..r15 followed by sp and ra.
	Regs [ic10.NumRegisters + 2]float64
	PC   int

	Halted bool
	Err    error
	Ticks  int
	Steps  int

	Net  *devices.Network
	Rand *rand.Rand

	// Trace, when set, receives every executed instruction.
	Trace io.Writer

	src     *asm.Source
	aliases map[string]string
	defines map[string]float64
	sleep   int
	yielded bool
}

// New loads IC10 text. A nil network gets a bare housing.
func New(code string, net *devices.Network) (*Chip, error) {
	src, err := asm.Parse(code)
	if err != nil {
		return nil, err
	}
	if net == nil {
		net = devices.NewNetwork()
	}
	return &Chip{
		Net:     net,
		Rand:    rand.New(rand.NewSource(1)),
		src:     src,
		aliases: make(map[string]string),
		defines: make(map[string]float64),
	}, nil
}

// Lines is the length of the loaded program in lines.
func (c *Chip) Lines() int { return c.src.Lines }

// Reg returns r0..r15 by index.
func (c *Chip) Reg(i int) float64 { return c.Regs[i] }

func (c *Chip) SP() float64 { return c.Regs[regSP] }
func (c *Chip) RA() float64 { return c.Regs[regRA] }

// Stack is the housing's stack memory, shared with get/put on db.
func (c *Chip) Stack() []float64 { return c.Net.Housing.Memory }

// Step executes one line. Lines without an instruction cost a step and do
// nothing. Running past the last line halts the chip.
func (c *Chip) Step() error {
	if c.Halted {
		return c.Err
	}
	if c.PC < 0 || c.PC >= c.src.Lines {
		c.Halted = true
		return nil
	}
	c.Steps++
	in, ok := c.src.Instructions[c.PC]
	if !ok {
		c.PC++
		return nil
	}
	if c.Trace != nil {
		fmt.Fprintf(c.Trace, "%3d: %s %v\n", in.Line, in.Op, in.Args)
	}
	next, err := c.exec(in)
	if err != nil {
		c.Halted = true
		c.Err = &RuntimeError{Line: in.Line, Op: in.Op, Msg: err.Error()}
		return c.Err
	}
	c.PC = next
	return nil
}

// RunTick runs one game tick: up to LinesPerTick lines, stopping early at
// yield, sleep or halt.
func (c *Chip) RunTick() error {
	if c.Halted {
		return c.Err
	}
	c.Ticks++
	if c.sleep > 0 {
		c.sleep--
		return nil
	}
	for i := 0; i < LinesPerTick && !c.Halted; i++ {
		c.yielded = false
		if err := c.Step(); err != nil {
			return err
		}
		if c.yielded || c.sleep > 0 {
			break
		}
	}
	return nil
}

// Run runs up to maxTicks ticks or until the chip halts.
func (c *Chip) Run(maxTicks int) error {
	for i := 0; i < maxTicks && !c.Halted; i++ {
		if err := c.RunTick(); err != nil {
			return err
		}
	}
	return nil
}

// RunUntilHalt runs until the chip halts, failing if that takes more than
// maxTicks ticks.
func (c *Chip) RunUntilHalt(maxTicks int) error {
	if err := c.Run(maxTicks); err != nil {
		return err
	}
	if !c.Halted {
		return fmt.Errorf("still running after %d ticks", maxTicks)
	}
	return nil
}

// State is the JSON snapshot of the chip's control state. Device and stack
// contents live in the network.
type State struct {
	Regs    [ic10.NumRegisters + 2]float64 `json:"regs"`
	PC      int                            `json:"pc"`
	Halted  bool                           `json:"halted"`
	Ticks   int                            `json:"ticks"`
	Steps   int                            `json:"steps"`
	Sleep   int                            `json:"sleep"`
	Aliases map[string]string              `json:"aliases,omitempty"`
	Defines map[string]float64             `json:"defines,omitempty"`
}

func (c *Chip) Snapshot() State {
	return State{
		Regs:    c.Regs,
		PC:      c.PC,
		Halted:  c.Halted,
		Ticks:   c.Ticks,
		Steps:   c.Steps,
		Sleep:   c.sleep,
		Aliases: c.aliases,
		Defines: c.defines,
	}
}

func (c *Chip) Restore(s State) {
	c.Regs = s.Regs
	c.PC = s.PC
	c.Halted = s.Halted
	c.Ticks = s.Ticks
	c.Steps = s.Steps
	c.sleep = s.Sleep
	c.aliases = make(map[string]string)
	for k, v := range s.Aliases {
		c.aliases[k] = v
	}
	c.defines = make(map[string]float64)
	for k, v := range s.Defines {
		c.defines[k] = v
	}
}

// SaveState serializes the control state.
func (c *Chip) SaveState() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}

// LoadState restores a state written by SaveState.
func (c *Chip) LoadState(data []byte) error {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	c.Restore(s)
	return nil
}
