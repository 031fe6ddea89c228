package chip

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"basic10/pkg/devices"
	"basic10/pkg/ic10"
)

// Dump writes a readable summary of the chip and its devices: the program
// counter, every non-zero register and the logic values of each device.
func (c *Chip) Dump(w io.Writer) {
	status := "running"
	switch {
	case c.Err != nil:
		status = "error: " + c.Err.Error()
	case c.Halted:
		status = "halted"
	case c.sleep > 0:
		status = fmt.Sprintf("sleeping %d ticks", c.sleep)
	}
	fmt.Fprintf(w, "tick %d pc %d steps %d (%s)\n", c.Ticks, c.PC, c.Steps, status)

	var regs []string
	for i := 0; i < ic10.NumRegisters; i++ {
		if c.Regs[i] != 0 {
			regs = append(regs, fmt.Sprintf("r%d=%s", i, ic10.FormatNumber(c.Regs[i])))
		}
	}
	regs = append(regs, "sp="+ic10.FormatNumber(c.SP()), "ra="+ic10.FormatNumber(c.RA()))
	fmt.Fprintf(w, "  %s\n", strings.Join(regs, " "))

	pins := make(map[*devices.Device]string)
	for _, p := range ic10.Pins {
		if d, ok := c.Net.Pin(p); ok {
			pins[d] = p
		}
	}
	for _, d := range c.Net.Devices {
		label := pins[d]
		if label == "" {
			label = "id " + ic10.FormatNumber(d.ID)
		}
		fmt.Fprintf(w, "  %-6s %s", label, d.Prefab)
		if d.Name != "" {
			fmt.Fprintf(w, " %q", d.Name)
		}
		keys := make([]string, 0, len(d.Logic))
		for k := range d.Logic {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, " %s=%s", k, ic10.FormatNumber(d.Logic[k]))
		}
		fmt.Fprintln(w)
	}
}
