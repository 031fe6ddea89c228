package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"basic10/pkg/chip"
	"basic10/pkg/grid"
	"basic10/pkg/ic10"
)

const (
	screenWidth  = 640
	screenHeight = 480
	lineHeight   = 14
	listingRows  = 32
)

var (
	background = color.RGBA{0x10, 0x14, 0x18, 0xff}
	textColor  = color.RGBA{0xc8, 0xd0, 0xd8, 0xff}
	pcColor    = color.RGBA{0xff, 0xc0, 0x40, 0xff}
	dimColor   = color.RGBA{0x70, 0x78, 0x80, 0xff}
	errColor   = color.RGBA{0xff, 0x50, 0x50, 0xff}
)

var (
	regCells    = grid.Cell{OriginX: 330, OriginY: 40, Width: 76, Height: lineHeight, Cols: 4}
	deviceCells = grid.Cell{Width: 152, Height: 6 * lineHeight, Cols: 2}
)

// Monitor draws a chip's program, registers and devices into an RGBA
// canvas.
type Monitor struct {
	chip   *chip.Chip
	lines  []string
	canvas *image.RGBA
	face   font.Face
}

func NewMonitor(c *chip.Chip, code string) *Monitor {
	return &Monitor{
		chip:   c,
		lines:  strings.Split(strings.TrimSuffix(code, "\n"), "\n"),
		canvas: image.NewRGBA(image.Rect(0, 0, screenWidth, screenHeight)),
		face:   basicfont.Face7x13,
	}
}

func (m *Monitor) text(x, y int, c color.Color, s string) {
	d := &font.Drawer{
		Dst:  m.canvas,
		Src:  image.NewUniform(c),
		Face: m.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// listingRow is the canvas baseline of a listing row.
func listingRow(row int) int { return 20 + row*lineHeight }

// firstListed is the first program line shown, keeping the pc near the
// middle.
func (m *Monitor) firstListed() int {
	first := m.chip.PC - listingRows/2
	if last := len(m.lines) - listingRows; first > last {
		first = last
	}
	if first < 0 {
		first = 0
	}
	return first
}

// Render redraws the whole canvas.
func (m *Monitor) Render() *image.RGBA {
	draw.Draw(m.canvas, m.canvas.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	first := m.firstListed()
	for row := 0; row < listingRows && first+row < len(m.lines); row++ {
		n := first + row
		c := color.Color(textColor)
		marker := " "
		if n == m.chip.PC && !m.chip.Halted {
			c, marker = pcColor, ">"
		}
		m.text(8, listingRow(row), c, truncate(fmt.Sprintf("%s%3d %s", marker, n, m.lines[n]), 44))
	}

	status := fmt.Sprintf("tick %d  pc %d", m.chip.Ticks, m.chip.PC)
	statusColor := color.Color(textColor)
	switch {
	case m.chip.Err != nil:
		status, statusColor = m.chip.Err.Error(), errColor
	case m.chip.Halted:
		status += "  halted"
	}
	m.text(regCells.OriginX, 20, statusColor, status)

	for i := 0; i < ic10.NumRegisters+2; i++ {
		name := ic10.Register(i).String()
		x, y := regCells.At(i)
		c := color.Color(textColor)
		if m.chip.Regs[i] == 0 {
			c = dimColor
		}
		m.text(x, y+lineHeight, c, fmt.Sprintf("%s %s", name, ic10.FormatNumber(m.chip.Regs[i])))
	}

	cards := deviceCells
	cards.OriginX = regCells.OriginX
	cards.OriginY = regCells.OriginY + (regCells.Rows(ic10.NumRegisters+2)+1)*lineHeight
	for i, d := range m.chip.Net.Devices {
		x, y := cards.At(i)
		if y+cards.Height > screenHeight {
			break
		}
		title := d.Prefab
		if d.Name != "" {
			title = d.Name
		}
		m.text(x, y+lineHeight, pcColor, truncate(title, 20))
		row := 2
		for _, k := range sortedKeys(d.Logic) {
			if row > 5 {
				break
			}
			m.text(x, y+row*lineHeight, textColor, truncate(fmt.Sprintf("%s %s", k, ic10.FormatNumber(d.Logic[k])), 20))
			row++
		}
	}
	return m.canvas
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
