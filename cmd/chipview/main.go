package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"basic10/pkg/chip"
	"basic10/pkg/compiler"
	"basic10/pkg/devices"
	"basic10/pkg/utils"
)

// framesPerTick paces the chip at game speed: ebiten updates 60 times a
// second and a game tick is half a second.
const framesPerTick = 30

type Game struct {
	chip    *chip.Chip
	monitor *Monitor
	canvas  *ebiten.Image // monitor pixels are uploaded here each frame

	paused bool
	frames int
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	step := inpututil.IsKeyJustPressed(ebiten.KeyN)
	if !g.paused {
		g.frames++
		step = step || g.frames%framesPerTick == 0
	}
	if step && !g.chip.Halted {
		// A failed tick halts the chip; the error is shown on screen.
		_ = g.chip.RunTick()
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.canvas == nil {
		g.canvas = ebiten.NewImage(screenWidth, screenHeight)
	}
	g.canvas.WritePixels(g.monitor.Render().Pix)
	screen.DrawImage(g.canvas, nil)

	help := "space pause  n step"
	if g.paused {
		help = "paused  " + help
	}
	ebitenutil.DebugPrintAt(screen, help, 8, screenHeight-16)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// loadCode compiles BASIC files and reads .ic10 files as they are.
func loadCode(path string) (string, error) {
	src, fullPath, err := utils.ReadSource(path)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(fullPath), ".ic10") {
		return src, nil
	}
	res, err := compiler.Compile(src, compiler.Options{})
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range res.Warnings {
		log.Printf("%s: warning: %s", path, w)
	}
	return res.Code, nil
}

func main() {
	devicesPath := flag.String("devices", "", "JSON device network to wire to the chip")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: chipview [-devices net.json] program.bas|program.ic10")
		os.Exit(2)
	}

	code, err := loadCode(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load program: %v", err)
	}
	net := devices.NewNetwork()
	if *devicesPath != "" {
		if net, err = devices.LoadNetworkFile(*devicesPath); err != nil {
			log.Fatalf("Failed to load devices: %v", err)
		}
	}
	c, err := chip.New(code, net)
	if err != nil {
		log.Fatalf("Failed to load IC10: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth*2, screenHeight*2)
	ebiten.SetWindowTitle("Basic-10 chip view: " + filepath.Base(flag.Arg(0)))

	game := &Game{chip: c, monitor: NewMonitor(c, code)}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
