package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func assertContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("expected output to contain %q, got:\n%s", want, got)
	}
}

// runApp runs the CLI with args and returns what it wrote to stdout and
// stderr.
func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"basic10"}, args...))
	return out.String(), errOut.String(), err
}

// copyProgram copies a file from _programs into a temp dir.
func copyProgram(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("_programs", name))
	if err != nil {
		t.Fatalf("Failed to read program: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildCommand(t *testing.T) {
	t.Setenv("BASIC10_AUTHOR", "Tester")
	dir := t.TempDir()
	src := copyProgram(t, dir, "thermostat.bas")

	out, _, err := runApp(t, "build", "--map", src)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	dst := filepath.Join(dir, "thermostat.ic10")
	assertContains(t, out, "-> "+dst)

	code, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("no output written: %v", err)
	}
	assertContains(t, string(code), "main:\n")
	assertContains(t, string(code), "# Basic-10 By Tester on ")

	data, err := os.ReadFile(dst + ".map.json")
	if err != nil {
		t.Fatalf("no source map written: %v", err)
	}
	var m sourceMapFile
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("bad source map: %v", err)
	}
	if len(m.BuildID) != 26 {
		t.Errorf("build id %q is not a ULID", m.BuildID)
	}
	if m.Source != src || m.Output != dst {
		t.Errorf("map paths = %q, %q", m.Source, m.Output)
	}
	if len(m.Lines) == 0 || m.Lines[0][1] < 1 {
		t.Errorf("map lines = %v", m.Lines)
	}
	if m.Devices["sensor"] != "d0" {
		t.Errorf("map devices = %v", m.Devices)
	}
}

func TestBuildOutputFlag(t *testing.T) {
	dir := t.TempDir()
	src := copyProgram(t, dir, "lights.bas")
	dst := filepath.Join(dir, "out", "chip.txt")

	if _, _, err := runApp(t, "build", "--line-comments", "-o", dst, src); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	code, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, string(code), " # 4\n")

	other := copyProgram(t, dir, "thermostat.bas")
	if _, _, err := runApp(t, "build", "-o", dst, src, other); err == nil {
		t.Error("-o with two files should fail")
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	a := copyProgram(t, dir, "thermostat.bas")
	b := copyProgram(t, dir, "lights.bas")

	out, _, err := runApp(t, "check", a, b)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	assertContains(t, out, a+": ok")
	assertContains(t, out, b+": ok")
	if _, err := os.Stat(filepath.Join(dir, "lights.ic10")); !os.IsNotExist(err) {
		t.Error("check must not write output")
	}

	broken := copyProgram(t, dir, "broken.bas")
	_, _, err = runApp(t, "check", a, broken)
	if err == nil {
		t.Fatal("check should fail on broken.bas")
	}
	assertContains(t, err.Error(), broken)
	assertContains(t, err.Error(), "undeclared variable y")
}

func TestRunCommand(t *testing.T) {
	out, _, err := runApp(t, "run", "--devices", "_programs/room.json", "--ticks", "3", "_programs/thermostat.bas")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	assertContains(t, out, "tick 3")
	assertContains(t, out, "StructureWallHeater On=1")
	assertContains(t, out, "StructureCircuitHousing Setting=280")

	out, _, err = runApp(t, "run", "--devices", "_programs/room.json", "_programs/lights.bas")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	assertContains(t, out, "(halted)")
	assertContains(t, out, "StructureCircuitHousing Setting=1")
}

func TestRunIC10File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.ic10")
	if err := os.WriteFile(path, []byte("move r0 5\ns db Setting r0\nhcf\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := runApp(t, "run", path)
	if err == nil {
		t.Fatal("hcf should surface as an error")
	}
	assertContains(t, err.Error(), "line 2: hcf")
	assertContains(t, out, "r0=5")
}

func TestHashCommand(t *testing.T) {
	out, _, err := runApp(t, "hash", "Autolathe", "StructureGasSensor")
	if err != nil {
		t.Fatal(err)
	}
	want := "914975607\tAutolathe\n-1252983604\tStructureGasSensor\n"
	if out != want {
		t.Errorf("hash output = %q, want %q", out, want)
	}
}

func TestDumpCommands(t *testing.T) {
	out, _, err := runApp(t, "tokens", "_programs/lights.bas")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, `"StructureWallLight"`)

	out, _, err = runApp(t, "ast", "_programs/lights.bas")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "Program{")

	if _, _, err := runApp(t, "ast"); err == nil {
		t.Error("ast without a file should fail")
	}
}
