package compiler

import (
	"fmt"
	"testing"

	"basic10/pkg/ic10"
)

func hashOf(s string) string { return fmt.Sprint(ic10.Hash(s)) }

func TestDeviceLowering(t *testing.T) {
	light := hashOf("StructureWallLight")
	hall := hashOf("Hall")

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "Pin Read",
			src:  "ALIAS sensor d0\nVAR t = sensor.Temperature",
			want: []string{"l r0 d0 Temperature"},
		},
		{
			name: "Bare Pin Write",
			src:  "d2.On = 1",
			want: []string{"s d2 On 1"},
		},
		{
			name: "THIS",
			src:  "ALIAS me THIS\nme.Setting = 5",
			want: []string{"s db Setting 5"},
		},
		{
			name: "IC.Pin",
			src:  "ALIAS pump IC.Pin[3]\npump.On = 0",
			want: []string{"s d3 On 0"},
		},
		{
			name: "Batch Read Modes",
			src:  "DEVICE lights \"StructureWallLight\"\nVAR m = lights.Temperature.Max\nVAR a = lights.Temperature",
			want: []string{
				"lb r0 " + light + " Temperature Maximum",
				"lb r1 " + light + " Temperature Average",
			},
		},
		{
			name: "Batch Count",
			src:  "DEVICE lights \"StructureWallLight\"\nVAR n = lights.Count",
			want: []string{
				"lb r0 " + light + " PrefabHash Sum",
				"div r0 r0 " + light,
			},
		},
		{
			name: "Batch Write",
			src:  "DEVICE lights \"StructureWallLight\"\nlights.On = 1",
			want: []string{"sb " + light + " On 1"},
		},
		{
			name: "Named Devices",
			src:  "DEVICE hall \"StructureWallLight\" \"Hall\"\nhall.On = 0\nVAR p = hall.Pressure",
			want: []string{
				"sbn " + light + " " + hall + " On 0",
				"lbn r0 " + light + " " + hall + " Pressure Average",
			},
		},
		{
			name: "Reference Id",
			src:  "ALIAS valve IC.ID[12345]\nvalve.On = 1\nVAR s = valve.Setting\nvalve.Memory[2] = 5\nVAR m = valve.Memory[2]",
			want: []string{"sd 12345 On 1", "ld r0 12345 Setting", "putd 12345 2 5", "getd r1 12345 2"},
		},
		{
			name: "Slots",
			src:  "ALIAS sorter d1\nVAR o = sorter.Slot[0].Occupied\nsorter.Slot[1].Lock = 1",
			want: []string{"ls r0 d1 0 Occupied", "ss d1 1 Lock 1"},
		},
		{
			name: "Pin Memory",
			src:  "ALIAS mem d1\nmem.Memory[3] = 7\nVAR x = mem.Memory[3]",
			want: []string{"put d1 3 7", "get r0 d1 3"},
		},
		{
			name: "Channel Alias",
			src:  "ALIAS radio d1.Channel[2]\nradio.Channel = 5",
			want: []string{"s d1 Channel2 5"},
		},
		{
			name: "BATCHREAD",
			src:  "VAR c = BATCHREAD(HASH(\"StructureWallLight\"), Charge, SUM)",
			want: []string{"lb r0 " + light + " Charge Sum"},
		},
		{
			name: "BATCHWRITE With Name",
			src:  "BATCHWRITE(\"StructureWallLight\", \"Hall\", On, 0)",
			want: []string{"sbn " + light + " " + hall + " On 0"},
		},
		{
			name: "Device Set Branch",
			src:  "ALIAS sensor d0\nIF sensor.Set THEN PRINT 1",
			want: []string{"bdns d0 2", "s db Setting 1"},
		},
		{
			name: "SDSE Value",
			src:  "ALIAS sensor d0\nVAR c = SDSE(sensor)",
			want: []string{"sdse r0 d0"},
		},
		{
			name: "SDNS Branch",
			src:  "ALIAS sensor d0\nIF SDNS(sensor) THEN PRINT 1",
			want: []string{"bdse d0 2", "s db Setting 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, tt.src, tt.want...)
		})
	}
}

func TestDeviceErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		kind     error
		fragment string
	}{
		{
			"Batch Mode On Pin",
			"ALIAS s d0\nVAR x = s.Temperature.Max",
			ErrAddressing, "batch mode Maximum needs a device addressed by type",
		},
		{
			"Count On Pin",
			"ALIAS s d0\nVAR x = s.Count",
			ErrAddressing, "s.Count needs a device addressed by type",
		},
		{
			"Memory By Name",
			"DEVICE hall \"StructureWallLight\" \"Hall\"\nVAR x = hall.Memory[0]",
			ErrMemoryTarget, "hall is addressed by name",
		},
		{
			"Memory By Type",
			"DEVICE l \"StructureWallLight\"\nl.Memory[0] = 1",
			ErrMemoryTarget, "l is addressed by type",
		},
		{
			"Slot Write By Id",
			"ALIAS v IC.ID[7]\nv.Slot[0].Lock = 1",
			ErrAddressing, "slot writes need a pin or type device",
		},
		{
			"SDSE Needs Pin",
			"DEVICE l \"StructureWallLight\"\nVAR c = SDSE(l)",
			ErrAddressing, "l is not on a pin",
		},
		{
			"Variable As Device",
			"VAR a = 1\nVAR x = a.On",
			ErrAddressing, "a is a variable, not a device",
		},
		{
			"Undeclared Device",
			"ALIAS sensor d0\nVAR x = snsor.Temperature",
			ErrUndeclared, "undeclared device snsor (did you mean sensor?)",
		},
		{
			"Device Without Property",
			"ALIAS sensor d0\nVAR x = sensor",
			ErrInvalid, "device alias sensor has no value",
		},
		{
			"Runtime Device Type",
			"VAR h = 1\nDEVICE l h",
			ErrConstantFold, "must be a string or a constant hash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, tt.src, tt.kind, tt.fragment)
		})
	}
}

func TestDeviceHashesAppearInSymbols(t *testing.T) {
	res := compileOK(t, "DEVICE hall \"StructureWallLight\" \"Hall\"\nhall.On = 1")
	want := "type " + hashOf("StructureWallLight") + " name " + hashOf("Hall")
	if got := res.SourceMap.Devices["hall"]; got != want {
		t.Errorf("Devices[hall] = %q, want %q", got, want)
	}
	if text, ok := res.Hashes.Lookup(ic10.Hash("Hall")); !ok || text != "Hall" {
		t.Errorf("Lookup(Hall) = %q, %v", text, ok)
	}
}
