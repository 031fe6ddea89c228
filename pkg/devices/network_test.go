package devices

import (
	"reflect"
	"strings"
	"testing"

	"basic10/pkg/ic10"
)

const sampleNetwork = `{
  "housing": {"prefab": "StructureCircuitHousing", "id": 1, "logic": {"Setting": 3}},
  "pins": {
    "d0": {"prefab": "StructureGasSensor", "id": 10, "logic": {"Temperature": 300}},
    "d1": {"prefab": "StructureLogicMemory", "id": 11, "memory": [0, 0, 0, 0]}
  },
  "network": [
    {"prefab": "StructureWallLight", "id": 20, "name": "Hall", "logic": {"On": 0, "Power": 10}},
    {"prefab": "StructureWallLight", "id": 21, "name": "Hall", "logic": {"On": 1, "Power": 30}},
    {"prefab": "StructureWallLight", "id": 22, "name": "Door", "logic": {"On": 1, "Power": 5}}
  ]
}`

func loadSample(t *testing.T) *Network {
	t.Helper()
	n, err := LoadNetwork(strings.NewReader(sampleNetwork))
	if err != nil {
		t.Fatalf("LoadNetwork failed: %v", err)
	}
	return n
}

func TestLoadNetwork(t *testing.T) {
	n := loadSample(t)

	if len(n.Housing.Memory) != ic10.StackSize {
		t.Errorf("housing stack has %d entries", len(n.Housing.Memory))
	}
	if v, _ := n.Housing.Get("Setting"); v != 3 {
		t.Errorf("housing Setting = %v", v)
	}
	if d, ok := n.Pin("d0"); !ok || d.ID != 10 {
		t.Errorf("Pin(d0) = %+v, %v", d, ok)
	}
	if d, ok := n.Pin("db"); !ok || d != n.Housing {
		t.Errorf("Pin(db) should be the housing")
	}
	if _, ok := n.Pin("d5"); ok {
		t.Error("d5 is not connected")
	}
	if len(n.Devices) != 6 {
		t.Errorf("expected 6 devices, got %d", len(n.Devices))
	}
	if d, ok := n.ByID(21); !ok || d.Name != "Hall" {
		t.Errorf("ByID(21) = %+v, %v", d, ok)
	}
}

func TestLoadNetworkErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Bad JSON", `{`, "decoding network"},
		{"Unknown Field", `{"wires": []}`, "unknown field"},
		{"Bad Pin", `{"pins": {"d9": {"prefab": "X", "id": 2}}}`, "unknown pin"},
		{"Duplicate Id", `{"network": [{"prefab": "A", "id": 5}, {"prefab": "B", "id": 5}]}`, "reference id 5"},
		{"Empty Entry", `{"network": [null]}`, "network entry 0 is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadNetwork(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestBatchRead(t *testing.T) {
	n := loadSample(t)
	light := ic10.Hash("StructureWallLight")
	hall := ic10.Hash("Hall")

	tests := []struct {
		name string
		hash int32
		dev  *int32
		prop string
		mode string
		want float64
	}{
		{"Average", light, nil, "Power", "Average", 15},
		{"Sum", light, nil, "Power", "Sum", 45},
		{"Minimum", light, nil, "Power", "Minimum", 5},
		{"Maximum", light, nil, "Power", "Maximum", 30},
		{"Named", light, &hall, "Power", "Sum", 40},
		{"No Match", ic10.Hash("Nothing"), nil, "Power", "Maximum", 0},
		{"Count Trick", light, nil, "PrefabHash", "Sum", 3 * float64(light)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.BatchRead(tt.hash, tt.dev, tt.prop, tt.mode)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := n.BatchRead(light, nil, "Power", "Median"); err == nil {
		t.Error("Median is not a batch mode")
	}
}

func TestBatchWrite(t *testing.T) {
	n := loadSample(t)
	light := ic10.Hash("StructureWallLight")
	hall := ic10.Hash("Hall")

	if err := n.BatchWrite(light, &hall, "On", 7); err != nil {
		t.Fatal(err)
	}
	var got []float64
	for _, d := range n.Match(light, nil) {
		got = append(got, d.Logic["On"])
	}
	if want := []float64{7, 7, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("On values = %v, want %v", got, want)
	}
}

func TestNetworkSaveStateRoundTrip(t *testing.T) {
	n := loadSample(t)
	n.Pins["d0"].Logic["Temperature"] = 310

	data, err := n.SaveState()
	if err != nil {
		t.Fatal(err)
	}
	again, err := LoadNetwork(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("reloading saved state: %v\n%s", err, data)
	}
	if d, _ := again.Pin("d0"); d.Logic["Temperature"] != 310 {
		t.Errorf("Temperature = %v", d.Logic["Temperature"])
	}
	if len(again.Devices) != len(n.Devices) {
		t.Errorf("device count %d, want %d", len(again.Devices), len(n.Devices))
	}
}

func TestAttachReplacesPin(t *testing.T) {
	n := NewNetwork()
	first := NewDevice("A", 2)
	second := NewDevice("B", 3)
	if err := n.Attach("d2", first); err != nil {
		t.Fatal(err)
	}
	if err := n.Attach("d2", second); err != nil {
		t.Fatal(err)
	}
	if d, _ := n.Pin("d2"); d != second {
		t.Error("d2 should hold the second device")
	}
	if _, ok := n.ByID(2); ok {
		t.Error("the replaced device should leave the network")
	}
	if err := n.Attach("db", first); err == nil {
		t.Error("db cannot be attached to")
	}
}
