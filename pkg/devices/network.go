package devices

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"basic10/pkg/ic10"
)

// Network is everything one chip can reach: its housing (db), the devices
// wired to pins d0..d5 and every device on the same data network.
type Network struct {
	Housing *Device
	Pins    map[string]*Device
	Devices []*Device
}

// networkFile is the JSON form of a Network. Pinned devices are listed
// under pins and are part of the network without being repeated.
//
//	{
//	  "housing": {"prefab": "StructureCircuitHousing", "id": 1},
//	  "pins": {"d0": {"prefab": "StructureGasSensor", "id": 10, "logic": {"Temperature": 300}}},
//	  "network": [{"prefab": "StructureWallLight", "id": 20, "name": "Hall"}]
//	}
type networkFile struct {
	Housing *Device            `json:"housing,omitempty"`
	Pins    map[string]*Device `json:"pins,omitempty"`
	Network []*Device          `json:"network,omitempty"`
}

// NewNetwork returns a network holding only a chip housing with an empty
// stack.
func NewNetwork() *Network {
	n := &Network{Pins: make(map[string]*Device)}
	n.SetHousing(nil)
	return n
}

// SetHousing installs h as the chip housing, creating a default one when h
// is nil. The housing always carries a full stack.
func (n *Network) SetHousing(h *Device) {
	if h == nil {
		h = NewDevice(HousingPrefab, 1)
	}
	if len(h.Memory) < ic10.StackSize {
		h.Memory = append(h.Memory, make([]float64, ic10.StackSize-len(h.Memory))...)
	}
	if h.Logic == nil {
		h.Logic = make(map[string]float64)
	}
	if n.Housing != nil {
		n.remove(n.Housing)
	}
	n.Housing = h
	n.Devices = append(n.Devices, h)
}

// Attach wires d to pin (d0..d5) and adds it to the network.
func (n *Network) Attach(pin string, d *Device) error {
	if !isPin(pin) {
		return fmt.Errorf("unknown pin %q", pin)
	}
	if d == nil {
		return fmt.Errorf("pin %s has no device", pin)
	}
	if old := n.Pins[pin]; old != nil {
		n.remove(old)
	}
	n.Pins[pin] = d
	n.Devices = append(n.Devices, d)
	return nil
}

// Add puts d on the network without wiring it to a pin.
func (n *Network) Add(d *Device) {
	n.Devices = append(n.Devices, d)
}

func (n *Network) remove(d *Device) {
	for i, x := range n.Devices {
		if x == d {
			n.Devices = append(n.Devices[:i], n.Devices[i+1:]...)
			return
		}
	}
}

func isPin(pin string) bool {
	for _, p := range ic10.Pins {
		if p == pin && p != "db" {
			return true
		}
	}
	return false
}

// Pin returns the device on pin, with db meaning the housing. It reports
// false when nothing is connected.
func (n *Network) Pin(pin string) (*Device, bool) {
	if pin == "db" {
		return n.Housing, n.Housing != nil
	}
	d, ok := n.Pins[pin]
	return d, ok && d != nil
}

// ByID finds a device by reference id.
func (n *Network) ByID(id float64) (*Device, bool) {
	for _, d := range n.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Match returns the devices with the given prefab hash, and the given name
// hash when name is not nil.
func (n *Network) Match(prefab int32, name *int32) []*Device {
	var out []*Device
	for _, d := range n.Devices {
		if d.PrefabHash() != prefab {
			continue
		}
		if name != nil && d.NameHash() != *name {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Reduce combines values with a batch mode. No values reduce to 0.
func Reduce(values []float64, mode string) (float64, error) {
	if len(values) == 0 {
		switch mode {
		case "Average", "Sum", "Minimum", "Maximum":
			return 0, nil
		}
		return 0, fmt.Errorf("unknown batch mode %q", mode)
	}
	switch mode {
	case "Average", "Sum":
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		if mode == "Average" {
			return sum / float64(len(values)), nil
		}
		return sum, nil
	case "Minimum":
		m := math.Inf(1)
		for _, v := range values {
			m = math.Min(m, v)
		}
		return m, nil
	case "Maximum":
		m := math.Inf(-1)
		for _, v := range values {
			m = math.Max(m, v)
		}
		return m, nil
	}
	return 0, fmt.Errorf("unknown batch mode %q", mode)
}

// BatchRead reduces prop over every matching device that has it.
func (n *Network) BatchRead(prefab int32, name *int32, prop, mode string) (float64, error) {
	var values []float64
	for _, d := range n.Match(prefab, name) {
		if v, ok := d.Get(prop); ok {
			values = append(values, v)
		}
	}
	return Reduce(values, mode)
}

// BatchReadSlot reduces a slot property over every matching device that has
// the slot.
func (n *Network) BatchReadSlot(prefab int32, name *int32, slot int, prop, mode string) (float64, error) {
	var values []float64
	for _, d := range n.Match(prefab, name) {
		if v, err := d.GetSlot(slot, prop); err == nil {
			values = append(values, v)
		}
	}
	return Reduce(values, mode)
}

// BatchWrite sets prop on every matching device.
func (n *Network) BatchWrite(prefab int32, name *int32, prop string, v float64) error {
	for _, d := range n.Match(prefab, name) {
		if err := d.Set(prop, v); err != nil {
			return err
		}
	}
	return nil
}

// BatchWriteSlot sets a slot property on every matching device that has the
// slot.
func (n *Network) BatchWriteSlot(prefab int32, slot int, prop string, v float64) {
	for _, d := range n.Match(prefab, nil) {
		_ = d.SetSlot(slot, prop, v)
	}
}

// LoadNetwork reads a network description.
func LoadNetwork(r io.Reader) (*Network, error) {
	var f networkFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding network: %w", err)
	}

	n := &Network{Pins: make(map[string]*Device)}
	n.SetHousing(f.Housing)
	pins := make([]string, 0, len(f.Pins))
	for pin := range f.Pins {
		pins = append(pins, pin)
	}
	sort.Strings(pins)
	for _, pin := range pins {
		if err := n.Attach(pin, f.Pins[pin]); err != nil {
			return nil, err
		}
	}
	for i, d := range f.Network {
		if d == nil {
			return nil, fmt.Errorf("network entry %d is empty", i)
		}
		n.Add(d)
	}

	seen := make(map[float64]string)
	for _, d := range n.Devices {
		if d.Logic == nil {
			d.Logic = make(map[string]float64)
		}
		if other, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("reference id %s is used by %s and %s", ic10.FormatNumber(d.ID), other, d.Prefab)
		}
		seen[d.ID] = d.Prefab
	}
	return n, nil
}

// LoadNetworkFile reads a network description from path.
func LoadNetworkFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadNetwork(f)
}

// SaveState serializes the network in the form LoadNetwork reads.
func (n *Network) SaveState() ([]byte, error) {
	f := networkFile{Housing: n.Housing, Pins: n.Pins}
	pinned := make(map[*Device]bool)
	for _, d := range n.Pins {
		pinned[d] = true
	}
	for _, d := range n.Devices {
		if d != n.Housing && !pinned[d] {
			f.Network = append(f.Network, d)
		}
	}
	return json.MarshalIndent(f, "", "  ")
}
