package devices

import (
	"encoding/json"
	"fmt"

	"basic10/pkg/ic10"
)

// HousingPrefab is the prefab a chip housing reports when none is given.
const HousingPrefab = "StructureCircuitHousing"

// Device is one logic device: a prefab, an optional labelled name, a
// reference id, logic values, item slots and, for some devices, stack
// memory.
type Device struct {
	Prefab string               `json:"prefab"`
	Name   string               `json:"name,omitempty"`
	ID     float64              `json:"id"`
	Logic  map[string]float64   `json:"logic,omitempty"`
	Slots  []map[string]float64 `json:"slots,omitempty"`
	Memory []float64            `json:"memory,omitempty"`
}

// NewDevice creates a device with no logic values.
func NewDevice(prefab string, id float64) *Device {
	return &Device{Prefab: prefab, ID: id, Logic: make(map[string]float64)}
}

// Type returns the prefab name.
func (d *Device) Type() string {
	return d.Prefab
}

func (d *Device) PrefabHash() int32 { return ic10.Hash(d.Prefab) }

func (d *Device) NameHash() int32 { return ic10.Hash(d.Name) }

// Get reads a logic value. PrefabHash, NameHash and ReferenceId are always
// available; anything else reads 0 until it is written.
func (d *Device) Get(prop string) (float64, bool) {
	switch prop {
	case "PrefabHash":
		return float64(d.PrefabHash()), true
	case "NameHash":
		return float64(d.NameHash()), true
	case "ReferenceId":
		return d.ID, true
	}
	v, ok := d.Logic[prop]
	return v, ok
}

// Set writes a logic value.
func (d *Device) Set(prop string, v float64) error {
	switch prop {
	case "PrefabHash", "NameHash", "ReferenceId":
		return fmt.Errorf("%s is read only", prop)
	}
	if d.Logic == nil {
		d.Logic = make(map[string]float64)
	}
	d.Logic[prop] = v
	return nil
}

func (d *Device) slot(i int) (map[string]float64, error) {
	if i < 0 || i >= len(d.Slots) {
		return nil, fmt.Errorf("%s has no slot %d", d.Prefab, i)
	}
	if d.Slots[i] == nil {
		d.Slots[i] = make(map[string]float64)
	}
	return d.Slots[i], nil
}

func (d *Device) GetSlot(i int, prop string) (float64, error) {
	s, err := d.slot(i)
	if err != nil {
		return 0, err
	}
	return s[prop], nil
}

func (d *Device) SetSlot(i int, prop string, v float64) error {
	s, err := d.slot(i)
	if err != nil {
		return err
	}
	s[prop] = v
	return nil
}

func (d *Device) memoryIndex(addr float64) (int, error) {
	if len(d.Memory) == 0 {
		return 0, fmt.Errorf("%s has no stack memory", d.Prefab)
	}
	i := int(addr)
	if addr != float64(i) || i < 0 || i >= len(d.Memory) {
		return 0, fmt.Errorf("stack address %s out of range for %s", ic10.FormatNumber(addr), d.Prefab)
	}
	return i, nil
}

// Read returns stack memory at addr.
func (d *Device) Read(addr float64) (float64, error) {
	i, err := d.memoryIndex(addr)
	if err != nil {
		return 0, err
	}
	return d.Memory[i], nil
}

// Write stores v in stack memory at addr.
func (d *Device) Write(addr, v float64) error {
	i, err := d.memoryIndex(addr)
	if err != nil {
		return err
	}
	d.Memory[i] = v
	return nil
}

// SaveState serializes the device state.
func (d *Device) SaveState() []byte {
	b, _ := json.Marshal(d)
	return b
}

// LoadState deserializes the device state.
func (d *Device) LoadState(data []byte) error {
	return json.Unmarshal(data, d)
}
