package ic10

import "testing"

func TestHashGoldenValues(t *testing.T) {
	tests := []struct {
		input string
		want  int32
	}{
		{"", 0},
		{"Autolathe", 914975607},
		{"StructureAutolathe", 336213101},
		{"ItemKitAutolathe", -1753893214},
		{"StructureGasSensor", -1252983604},
		{"StructureWallLight", -1860064656},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := Hash(tc.input); got != tc.want {
				t.Errorf("Hash(%q) = %d; want %d", tc.input, got, tc.want)
			}
		})
	}
}

func TestHashIsStable(t *testing.T) {
	first := Hash("Autolathe")
	for i := 0; i < 100; i++ {
		if got := Hash("Autolathe"); got != first {
			t.Fatalf("hash changed between calls: %d then %d", first, got)
		}
	}
}

func TestHashRegistry(t *testing.T) {
	r := NewHashRegistry()
	h := r.Add("StructureGasSensor")
	r.Add("Autolathe")
	r.Add("Autolathe")

	if got, ok := r.Lookup(h); !ok || got != "StructureGasSensor" {
		t.Errorf("Lookup(%d) = %q, %v", h, got, ok)
	}
	if _, ok := r.Lookup(12345); ok {
		t.Error("Lookup of an unknown hash should fail")
	}

	pairs := r.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Text != "Autolathe" || pairs[0].Hash != 914975607 {
		t.Errorf("unexpected first pair %+v", pairs[0])
	}
}
