package grid

import "testing"

func TestGetGridCoords(t *testing.T) {
	tests := []struct {
		index int
		cols  int
		wantX int
		wantY int
	}{
		// register panel, 4 across
		{0, 4, 0, 0},
		{3, 4, 3, 0},
		{4, 4, 0, 1},
		{15, 4, 3, 3},
		{17, 4, 1, 4},

		// device cards, 2 across
		{0, 2, 0, 0},
		{1, 2, 1, 0},
		{2, 2, 0, 1},
		{7, 2, 1, 3},
	}

	for _, tc := range tests {
		gotX, gotY := GetGridCoords(tc.index, tc.cols)
		if gotX != tc.wantX || gotY != tc.wantY {
			t.Errorf("GetGridCoords(%d, %d) = (%d, %d); want (%d, %d)", tc.index, tc.cols, gotX, gotY, tc.wantX, tc.wantY)
		}
	}
}

func TestCell(t *testing.T) {
	c := Cell{OriginX: 300, OriginY: 20, Width: 80, Height: 14, Cols: 4}
	if x, y := c.At(0); x != 300 || y != 20 {
		t.Errorf("At(0) = (%d, %d)", x, y)
	}
	if x, y := c.At(6); x != 460 || y != 34 {
		t.Errorf("At(6) = (%d, %d); want (460, 34)", x, y)
	}
	for n, want := range map[int]int{0: 0, 1: 1, 4: 1, 5: 2, 18: 5} {
		if got := c.Rows(n); got != want {
			t.Errorf("Rows(%d) = %d; want %d", n, got, want)
		}
	}
}
