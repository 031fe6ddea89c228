// Package grid lays out fixed-size cells in rows.
package grid

// GetGridCoords returns the column and row of index in a grid cols wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Cell is a fixed-size box in a grid that starts at an origin.
type Cell struct {
	OriginX, OriginY int
	Width, Height    int
	Cols             int
}

// At returns the top-left pixel of the cell holding index.
func (c Cell) At(index int) (px, py int) {
	x, y := GetGridCoords(index, c.Cols)
	return c.OriginX + x*c.Width, c.OriginY + y*c.Height
}

// Rows is how many rows n cells take.
func (c Cell) Rows(n int) int {
	return (n + c.Cols - 1) / c.Cols
}
