package types

import "fmt"

// NoPixel is the transparent sentinel in indexed pixel grids. It is never
// mapped through a palette.
const NoPixel int32 = -1

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Pixel is one cell of a palette-applied grid. When Mapped is false the
// pixel carries only its original Index: it was transparent, out of palette
// range, or no palette was applied.
type Pixel struct {
	Index  int32
	Color  Color
	Mapped bool
}

// Transparent reports whether the pixel is the NoPixel sentinel.
func (p Pixel) Transparent() bool { return p.Index == NoPixel }

// GridSize returns the width (longest row) and height of a pixel grid.
func GridSize(grid [][]Pixel) (w, h int) {
	for _, row := range grid {
		if len(row) > w {
			w = len(row)
		}
	}
	return w, len(grid)
}
