// Package palette maps indexed pixel grids through color palettes.
package palette

import "github.com/rfd62794/rpgCore-sub007/pkg/types"

// Apply maps every index in grid to the palette entry at that position.
//
// NoPixel passes through as transparent. Indices outside the palette pass
// through unmapped rather than failing. An empty palette maps nothing, so the
// result carries the input indices unchanged.
func Apply(grid [][]int32, pal []types.Color) [][]types.Pixel {
	out := make([][]types.Pixel, len(grid))
	for y, row := range grid {
		px := make([]types.Pixel, len(row))
		for x, idx := range row {
			px[x] = types.Pixel{Index: idx}
			if idx == types.NoPixel || idx < 0 || int(idx) >= len(pal) {
				continue
			}
			px[x].Color = pal[idx]
			px[x].Mapped = true
		}
		out[y] = px
	}
	return out
}

// Unmapped counts pixels that are neither transparent nor mapped, which is
// what out-of-range indices leave behind.
func Unmapped(grid [][]types.Pixel) int {
	n := 0
	for _, row := range grid {
		for _, p := range row {
			if !p.Mapped && !p.Transparent() {
				n++
			}
		}
	}
	return n
}
