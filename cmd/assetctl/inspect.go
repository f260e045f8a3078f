package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rfd62794/rpgCore-sub007/internal/palette"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

var (
	inspectVariant string
	inspectPreview bool
)

func init() {
	cmd := newInspectCmd()
	cmd.Flags().StringVar(&inspectVariant, "variant", "", "Palette variant (characters only)")
	cmd.Flags().BoolVar(&inspectPreview, "preview", false, "Print the pixel or tile grid")
	rootCmd.AddCommand(cmd)
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <container> <kind> <id>",
		Short: "Instantiate one asset and describe it",
		Long: `The inspect command instantiates a single character, object or
environment exactly as the runtime would and prints what came out.

Example:
  assetctl inspect world.dgt character hero --variant night
  assetctl inspect world.dgt environment village --preview
  assetctl inspect world.dgt object chest --json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args)
		},
	}
	return cmd
}

// instanceSummary is the --json shape of inspect.
type instanceSummary struct {
	Kind        string           `json:"kind"`
	ID          string           `json:"id"`
	Variant     string           `json:"variant,omitempty"`
	Palette     string           `json:"palette,omitempty"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Unmapped    int              `json:"unmapped_pixels,omitempty"`
	Interaction map[string]any   `json:"interaction,omitempty"`
	Objects     []string         `json:"objects,omitempty"`
	NPCs        []map[string]any `json:"npcs,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	kind, err := types.ParseKind(args[1])
	if err != nil {
		return err
	}
	id := args[2]

	l, err := openContainer(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer l.Cleanup()
	f := newFactory(l)
	defer f.Close()

	inst := f.Create(cmd.Context(), kind, id, types.Position{}, inspectVariant)
	if inst == nil {
		return fmt.Errorf("%s %q could not be instantiated (unknown id or corrupt blob; see log)", kind, id)
	}

	s := instanceSummary{Kind: kind.String(), ID: inst.AssetID()}
	var preview []string
	switch v := inst.(type) {
	case *types.Character:
		s.Variant, s.Palette, s.Metadata = v.Variant, v.PaletteID, v.Metadata
		s.Width, s.Height = types.GridSize(v.Pixels)
		s.Unmapped = palette.Unmapped(v.Pixels)
		preview = pixelRows(v.Pixels)
	case *types.Object:
		s.Palette, s.Metadata = v.PaletteID, v.Metadata
		s.Width, s.Height = types.GridSize(v.Pixels)
		s.Unmapped = palette.Unmapped(v.Pixels)
		if def, ok := f.Interactions().ForObject(v); ok {
			s.Interaction = def
		}
		preview = pixelRows(v.Pixels)
	case *types.Environment:
		s.Width, s.Height, s.NPCs, s.Metadata = v.Width, v.Height, v.NPCs, v.Metadata
		for _, o := range v.Objects {
			p := o.Position()
			s.Objects = append(s.Objects, fmt.Sprintf("%s@%d,%d", o.ID, p.X, p.Y))
		}
		preview = tileRows(v)
	}

	if jsonOut {
		return printJSON(s)
	}

	printInfo("\n%s %s\n", s.Kind, s.ID)
	printInfo("  Size: %dx%d\n", s.Width, s.Height)
	if s.Variant != "" {
		printInfo("  Variant: %s\n", s.Variant)
	}
	if s.Palette != "" {
		printInfo("  Palette: %s\n", s.Palette)
	}
	if s.Unmapped > 0 {
		printInfo("  Unmapped pixels: %d\n", s.Unmapped)
	}
	if s.Interaction != nil {
		printInfo("  Interaction: %v\n", s.Interaction)
	}
	if len(s.Objects) > 0 {
		printInfo("  Objects: %s\n", strings.Join(s.Objects, ", "))
	}
	if len(s.NPCs) > 0 {
		printInfo("  NPCs: %d\n", len(s.NPCs))
	}
	for _, k := range slices.Sorted(maps.Keys(s.Metadata)) {
		printInfo("  %s: %v\n", k, s.Metadata[k])
	}
	if inspectPreview {
		printInfo("\n")
		for _, row := range preview {
			printInfo("  %s\n", row)
		}
	}
	return nil
}

// previewGlyphs renders palette indices; '.' is transparent, '?' is any index
// past the glyph table.
const previewGlyphs = "0123456789abcdefghijklmnopqrstuvwxyz"

func glyph(v int32) byte {
	switch {
	case v == types.NoPixel:
		return '.'
	case v >= 0 && int(v) < len(previewGlyphs):
		return previewGlyphs[v]
	default:
		return '?'
	}
}

func pixelRows(grid [][]types.Pixel) []string {
	rows := make([]string, len(grid))
	for y, row := range grid {
		b := make([]byte, len(row))
		for x, p := range row {
			b[x] = glyph(p.Index)
		}
		rows[y] = string(b)
	}
	return rows
}

func tileRows(e *types.Environment) []string {
	rows := make([]string, 0, e.Height)
	for y := range e.Height {
		b := make([]byte, e.Width)
		for x := range e.Width {
			v, _ := e.TileAt(x, y)
			b[x] = glyph(v)
		}
		rows = append(rows, string(b))
	}
	for _, o := range e.Objects {
		p := o.Position()
		if p.Y >= 0 && p.Y < len(rows) && p.X >= 0 && p.X < e.Width {
			r := []byte(rows[p.Y])
			r[p.X] = '@'
			rows[p.Y] = string(r)
		}
	}
	return rows
}
