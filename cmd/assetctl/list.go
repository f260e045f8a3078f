package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rfd62794/rpgCore-sub007/pkg/registry"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

// listSections are the names accepted by list, beyond the instance kinds.
var listSections = []string{"tiles", "palettes", "interactions", "dialogue_sets"}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <container> [kind]",
		Short: "List asset ids",
		Long: `The list command prints the asset ids a container holds, sorted.
Without a kind every registry is listed.

Kinds: character, object, environment, tiles, palettes, interactions, dialogue_sets

Example:
  assetctl list world.dgt
  assetctl list world.dgt character
  assetctl list world.dgt environment --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args)
		},
	}
	return cmd
}

func listIDs(reg *registry.Registry, section string) ([]string, error) {
	switch section {
	case "tiles":
		return reg.TileIDs(), nil
	case "palettes":
		return sortedPaletteIDs(reg), nil
	case "interactions":
		return reg.InteractionIDs(), nil
	case "dialogue_sets":
		return reg.DialogueSetIDs(), nil
	}
	kind, err := types.ParseKind(section)
	if err != nil {
		return nil, fmt.Errorf("%w (want character, object, environment, %s)", err, strings.Join(listSections, ", "))
	}
	return reg.IDs(kind), nil
}

func sortedPaletteIDs(reg *registry.Registry) []string {
	ids := make([]string, 0, len(reg.SpriteBank.Palettes))
	for id := range reg.SpriteBank.Palettes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func runList(cmd *cobra.Command, args []string) error {
	l, err := openContainer(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer l.Cleanup()
	reg := l.AssetData()

	if len(args) == 2 {
		ids, err := listIDs(reg, strings.ToLower(args[1]))
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(ids)
		}
		for _, id := range ids {
			printInfo("%s\n", id)
		}
		return nil
	}

	all := map[string][]string{}
	order := []string{
		describeKind(types.KindCharacter),
		describeKind(types.KindObject),
		describeKind(types.KindEnvironment),
	}
	all[order[0]] = reg.IDs(types.KindCharacter)
	all[order[1]] = reg.IDs(types.KindObject)
	all[order[2]] = reg.IDs(types.KindEnvironment)
	for _, s := range listSections {
		all[s], _ = listIDs(reg, s)
		order = append(order, s)
	}

	if jsonOut {
		return printJSON(all)
	}
	for _, name := range order {
		printInfo("%s (%d):\n", name, len(all[name]))
		for _, id := range all[name] {
			printInfo("  %s\n", id)
		}
	}
	return nil
}
