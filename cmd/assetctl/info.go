package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rfd62794/rpgCore-sub007/pkg/assets"
	"github.com/rfd62794/rpgCore-sub007/pkg/registry"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <container>",
		Short: "Report container header metadata and registry sizes",
		Long: `The info command loads a container and displays its header fields
(version, build time, checksum, asset count) together with the number of
entries in each registry.

Example:
  assetctl info world.dgt
  assetctl info world.dgt --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, args)
		},
	}
	return cmd
}

// containerInfo is the --json shape of info.
type containerInfo struct {
	assets.Metadata
	Counts map[string]int `json:"counts"`
}

func registryCounts(reg *registry.Registry) map[string]int {
	return map[string]int{
		"characters":    len(reg.IDs(types.KindCharacter)),
		"palettes":      len(reg.SpriteBank.Palettes),
		"tiles":         len(reg.TileIDs()),
		"objects":       len(reg.IDs(types.KindObject)),
		"environments":  len(reg.IDs(types.KindEnvironment)),
		"interactions":  len(reg.InteractionIDs()),
		"dialogue_sets": len(reg.DialogueSetIDs()),
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	printVerbose("Opening container: %s\n", path)

	l, err := openContainer(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer l.Cleanup()

	meta, _ := l.Metadata()
	counts := registryCounts(l.AssetData())

	if jsonOut {
		return printJSON(containerInfo{Metadata: meta, Counts: counts})
	}

	printInfo("\nContainer Information:\n")
	printInfo("  File: %s\n", meta.Path)
	printInfo("  Size: %s\n", humanize.IBytes(uint64(meta.FileSize)))
	printInfo("  Version: %d\n", meta.Version)
	if meta.BuildTime.IsZero() {
		printInfo("  Built: unknown\n")
	} else {
		printInfo("  Built: %s (%s)\n", meta.BuildTime.Format("2006-01-02 15:04:05 MST"), humanize.Time(meta.BuildTime))
	}
	printInfo("  Checksum: %s (%s)\n", meta.Checksum, meta.ChecksumStatus)
	printInfo("  Schema version: %d\n", meta.SchemaVersion)
	printInfo("  Payload: %s at offset %d\n", humanize.IBytes(uint64(meta.PayloadSize)), meta.PayloadOffset)

	printInfo("\nAssets: %s", humanize.Comma(int64(meta.CountedAssets)))
	if meta.CountedAssets != int(meta.AssetCount) {
		printInfo(" (header says %s)", humanize.Comma(int64(meta.AssetCount)))
	}
	printInfo("\n")
	for _, name := range []string{"characters", "palettes", "tiles", "objects", "environments", "interactions", "dialogue_sets"} {
		printInfo("  %-14s %s\n", name+":", humanize.Comma(int64(counts[name])))
	}
	return nil
}

// describeKind is the plural used in listings.
func describeKind(k types.Kind) string {
	return fmt.Sprintf("%ss", k)
}
