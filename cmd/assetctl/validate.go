package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rfd62794/rpgCore-sub007/pkg/assets"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

var (
	validateDeep   bool
	validateStrict bool
)

func init() {
	cmd := newValidateCmd()
	cmd.Flags().BoolVar(&validateDeep, "deep", false, "Instantiate every asset, not just the container")
	cmd.Flags().BoolVar(&validateStrict, "strict", false, "Fail on a checksum mismatch")
	rootCmd.AddCommand(cmd)
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <container>",
		Short: "Validate container structure and, optionally, every asset",
		Long: `The validate command loads a container: it checks the magic and
header, locates and inflates the payload and decodes every registry.

With --deep it also instantiates every character, object and environment,
which decompresses each blob and expands each tile map.

Example:
  assetctl validate world.dgt
  assetctl validate world.dgt --deep --strict
  assetctl validate world.dgt --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args)
		},
	}
	return cmd
}

type validateReport struct {
	Path           string                `json:"path"`
	Valid          bool                  `json:"valid"`
	ChecksumStatus assets.ChecksumStatus `json:"checksum_status"`
	Assets         int                   `json:"assets"`
	Checked        int                   `json:"checked"`
	Failed         []string              `json:"failed,omitempty"`
	Stats          *assets.Stats         `json:"stats,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	if validateStrict {
		cfg.StrictChecksum = true
	}
	printVerbose("Validating container: %s\n", path)

	l, err := openContainer(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer l.Cleanup()

	meta, _ := l.Metadata()
	report := validateReport{
		Path:           path,
		ChecksumStatus: meta.ChecksumStatus,
		Assets:         meta.CountedAssets,
	}

	if validateDeep {
		f := newFactory(l)
		defer f.Close()
		reg := l.AssetData()
		for _, kind := range []types.Kind{types.KindCharacter, types.KindObject, types.KindEnvironment} {
			for _, id := range reg.IDs(kind) {
				report.Checked++
				printVerbose("  %s/%s\n", kind, id)
				if f.Create(cmd.Context(), kind, id, types.Position{}, "") == nil {
					report.Failed = append(report.Failed, fmt.Sprintf("%s/%s", kind, id))
				}
			}
		}
		st := f.Stats()
		report.Stats = &st
	}
	report.Valid = len(report.Failed) == 0

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printInfo("\nValidation: %s\n", path)
		printInfo("  ✓ Header and payload valid\n")
		printInfo("  Checksum: %s\n", report.ChecksumStatus)
		if validateDeep {
			printInfo("  Instantiated: %d/%d\n", report.Checked-len(report.Failed), report.Checked)
			for _, id := range report.Failed {
				printInfo("  ✗ %s\n", id)
			}
		}
	}

	if !report.Valid {
		return fmt.Errorf("%d of %d assets failed to instantiate", len(report.Failed), report.Checked)
	}
	return nil
}
