package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/rfd62794/rpgCore-sub007/internal/config"
	"github.com/rfd62794/rpgCore-sub007/internal/testutil"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// sampleContainer writes a small container and returns its path.
func sampleContainer(t *testing.T) string {
	t.Helper()
	return testutil.NewBuilder().
		Palette("day", []int{255, 0, 0}, []int{0, 255, 0}).
		Palette("night", []int{0, 0, 64}).
		Sprite("hero", [][]int32{{0, 1}, {types.NoPixel, 1}}, map[string]any{"palette": "day"}).
		Tile("grass", map[string]any{"walkable": true}).
		Object("chest", testutil.ObjectSpec{Pixels: [][]int32{{1}}, Palette: "day"}, "open_chest").
		Environment("village", 3, 2, [][2]int64{{5, 3}, {0, 3}},
			[]testutil.PlacementSpec{{Type: "chest", X: 1, Y: 1}},
			[]map[string]any{{"name": "elder"}}).
		Interaction("open_chest", map[string]any{"type": "loot"}).
		DialogueSet("chest_lines", map[string]any{"text": "Locked."}).
		Write(t)
}

// resetFlags restores global flag state between cases.
func resetFlags(t *testing.T, asJSON bool) {
	t.Helper()
	quiet = false
	verbose = false
	jsonOut = asJSON
	configPath = ""
	cfg = config.Default()
	validateDeep = false
	validateStrict = false
	inspectVariant = ""
	inspectPreview = false
}

// withContext gives cmd the test's context, as Execute would.
func withContext(t *testing.T, cmd *cobra.Command) *cobra.Command {
	cmd.SetContext(t.Context())
	return cmd
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return string(<-done), fnErr
}

// decodeJSON unmarshals captured output into v.
func decodeJSON(t *testing.T, output string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(output), v), "output: %s", output)
}
