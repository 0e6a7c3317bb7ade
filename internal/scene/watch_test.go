package scene

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-grass/internal/engine/terrain"
	"github.com/Faultbox/midgard-grass/internal/grass"
)

func TestWatchPatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meadow.yaml")
	p := grass.NewPatch("meadow")
	p.Vertices = grass.Scatter(terrain.Flat(4, 1), 3, 4, 1)
	require.NoError(t, p.Save(path))

	w, err := WatchPatch(path)
	require.NoError(t, err)
	defer w.Close()

	p.Settings.Form.MaxSegments = 5
	p.Vertices = grass.Scatter(terrain.Flat(4, 1), 7, 4, 2)
	require.NoError(t, p.Save(path))

	// Partial writes may be delivered first; wait for the complete file.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-w.Patches():
			require.NotNil(t, got)
			if got.Settings.Form.MaxSegments != 5 || len(got.Vertices) != 7 {
				continue
			}
			assert.Equal(t, p.Vertices, got.Vertices)
			assert.NotNil(t, got.Settings.Wind.Noise)
			return
		case <-deadline:
			t.Fatal("patch change was not delivered")
		}
	}
}

func TestWatchPatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.yaml")
	require.NoError(t, grass.NewPatch("a").Save(path))

	w, err := WatchPatch(path)
	require.NoError(t, err)

	require.NoError(t, grass.NewPatch("b").Save(filepath.Join(dir, "b.yaml")))

	select {
	case got := <-w.Patches():
		t.Fatalf("unexpected reload of %s", got.Name)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, w.Close())
	_, open := <-w.Patches()
	assert.False(t, open, "Close should end the stream")
}

func TestWatchPatchMissingDir(t *testing.T) {
	_, err := WatchPatch(filepath.Join(t.TempDir(), "nope", "p.yaml"))
	assert.Error(t, err)
}
