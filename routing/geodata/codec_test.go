package geodata_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosrv/live-dataset-routing-go/routing"
	"github.com/geosrv/live-dataset-routing-go/routing/geodata"
	"github.com/geosrv/live-dataset-routing-go/testutil/fixtures"
)

func Test_SnapshotFile_WriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "berlin.snapshot")

	err := geodata.WriteSnapshotFile(path, "berlin", 7, fixtures.TriangleNodes(), fixtures.TriangleEdges())
	require.NoError(t, err)

	graph, err := geodata.LoadSnapshotFile(path)
	require.NoError(t, err)

	assert.Equal(t, "berlin", graph.RegionName())
	assert.Equal(t, uint64(7), graph.Version())

	// The loaded graph answers queries like the in-memory original.
	from, ok := graph.Snap(routing.Coordinate{Lon: 13.400, Lat: 52.520})
	require.True(t, ok)
	to, ok := graph.Snap(routing.Coordinate{Lon: 13.410, Lat: 52.520})
	require.True(t, ok)

	path2, ok := graph.Route(from, to)
	require.True(t, ok)
	assert.InDelta(t, 60, path2.Duration, 0.001)
}

func Test_WriteSnapshotFile_RejectsInvalidGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.snapshot")

	err := geodata.WriteSnapshotFile(path, "", 1, fixtures.TriangleNodes(), fixtures.TriangleEdges())

	assert.ErrorIs(t, err, geodata.ErrEmptyRegionName)
	assert.NoFileExists(t, path, "validation failures must not leave a file behind")
}

func Test_LoadSnapshotFile_MissingFile(t *testing.T) {
	graph, err := geodata.LoadSnapshotFile(filepath.Join(t.TempDir(), "nope.snapshot"))

	assert.Nil(t, graph)
	assert.ErrorIs(t, err, geodata.ErrReadingSnapshotFailed)
}

func Test_LoadSnapshotFile_GarbageContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.snapshot")
	require.NoError(t, os.WriteFile(path, []byte("this is not a snapshot"), 0o600))

	graph, err := geodata.LoadSnapshotFile(path)

	assert.Nil(t, graph)
	assert.ErrorIs(t, err, geodata.ErrReadingSnapshotFailed)
}

func Test_LoadSnapshotFile_UnsupportedFormatVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.snapshot")
	writeRawSnapshot(t, path, map[string]any{
		"format_version": 99,
		"region_name":    "berlin",
		"version":        1,
		"nodes":          fixtures.TriangleNodes(),
		"edges":          fixtures.TriangleEdges(),
	})

	graph, err := geodata.LoadSnapshotFile(path)

	assert.Nil(t, graph)
	assert.ErrorIs(t, err, geodata.ErrUnsupportedSnapshotFormat)
}

func Test_LoadSnapshotFile_InvalidGraphPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.snapshot")
	writeRawSnapshot(t, path, map[string]any{
		"format_version": 1,
		"region_name":    "berlin",
		"version":        1,
		"nodes":          []geodata.Node{},
		"edges":          []geodata.Edge{},
	})

	graph, err := geodata.LoadSnapshotFile(path)

	assert.Nil(t, graph)
	assert.ErrorIs(t, err, geodata.ErrReadingSnapshotFailed)
	assert.ErrorIs(t, err, geodata.ErrNoNodes)
}

// writeRawSnapshot writes an arbitrary document in the snapshot file layout,
// bypassing WriteSnapshotFile's validation.
func writeRawSnapshot(t *testing.T, path string, doc map[string]any) {
	t.Helper()

	payload, err := jsoniter.ConfigFastest.Marshal(doc)
	require.NoError(t, err)

	var buf bytes.Buffer
	encoder, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = encoder.Write(payload)
	require.NoError(t, err)
	require.NoError(t, encoder.Close())

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}
