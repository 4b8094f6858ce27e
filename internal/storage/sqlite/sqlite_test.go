package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinlayout/sceneedit/internal/cache"
	"github.com/twinlayout/sceneedit/internal/database"
	"github.com/twinlayout/sceneedit/internal/storage"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func testScene() *core.Scene {
	return &core.Scene{
		ID:       "plant",
		Name:     "Plant",
		Floors:   []core.Floor{{ID: "f1", Name: "Ground"}},
		Entities: []core.Entity{{ID: "c", Type: core.TypeColumn, FloorLevel: "f1", Position: core.Vec3{X: 2, Z: 3}}},
	}
}

func TestCloseWritesFinalDump(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "dump.db")
	b, err := New(Config{DSN: filepath.Join(dir, "live.db"), DumpPath: dump}, cache.NewRowCache(), cache.NewSceneCache(), nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.SaveScene(testScene()))
	require.NoError(t, b.Close())

	assert.FileExists(t, dump)

	db, err := database.GetSqliteDB(dump)
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Table("entity_records").Where("scene_id = ?", "plant").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSnapshotLoopSkipsIdleDatabase(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "periodic.db")
	b, err := New(Config{DSN: filepath.Join(dir, "live.db"), DumpPath: dump, DumpInterval: 10 * time.Millisecond}, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fileExists(dump), "nothing written, nothing to snapshot")

	require.NoError(t, b.SaveScene(testScene()))
	require.NoError(t, b.Flush())
	assert.Eventually(t, func() bool {
		return fileExists(dump)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDumpOnDemand(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "now.db")
	b, err := New(Config{DSN: filepath.Join(dir, "live.db"), DumpPath: dump}, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.Dump())
	assert.FileExists(t, dump)
}

func TestWithoutDumpPath(t *testing.T) {
	b, err := New(Config{DSN: filepath.Join(t.TempDir(), "live.db")}, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.SaveScene(testScene()))
	got, err := b.LoadScene("plant")
	require.NoError(t, err)
	assert.Equal(t, "Plant", got.Name)

	assert.NoError(t, b.Close())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
