package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinlayout/sceneedit/internal/database"
	"github.com/twinlayout/sceneedit/internal/model"
	"github.com/twinlayout/sceneedit/internal/storage"
	"github.com/twinlayout/sceneedit/pkg/core"
	"gorm.io/gorm"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "scenes.db"))
	require.NoError(t, err)
	return db
}

func newTestBackend(t *testing.T, db *gorm.DB) *Backend {
	t.Helper()
	b := New(Dependencies{DB: db})
	b.SetWriteInterval(time.Hour)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testScene() *core.Scene {
	rel := core.Vec3{X: -1, Z: 0.5}
	return &core.Scene{
		ID:     "plant",
		Name:   "Plant",
		Floors: []core.Floor{{ID: "f1", Name: "Ground"}, {ID: "f2", Name: "Upper"}},
		Entities: []core.Entity{
			{ID: "g", Type: core.TypeGroup, Position: core.Vec3{X: 5}, Children: []string{"a"}, FloorLevel: "f1", Scale: core.Vec3{X: 1, Y: 1, Z: 1}, Opacity: 1, Visible: true},
			{ID: "a", Type: core.TypeCube, Position: core.Vec3{X: 4, Y: 2, Z: 0.5}, ParentID: "g", RelativePosition: &rel, FloorLevel: "f1", Opacity: 1, Visible: true},
			{ID: "w", Type: core.TypeWall, Position: core.Vec3{X: 1, Z: 1}, Points: []core.Vec2{{X: 0}, {X: 3, Z: 1}}, FloorLevel: "f2", Color: "#ccc"},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, m any, sceneID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Where("scene_id = ?", sceneID).Count(&n).Error)
	return n
}

func TestInitRequiresDB(t *testing.T) {
	b := New(Dependencies{})
	assert.ErrorIs(t, b.Init(), storage.ErrNotInitialized)
}

func TestSaveQueuesUntilFlush(t *testing.T) {
	db := testDB(t)
	b := newTestBackend(t, db)

	require.NoError(t, b.SaveScene(testScene()))
	assert.Equal(t, 1, b.Pending())
	assert.Equal(t, int64(0), countRows(t, db, &model.EntityRecord{}, "plant"))

	require.NoError(t, b.Flush())
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, int64(3), countRows(t, db, &model.EntityRecord{}, "plant"))
	assert.Equal(t, int64(2), countRows(t, db, &model.FloorLevel{}, "plant"))
}

func TestSaveCoalescesPendingWrites(t *testing.T) {
	b := newTestBackend(t, testDB(t))

	s := testScene()
	require.NoError(t, b.SaveScene(s))
	s.Name = "Renamed"
	require.NoError(t, b.SaveScene(s))

	assert.Equal(t, 1, b.Pending())
	got, err := b.LoadScene("plant")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestLoadFromDatabase(t *testing.T) {
	db := testDB(t)
	writer := newTestBackend(t, db)
	require.NoError(t, writer.SaveScene(testScene()))
	require.NoError(t, writer.Flush())

	// fresh caches force a DB read
	reader := newTestBackend(t, db)
	got, err := reader.LoadScene("plant")
	require.NoError(t, err)

	want := testScene()
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Floors, got.Floors)
	require.Len(t, got.Entities, 3)
	for i := range want.Entities {
		assert.Equal(t, want.Entities[i].ID, got.Entities[i].ID)
		assert.Equal(t, want.Entities[i].Type, got.Entities[i].Type)
		assert.Equal(t, want.Entities[i].Position, got.Entities[i].Position)
		assert.Equal(t, want.Entities[i].ParentID, got.Entities[i].ParentID)
		assert.Equal(t, want.Entities[i].Children, got.Entities[i].Children)
		assert.Equal(t, want.Entities[i].Points, got.Entities[i].Points)
		assert.Equal(t, want.Entities[i].RelativePosition, got.Entities[i].RelativePosition)
		assert.Equal(t, want.Entities[i].Visible, got.Entities[i].Visible)
	}
	assert.Equal(t, "#ccc", got.Entities[2].Color)
}

func TestLoadUnknownScene(t *testing.T) {
	b := newTestBackend(t, testDB(t))

	_, err := b.LoadScene("missing")
	assert.ErrorIs(t, err, storage.ErrSceneNotFound)
}

func TestFlushDeletesRemovedEntities(t *testing.T) {
	db := testDB(t)
	b := newTestBackend(t, db)

	s := testScene()
	require.NoError(t, b.SaveScene(s))
	require.NoError(t, b.Flush())

	s.Entities = s.Entities[2:]
	s.Floors = s.Floors[1:]
	require.NoError(t, b.SaveScene(s))
	require.NoError(t, b.Flush())

	assert.Equal(t, int64(1), countRows(t, db, &model.EntityRecord{}, "plant"))
	assert.Equal(t, int64(1), countRows(t, db, &model.FloorLevel{}, "plant"))
}

func TestFlushReplacesRowsWhenPreviousSetUnknown(t *testing.T) {
	db := testDB(t)
	first := newTestBackend(t, db)
	require.NoError(t, first.SaveScene(testScene()))
	require.NoError(t, first.Flush())

	second := newTestBackend(t, db)
	s := testScene()
	s.Entities = s.Entities[:1]
	s.Entities[0].Children = nil
	require.NoError(t, second.SaveScene(s))
	require.NoError(t, second.Flush())

	assert.Equal(t, int64(1), countRows(t, db, &model.EntityRecord{}, "plant"))
}

func TestListScenesIncludesPending(t *testing.T) {
	b := newTestBackend(t, testDB(t))

	s := testScene()
	require.NoError(t, b.SaveScene(s))
	require.NoError(t, b.Flush())
	s.ID = "annex"
	require.NoError(t, b.SaveScene(s))

	ids, err := b.ListScenes()
	require.NoError(t, err)
	assert.Equal(t, []string{"annex", "plant"}, ids)
}

func TestDeleteScene(t *testing.T) {
	db := testDB(t)
	b := newTestBackend(t, db)
	require.NoError(t, b.SaveScene(testScene()))
	require.NoError(t, b.Flush())

	require.NoError(t, b.DeleteScene("plant"))

	assert.Equal(t, int64(0), countRows(t, db, &model.EntityRecord{}, "plant"))
	_, err := b.LoadScene("plant")
	assert.ErrorIs(t, err, storage.ErrSceneNotFound)
	assert.ErrorIs(t, b.DeleteScene("plant"), storage.ErrSceneNotFound)
}

func TestDeletePendingSceneCancelsWrite(t *testing.T) {
	db := testDB(t)
	b := newTestBackend(t, db)
	require.NoError(t, b.SaveScene(testScene()))

	require.NoError(t, b.DeleteScene("plant"))
	require.NoError(t, b.Flush())

	var n int64
	require.NoError(t, db.Model(&model.Scene{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestCloseFlushesPending(t *testing.T) {
	db := testDB(t)
	b := New(Dependencies{DB: db})
	b.SetWriteInterval(time.Hour)
	require.NoError(t, b.Init())
	require.NoError(t, b.SaveScene(testScene()))

	require.NoError(t, b.Close())
	assert.Equal(t, int64(3), countRows(t, db, &model.EntityRecord{}, "plant"))
}

func TestWriteLoopDrainsQueue(t *testing.T) {
	db := testDB(t)
	b := New(Dependencies{DB: db})
	b.SetWriteInterval(10 * time.Millisecond)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.SaveScene(testScene()))

	assert.Eventually(t, func() bool { return b.Pending() == 0 }, 2*time.Second, 10*time.Millisecond)
}
