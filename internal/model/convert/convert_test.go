package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinlayout/sceneedit/internal/model"
	"github.com/twinlayout/sceneedit/pkg/core"
)

func TestCoreToEntity_MapsColumns(t *testing.T) {
	rel := core.Vec3{X: 1, Y: 0, Z: -2}
	e := core.Entity{
		ID:               "a",
		Type:             core.TypeCurvedWall,
		Name:             "Curve",
		Position:         core.Vec3{X: 3, Y: 1.5, Z: 4},
		Rotation:         core.Vec3{Y: 90},
		Scale:            core.Vec3{X: 1, Y: 1, Z: 1},
		Visible:          true,
		FloorLevel:       "f1",
		ParentID:         "g",
		RelativePosition: &rel,
		Points:           []core.Vec2{{X: 0, Z: 0}, {X: 2, Z: 1}},
		Metadata:         map[string]any{"tag": "A-1"},
	}

	rec, err := CoreToEntity("s1", 4, e)
	require.NoError(t, err)

	assert.Equal(t, "s1", rec.SceneID)
	assert.Equal(t, "a", rec.EntityID)
	assert.Equal(t, 4, rec.Ordinal)
	assert.Equal(t, "curved_wall", rec.Type)
	assert.JSONEq(t, `{"x":1,"y":0,"z":-2}`, string(rec.RelativePosition))
	assert.JSONEq(t, `{"tag":"A-1"}`, string(rec.Metadata))
	assert.Equal(t, 2, rec.Outline.Coordinates().Length())

	c, ok := rec.Position.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 3.0, c.X)
	assert.Equal(t, 4.0, c.Y)
	assert.Equal(t, 1.5, c.Z)
}

func TestCoreToEntity_UngroupedHasNoRelativePosition(t *testing.T) {
	rec, err := CoreToEntity("s1", 0, core.Entity{ID: "a", Type: core.TypeCube})
	require.NoError(t, err)
	assert.Empty(t, rec.RelativePosition)
	assert.Empty(t, rec.Children)
	assert.True(t, rec.Outline.IsEmpty())
}

func TestEntityToCore_RejectsUnknownType(t *testing.T) {
	_, err := EntityToCore(model.EntityRecord{EntityID: "x", Type: "spaceship"})
	assert.ErrorIs(t, err, core.ErrUnknownEntityType)
}

func TestSceneRowsRoundTrip(t *testing.T) {
	rel := core.Vec3{X: -1}
	s := &core.Scene{
		ID:        "s1",
		Name:      "Plant",
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Floors:    []core.Floor{{ID: "f1", Name: "Ground"}, {ID: "f2", Name: "Upper"}},
		Entities: []core.Entity{
			{ID: "g", Type: core.TypeGroup, Position: core.Vec3{X: 5}, Children: []string{"a"}, FloorLevel: "f1"},
			{ID: "a", Type: core.TypeCube, Position: core.Vec3{X: 4}, ParentID: "g", RelativePosition: &rel, FloorLevel: "f1"},
			{ID: "w", Type: core.TypeWall, Points: []core.Vec2{{X: 0}, {X: 3, Z: 1}}, FloorLevel: "f2"},
		},
	}

	rows, err := CoreToScene(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"g", "a", "w"}, rows.EntityIDs())

	// storage may hand rows back in any order
	rows.Entities[0], rows.Entities[2] = rows.Entities[2], rows.Entities[0]
	rows.Floors[0], rows.Floors[1] = rows.Floors[1], rows.Floors[0]

	got, err := SceneToCore(rows)
	require.NoError(t, err)

	assert.Equal(t, s.Floors, got.Floors)
	assert.Equal(t, s.UpdatedAt, got.UpdatedAt)
	require.Len(t, got.Entities, 3)
	assert.Equal(t, "g", got.Entities[0].ID)
	assert.Equal(t, []string{"a"}, got.Entities[0].Children)
	require.NotNil(t, got.Entities[1].RelativePosition)
	assert.Equal(t, rel, *got.Entities[1].RelativePosition)
	assert.Equal(t, core.Vec3{X: 4}, got.Entities[1].Position)
	assert.Equal(t, s.Entities[2].Points, got.Entities[2].Points)
}
