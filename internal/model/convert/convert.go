// Package convert maps scenes to GORM rows and back.
package convert

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/twinlayout/sceneedit/internal/geo"
	"github.com/twinlayout/sceneedit/internal/model"
	"github.com/twinlayout/sceneedit/pkg/core"
	"gorm.io/datatypes"
)

// Rows is the row set persisting one scene.
type Rows struct {
	Scene    model.Scene
	Floors   []model.FloorLevel
	Entities []model.EntityRecord
}

// EntityIDs lists the entity keys in row order.
func (r Rows) EntityIDs() []string {
	ids := make([]string, len(r.Entities))
	for i, e := range r.Entities {
		ids[i] = e.EntityID
	}
	return ids
}

func toJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// CoreToScene converts a scene into its rows.
func CoreToScene(s *core.Scene) (Rows, error) {
	rows := Rows{
		Scene: model.Scene{
			ID:        s.ID,
			Name:      s.Name,
			UpdatedAt: s.UpdatedAt,
		},
		Floors:   make([]model.FloorLevel, len(s.Floors)),
		Entities: make([]model.EntityRecord, len(s.Entities)),
	}
	for i, f := range s.Floors {
		rows.Floors[i] = model.FloorLevel{SceneID: s.ID, FloorID: f.ID, Name: f.Name, Ordinal: i}
	}
	for i, e := range s.Entities {
		rec, err := CoreToEntity(s.ID, i, e)
		if err != nil {
			return Rows{}, fmt.Errorf("entity %s: %w", e.ID, err)
		}
		rows.Entities[i] = rec
	}
	return rows, nil
}

// CoreToEntity converts one entity to its row. Outlines without two distinct
// points cannot form a LineString and are not persisted.
func CoreToEntity(sceneID string, ordinal int, e core.Entity) (model.EntityRecord, error) {
	rec := model.EntityRecord{
		SceneID:    sceneID,
		EntityID:   e.ID,
		Ordinal:    ordinal,
		Type:       e.Type.String(),
		Name:       e.Name,
		Color:      e.Color,
		Opacity:    e.Opacity,
		Visible:    e.Visible,
		Locked:     e.Locked,
		IsBaseMap:  e.IsBaseMap,
		FloorLevel: e.FloorLevel,
		ParentID:   e.ParentID,
		SourceID:   e.SourceID,
		TargetID:   e.TargetID,
	}

	var err error
	if rec.Position, err = geo.PointZ(e.Position); err != nil {
		return rec, fmt.Errorf("position: %w", err)
	}
	if rec.Outline, err = geo.ToLineString(e.Points); err != nil {
		return rec, fmt.Errorf("outline: %w", err)
	}
	if rec.Rotation, err = toJSON(e.Rotation); err != nil {
		return rec, err
	}
	if rec.Scale, err = toJSON(e.Scale); err != nil {
		return rec, err
	}
	if e.RelativePosition != nil {
		if rec.RelativePosition, err = toJSON(e.RelativePosition); err != nil {
			return rec, err
		}
	}
	if e.Children != nil {
		if rec.Children, err = toJSON(e.Children); err != nil {
			return rec, err
		}
	}
	if e.Metadata != nil {
		if rec.Metadata, err = toJSON(e.Metadata); err != nil {
			return rec, fmt.Errorf("metadata: %w", err)
		}
	}
	return rec, nil
}

// EntityToCore converts a row back into an entity.
func EntityToCore(rec model.EntityRecord) (core.Entity, error) {
	t, err := core.ParseEntityType(rec.Type)
	if err != nil {
		return core.Entity{}, err
	}

	e := core.Entity{
		ID:         rec.EntityID,
		Type:       t,
		Name:       rec.Name,
		Position:   geo.Vec3FromPoint(rec.Position),
		Color:      rec.Color,
		Opacity:    rec.Opacity,
		Visible:    rec.Visible,
		Locked:     rec.Locked,
		IsBaseMap:  rec.IsBaseMap,
		FloorLevel: rec.FloorLevel,
		ParentID:   rec.ParentID,
		Points:     geo.FromLineString(rec.Outline),
		SourceID:   rec.SourceID,
		TargetID:   rec.TargetID,
	}

	if len(rec.Rotation) > 0 {
		if err := json.Unmarshal(rec.Rotation, &e.Rotation); err != nil {
			return e, fmt.Errorf("rotation: %w", err)
		}
	}
	if len(rec.Scale) > 0 {
		if err := json.Unmarshal(rec.Scale, &e.Scale); err != nil {
			return e, fmt.Errorf("scale: %w", err)
		}
	}
	if len(rec.RelativePosition) > 0 && string(rec.RelativePosition) != "null" {
		var rel core.Vec3
		if err := json.Unmarshal(rec.RelativePosition, &rel); err != nil {
			return e, fmt.Errorf("relativePosition: %w", err)
		}
		e.RelativePosition = &rel
	}
	if len(rec.Children) > 0 {
		if err := json.Unmarshal(rec.Children, &e.Children); err != nil {
			return e, fmt.Errorf("children: %w", err)
		}
	}
	if len(rec.Metadata) > 0 {
		if err := json.Unmarshal(rec.Metadata, &e.Metadata); err != nil {
			return e, fmt.Errorf("metadata: %w", err)
		}
	}
	return e, nil
}

// SceneToCore rebuilds a scene from its rows. Floors and entities are
// ordered by their ordinals.
func SceneToCore(rows Rows) (*core.Scene, error) {
	floors := append([]model.FloorLevel(nil), rows.Floors...)
	sort.SliceStable(floors, func(i, j int) bool { return floors[i].Ordinal < floors[j].Ordinal })
	records := append([]model.EntityRecord(nil), rows.Entities...)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Ordinal < records[j].Ordinal })

	s := &core.Scene{
		ID:        rows.Scene.ID,
		Name:      rows.Scene.Name,
		UpdatedAt: rows.Scene.UpdatedAt,
		Floors:    make([]core.Floor, len(floors)),
		Entities:  make([]core.Entity, len(records)),
	}
	for i, f := range floors {
		s.Floors[i] = core.Floor{ID: f.FloorID, Name: f.Name}
	}
	for i, rec := range records {
		e, err := EntityToCore(rec)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", rec.EntityID, err)
		}
		s.Entities[i] = e
	}
	return s, nil
}
