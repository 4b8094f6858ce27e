// pkg/core/entity.go
package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEntityType is returned when decoding a type tag outside the taxonomy.
var ErrUnknownEntityType = errors.New("unknown entity type")

// EntityType is the closed taxonomy of placeable scene objects.
type EntityType uint8

const (
	TypeWall EntityType = iota
	TypeCurvedWall
	TypePolygonFloor
	TypeFloor
	TypeColumn
	TypeDoor
	TypeCube
	TypeCNC
	TypeCustomModel
	TypeWaypoint
	TypePathLine
	TypePoint
	TypePath
	TypeGroup
	TypeMapImage
)

var entityTypeNames = [...]string{
	TypeWall:         "wall",
	TypeCurvedWall:   "curved_wall",
	TypePolygonFloor: "polygon_floor",
	TypeFloor:        "floor",
	TypeColumn:       "column",
	TypeDoor:         "door",
	TypeCube:         "cube",
	TypeCNC:          "cnc",
	TypeCustomModel:  "custom_model",
	TypeWaypoint:     "waypoint",
	TypePathLine:     "path_line",
	TypePoint:        "point",
	TypePath:         "path",
	TypeGroup:        "group",
	TypeMapImage:     "map_image",
}

// EntityTypes lists every member of the taxonomy in declaration order.
func EntityTypes() []EntityType {
	out := make([]EntityType, len(entityTypeNames))
	for i := range entityTypeNames {
		out[i] = EntityType(i)
	}
	return out
}

func (t EntityType) String() string {
	if int(t) < len(entityTypeNames) {
		return entityTypeNames[t]
	}
	return fmt.Sprintf("EntityType(%d)", uint8(t))
}

// ParseEntityType maps a type tag such as "curved_wall" to its EntityType.
func ParseEntityType(s string) (EntityType, error) {
	for i, name := range entityTypeNames {
		if name == s {
			return EntityType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEntityType, s)
}

// MarshalJSON encodes the type as its string tag.
func (t EntityType) MarshalJSON() ([]byte, error) {
	if int(t) >= len(entityTypeNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntityType, uint8(t))
	}
	return json.Marshal(entityTypeNames[t])
}

// UnmarshalJSON decodes a string tag.
func (t *EntityType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEntityType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsGroup reports whether the type aggregates members instead of owning geometry.
func (t EntityType) IsGroup() bool {
	switch t {
	case TypeGroup:
		return true
	case TypeWall, TypeCurvedWall, TypePolygonFloor, TypeFloor, TypeColumn, TypeDoor,
		TypeCube, TypeCNC, TypeCustomModel, TypeWaypoint, TypePathLine, TypePoint,
		TypePath, TypeMapImage:
		return false
	}
	panic(fmt.Sprintf("unhandled entity type %d", uint8(t)))
}

// HasOutline reports whether entities of this type carry an ordered points list.
func (t EntityType) HasOutline() bool {
	switch t {
	case TypeWall, TypeCurvedWall, TypePolygonFloor, TypePathLine:
		return true
	case TypeFloor, TypeColumn, TypeDoor, TypeCube, TypeCNC, TypeCustomModel,
		TypeWaypoint, TypePoint, TypePath, TypeGroup, TypeMapImage:
		return false
	}
	panic(fmt.Sprintf("unhandled entity type %d", uint8(t)))
}

// Snappable reports whether entities of this type contribute snap candidates.
// Groups have no geometry of their own and base maps are reference imagery.
func (t EntityType) Snappable() bool {
	switch t {
	case TypeGroup, TypeMapImage:
		return false
	case TypeWall, TypeCurvedWall, TypePolygonFloor, TypeFloor, TypeColumn, TypeDoor,
		TypeCube, TypeCNC, TypeCustomModel, TypeWaypoint, TypePathLine, TypePoint, TypePath:
		return true
	}
	panic(fmt.Sprintf("unhandled entity type %d", uint8(t)))
}

// Entity is a single placeable scene object.
//
// Position is world-space unless ParentID is set, in which case
// RelativePosition (offset from the parent's position) is authoritative.
type Entity struct {
	ID               string         `json:"id"`
	Type             EntityType     `json:"type"`
	Name             string         `json:"name"`
	Position         Vec3           `json:"position"`
	Rotation         Vec3           `json:"rotation"`
	Scale            Vec3           `json:"scale"`
	Color            string         `json:"color,omitempty"`
	Opacity          float64        `json:"opacity"`
	Visible          bool           `json:"visible"`
	Locked           bool           `json:"locked"`
	IsBaseMap        bool           `json:"isBaseMap,omitempty"`
	FloorLevel       string         `json:"floorLevel,omitempty"`
	ParentID         string         `json:"parentId,omitempty"`
	RelativePosition *Vec3          `json:"relativePosition,omitempty"`
	Points           []Vec2         `json:"points,omitempty"`
	Children         []string       `json:"children,omitempty"`
	SourceID         string         `json:"sourceId,omitempty"`
	TargetID         string         `json:"targetId,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// BaseMap reports whether the entity is reference imagery that may never be
// deleted by a standard delete nor grouped.
func (e Entity) BaseMap() bool {
	return e.IsBaseMap || e.Type == TypeMapImage
}

// HasParent reports whether the entity is a group member.
func (e Entity) HasParent() bool {
	return e.ParentID != ""
}

// Clone returns a structurally independent copy of e.
func (e Entity) Clone() Entity {
	c := e
	if e.RelativePosition != nil {
		rel := *e.RelativePosition
		c.RelativePosition = &rel
	}
	if e.Points != nil {
		c.Points = append([]Vec2(nil), e.Points...)
	}
	if e.Children != nil {
		c.Children = append([]string(nil), e.Children...)
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// CloneEntities deep-copies an entity slice. A nil input yields an empty slice.
func CloneEntities(in []Entity) []Entity {
	out := make([]Entity, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
