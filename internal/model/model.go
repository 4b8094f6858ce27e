package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Scene{},
	&FloorLevel{},
	&EntityRecord{},
}

////////////////////////
// SCENE MODELS
////////////////////////

// Scene is one facility layout
type Scene struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Name      string    `json:"name" gorm:"size:200"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"index:idx_scene_updated_at"`
}

func (*Scene) TableName() string {
	return "scenes"
}

// FloorLevel is one floor of a scene. Ordinal keeps the scene's floor order.
type FloorLevel struct {
	SceneID string `json:"sceneId" gorm:"primaryKey;size:64"`
	FloorID string `json:"floorId" gorm:"primaryKey;size:64"`
	Name    string `json:"name" gorm:"size:200"`
	Ordinal int    `json:"ordinal"`
}

func (*FloorLevel) TableName() string {
	return "floor_levels"
}

// EntityRecord is a placed scene object.
// Uses composite primary key (SceneID, EntityID); Ordinal keeps collection order.
type EntityRecord struct {
	SceneID          string          `json:"sceneId" gorm:"primaryKey;size:64"`
	EntityID         string          `json:"entityId" gorm:"primaryKey;size:64"`
	Ordinal          int             `json:"ordinal" gorm:"index:idx_entity_ordinal"`
	Type             string          `json:"type" gorm:"size:32"`
	Name             string          `json:"name" gorm:"size:200"`
	Position         geom.Point      `json:"position"`                     // XYZ, Z holds elevation
	Rotation         datatypes.JSON  `json:"rotation"`                     // {x,y,z} euler angles
	Scale            datatypes.JSON  `json:"scale"`                        // {x,y,z}
	Color            string          `json:"color" gorm:"size:32"`
	Opacity          float64         `json:"opacity"`
	Visible          bool            `json:"visible"`
	Locked           bool            `json:"locked"`
	IsBaseMap        bool            `json:"isBaseMap"`
	FloorLevel       string          `json:"floorLevel" gorm:"size:64;index:idx_entity_floor"`
	ParentID         string          `json:"parentId" gorm:"size:64;index:idx_entity_parent"`
	RelativePosition datatypes.JSON  `json:"relativePosition"`             // null unless grouped
	Outline          geom.LineString `json:"outline"`                      // local offsets, empty for non-outline types
	Children         datatypes.JSON  `json:"children"`                     // ordered member ids
	SourceID         string          `json:"sourceId" gorm:"size:64"`
	TargetID         string          `json:"targetId" gorm:"size:64"`
	Metadata         datatypes.JSON  `json:"metadata"`
}

func (*EntityRecord) TableName() string {
	return "entity_records"
}
