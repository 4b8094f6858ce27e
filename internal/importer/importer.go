// Package importer decodes floor/scene descriptors into a scene ready to be
// loaded by the editor.
package importer

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/internal/geo"
	"github.com/twinlayout/sceneedit/pkg/core"
)

var (
	// ErrInvalidDescriptor is returned for malformed or inconsistent input.
	ErrInvalidDescriptor = errors.New("invalid scene descriptor")
	// ErrNoOrigin is returned when waypoints are given without a georeference.
	ErrNoOrigin = errors.New("waypoints require an origin")
)

// Descriptor is the scene document accepted by Decode.
type Descriptor struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	FloorLevels []FloorLevel      `json:"floorLevels"`
	Objects     []json.RawMessage `json:"objects,omitempty"`
	Origin      *geo.GeoOrigin    `json:"origin,omitempty"`
	Waypoints   []Waypoint        `json:"waypoints,omitempty"`
}

// FloorLevel is one level with its objects. BaseMapData is the reference
// image (usually a data URL) shown underneath the floor.
type FloorLevel struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Objects     []json.RawMessage `json:"objects"`
	BaseMapData string            `json:"baseMapData,omitempty"`
}

// Waypoint is a georeferenced route point.
type Waypoint struct {
	Name  string  `json:"name,omitempty"`
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Floor string  `json:"floor,omitempty"`
}

// BaseMapImageKey is the metadata key holding a base map's image data.
const BaseMapImageKey = "image"

// ImportFile reads a descriptor from path. Files ending in .gz are
// decompressed; .yaml and .yml documents are accepted besides JSON.
func ImportFile(path string) (*core.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := path
	var r io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
		}
		defer zr.Close()
		r = zr
		name = strings.TrimSuffix(name, ".gz")
	}
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return DecodeYAML(r)
	}
	return Decode(r)
}

// Decode parses a JSON descriptor and builds the scene.
func Decode(r io.Reader) (*core.Scene, error) {
	var d Descriptor
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return Build(d)
}

// DecodeYAML parses a YAML descriptor. The document is re-encoded as JSON so
// objects go through the same decoding as Decode.
func DecodeYAML(r io.Reader) (*core.Scene, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return Build(d)
}

// Build turns a descriptor into a scene. Floor objects are stamped with
// their floor's id, each baseMapData becomes a map_image base map and
// waypoints are placed as points joined by paths. The result passes the
// membership integrity check.
func Build(d Descriptor) (*core.Scene, error) {
	s := &core.Scene{
		ID:        d.ID,
		Name:      d.Name,
		Floors:    make([]core.Floor, 0, len(d.FloorLevels)),
		Entities:  []core.Entity{},
		UpdatedAt: time.Now().UTC(),
	}
	if s.ID == "" {
		s.ID = entity.NewID()
	}

	for i, raw := range d.Objects {
		e, err := decodeObject(raw)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		s.Entities = append(s.Entities, e)
	}

	seenFloors := make(map[string]bool, len(d.FloorLevels))
	for _, fl := range d.FloorLevels {
		if fl.ID == "" {
			return nil, fmt.Errorf("%w: floor without id", ErrInvalidDescriptor)
		}
		if seenFloors[fl.ID] {
			return nil, fmt.Errorf("%w: duplicate floor %s", ErrInvalidDescriptor, fl.ID)
		}
		seenFloors[fl.ID] = true
		s.Floors = append(s.Floors, core.Floor{ID: fl.ID, Name: fl.Name})

		hasBaseMap := false
		for i, raw := range fl.Objects {
			e, err := decodeObject(raw)
			if err != nil {
				return nil, fmt.Errorf("floor %s object %d: %w", fl.ID, i, err)
			}
			e.FloorLevel = fl.ID
			hasBaseMap = hasBaseMap || e.BaseMap()
			s.Entities = append(s.Entities, e)
		}
		if fl.BaseMapData != "" && !hasBaseMap {
			s.Entities = append(s.Entities, baseMap(fl))
		}
	}

	if len(d.Waypoints) > 0 {
		if d.Origin == nil {
			return nil, ErrNoOrigin
		}
		var err error
		if s.Entities, err = placeWaypoints(*d.Origin, d.Waypoints, s.Entities); err != nil {
			return nil, err
		}
	}

	if err := checkIDs(s.Entities); err != nil {
		return nil, err
	}
	if err := entity.CheckIntegrity(s.Entities); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return s, nil
}

// decodeObject decodes one entity over the factory defaults, so omitted
// visibility, opacity and scale keep sensible values. Unknown type tags are
// rejected.
func decodeObject(raw json.RawMessage) (core.Entity, error) {
	var probe struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return core.Entity{}, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if probe.Type == nil {
		return core.Entity{}, fmt.Errorf("%w: object has no type", ErrInvalidDescriptor)
	}

	e := core.Entity{
		Scale:   core.Vec3{X: 1, Y: 1, Z: 1},
		Opacity: 1,
		Visible: true,
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return core.Entity{}, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	if e.ID == "" {
		e.ID = entity.NewID()
	}
	return e, nil
}

func baseMap(fl FloorLevel) core.Entity {
	name := fl.Name
	if name == "" {
		name = fl.ID
	}
	return core.Entity{
		ID:         entity.NewID(),
		Type:       core.TypeMapImage,
		Name:       name + " base map",
		Scale:      core.Vec3{X: 1, Y: 1, Z: 1},
		Opacity:    1,
		Visible:    true,
		Locked:     true,
		IsBaseMap:  true,
		FloorLevel: fl.ID,
		Metadata:   map[string]any{BaseMapImageKey: fl.BaseMapData},
	}
}

func placeWaypoints(origin geo.GeoOrigin, wps []Waypoint, entities []core.Entity) ([]core.Entity, error) {
	var prev string
	for i, wp := range wps {
		p := entity.CreatePoint(geo.LocalFromLonLat(origin, wp.Lon, wp.Lat).At(0))
		p.FloorLevel = wp.Floor
		if wp.Name != "" {
			p.Name = wp.Name
		} else {
			p.Name = fmt.Sprintf("Waypoint %d", i+1)
		}
		entities = append(entities, p)

		if prev != "" {
			path, err := entity.CreatePath(prev, p.ID, entities)
			if err != nil {
				return nil, err
			}
			entities = append(entities, path)
		}
		prev = p.ID
	}
	return entities, nil
}

func checkIDs(entities []core.Entity) error {
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate entity id %s", ErrInvalidDescriptor, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}
