package entity

import "github.com/twinlayout/sceneedit/pkg/core"

// Index is a lookup structure built once per pass over an entity slice.
// It holds positions into the slice, so it is only valid until the slice
// is replaced.
type Index struct {
	entities []core.Entity
	byID     map[string]int
	children map[string][]string
}

// NewIndex indexes entities by id and collects parentId -> child ids in
// slice order.
func NewIndex(entities []core.Entity) *Index {
	idx := &Index{
		entities: entities,
		byID:     make(map[string]int, len(entities)),
		children: make(map[string][]string),
	}
	for i, e := range entities {
		idx.byID[e.ID] = i
		if e.ParentID != "" {
			idx.children[e.ParentID] = append(idx.children[e.ParentID], e.ID)
		}
	}
	return idx
}

// Get returns the entity with the given id.
func (idx *Index) Get(id string) (core.Entity, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return core.Entity{}, false
	}
	return idx.entities[i], true
}

// Has reports whether id is present.
func (idx *Index) Has(id string) bool {
	_, ok := idx.byID[id]
	return ok
}

// Position returns the slice position of id, or -1.
func (idx *Index) Position(id string) int {
	if i, ok := idx.byID[id]; ok {
		return i
	}
	return -1
}

// ChildrenOf returns the ids whose parentId is id, in slice order.
func (idx *Index) ChildrenOf(id string) []string {
	return idx.children[id]
}

// Len returns the number of indexed entities.
func (idx *Index) Len() int {
	return len(idx.entities)
}
