package snap

import (
	"github.com/twinlayout/sceneedit/internal/entity"
	"github.com/twinlayout/sceneedit/internal/floor"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// Candidates returns the snap candidates for the active floor: visible,
// non-base-map entities with their positions resolved to world space so
// that group members snap where they are drawn.
func Candidates(entities []core.Entity, activeFloor string) []core.Entity {
	idx := entity.NewIndex(entities)
	scoped := floor.Scope(entities, activeFloor)
	out := make([]core.Entity, 0, len(scoped))
	for _, e := range scoped {
		if !eligible(e) {
			continue
		}
		if e.ParentID != "" {
			pos, err := entity.WorldPosition(e, idx)
			if err != nil {
				continue
			}
			e.Position = pos
			e.ParentID = ""
			e.RelativePosition = nil
		}
		out = append(out, e)
	}
	return out
}
