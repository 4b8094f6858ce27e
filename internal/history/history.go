// Package history keeps a bounded undo/redo log of full entity snapshots.
package history

import (
	"sync"

	"github.com/twinlayout/sceneedit/pkg/core"
)

// DefaultCapacity is used when New receives a non-positive capacity.
const DefaultCapacity = 50

// Log is an ordered list of snapshots with a cursor. Every snapshot is a deep
// copy owned by the log; callers only ever receive copies.
type Log struct {
	mu        sync.RWMutex
	snapshots [][]core.Entity
	cursor    int
	capacity  int
}

// New creates a log holding one empty snapshot.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		snapshots: [][]core.Entity{{}},
		capacity:  capacity,
	}
}

// Reset discards the log and seeds it with entities as the only snapshot.
func (l *Log) Reset(entities []core.Entity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = [][]core.Entity{core.CloneEntities(entities)}
	l.cursor = 0
}

// Commit truncates the redo tail, appends a copy of entities and evicts the
// oldest snapshots beyond capacity.
func (l *Log) Commit(entities []core.Entity) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.snapshots = append(l.snapshots[:l.cursor+1], core.CloneEntities(entities))
	if over := len(l.snapshots) - l.capacity; over > 0 {
		l.snapshots = append([][]core.Entity(nil), l.snapshots[over:]...)
	}
	l.cursor = len(l.snapshots) - 1
}

// Undo steps back one snapshot. It returns false at the oldest snapshot.
func (l *Log) Undo() ([]core.Entity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor == 0 {
		return nil, false
	}
	l.cursor--
	return core.CloneEntities(l.snapshots[l.cursor]), true
}

// Redo steps forward one snapshot. It returns false at the newest snapshot.
func (l *Log) Redo() ([]core.Entity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor >= len(l.snapshots)-1 {
		return nil, false
	}
	l.cursor++
	return core.CloneEntities(l.snapshots[l.cursor]), true
}

// Current returns a copy of the snapshot at the cursor.
func (l *Log) Current() []core.Entity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return core.CloneEntities(l.snapshots[l.cursor])
}

func (l *Log) CanUndo() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cursor > 0
}

func (l *Log) CanRedo() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cursor < len(l.snapshots)-1
}

// Len returns the number of stored snapshots.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.snapshots)
}

// Cursor returns the index of the current snapshot.
func (l *Log) Cursor() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cursor
}

// Capacity returns the maximum number of snapshots kept.
func (l *Log) Capacity() int {
	return l.capacity
}
