// Package commands binds discrete editor commands to an editing session.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/twinlayout/sceneedit/internal/dispatcher"
	"github.com/twinlayout/sceneedit/internal/editor"
	"github.com/twinlayout/sceneedit/internal/logging"
	"github.com/twinlayout/sceneedit/internal/queue"
	"github.com/twinlayout/sceneedit/internal/storage"
	"github.com/twinlayout/sceneedit/pkg/core"
)

// ErrMissingArgument is returned when a command is dispatched without a
// required argument.
var ErrMissingArgument = errors.New("missing argument")

// DefaultDuplicateOffset shifts copies one unit along both ground axes.
var DefaultDuplicateOffset = core.Vec3{X: 1, Z: 1}

// Uploader sends exported scene files to the scene service.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error
}

// Dependencies holds all dependencies for the command manager
type Dependencies struct {
	Session         *editor.Session
	Backend         storage.Backend
	Uploader        Uploader
	LogManager      *logging.SlogManager
	DuplicateOffset *core.Vec3
	UploadTag       string
}

// Manager routes dispatched commands to the session and hands saved
// snapshots to storage.
type Manager struct {
	deps  Dependencies
	saves *queue.Queue[string, *core.Scene]
	d     *dispatcher.Dispatcher
}

// NewManager creates a new command manager
func NewManager(deps Dependencies) *Manager {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.DuplicateOffset == nil {
		off := DefaultDuplicateOffset
		deps.DuplicateOffset = &off
	}
	return &Manager{
		deps:  deps,
		saves: queue.New[string, *core.Scene](),
	}
}

// Pending returns the number of snapshots waiting to be written.
func (m *Manager) Pending() int {
	return m.saves.Len()
}

func arg(e dispatcher.Event, i int) (string, error) {
	if i >= len(e.Args) {
		return "", fmt.Errorf("%w: %s needs argument %d", ErrMissingArgument, e.Command, i+1)
	}
	return e.Args[i], nil
}
