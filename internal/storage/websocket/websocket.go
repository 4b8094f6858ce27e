package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twinlayout/sceneedit/internal/storage"
	"github.com/twinlayout/sceneedit/pkg/core"
	"github.com/twinlayout/sceneedit/pkg/streaming"
)

// ErrRejected is returned when the server acknowledges a request with an error.
var ErrRejected = errors.New("request rejected by server")

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	// AckTimeout bounds every request; zero uses the default.
	AckTimeout time.Duration
}

// Backend streams scene snapshots over WebSocket to the scene service.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	link    *link
	linkErr error
	cfg     Config
	session string
}

// New creates a new WebSocket storage backend. A malformed URL is reported
// by Init.
func New(cfg Config) *Backend {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = ackTimeout
	}
	l, err := newLink(cfg.URL, cfg.Secret, slog.Default())
	return &Backend{
		link:    l,
		linkErr: err,
		cfg:     cfg,
		session: uuid.NewString(),
	}
}

// Session returns the id this editor announces in its hello message.
func (b *Backend) Session() string {
	return b.session
}

// Init connects to the WebSocket server and announces the session.
func (b *Backend) Init() error {
	if b.linkErr != nil {
		return b.linkErr
	}
	if err := b.link.open(); err != nil {
		return err
	}

	id, data, err := marshalEnvelope(streaming.TypeHello, streaming.HelloPayload{Client: "sceneedit", Session: b.session})
	if err != nil {
		return err
	}
	b.link.setHello(data)

	ack, err := b.link.request(id, data, b.cfg.AckTimeout)
	if err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	return ackError(ack, "")
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	if b.link != nil {
		b.link.close()
	}
	return nil
}

// marshalEnvelope builds a JSON-encoded Envelope with a fresh id.
func marshalEnvelope(msgType string, payload any) (string, []byte, error) {
	env := streaming.Envelope{ID: uuid.NewString(), Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return "", nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return env.ID, data, nil
}

// request sends an envelope and waits for its ack.
func (b *Backend) request(msgType string, payload any) (streaming.AckMessage, error) {
	if b.linkErr != nil {
		return streaming.AckMessage{}, b.linkErr
	}
	id, data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return streaming.AckMessage{}, err
	}
	ack, err := b.link.request(id, data, b.cfg.AckTimeout)
	if err != nil {
		return streaming.AckMessage{}, fmt.Errorf("%s: %w", msgType, err)
	}
	return ack, nil
}

// ackError maps an ack's error code to a sentinel error.
func ackError(ack streaming.AckMessage, sceneID string) error {
	switch ack.Error {
	case "":
		return nil
	case streaming.ErrorNotFound:
		return fmt.Errorf("%w: %s", storage.ErrSceneNotFound, sceneID)
	default:
		return fmt.Errorf("%w: %s: %s", ErrRejected, ack.For, ack.Error)
	}
}

// SaveScene sends the snapshot and waits for the server to store it.
func (b *Backend) SaveScene(s *core.Scene) error {
	ack, err := b.request(streaming.TypeSaveScene, streaming.SaveScenePayload{Scene: s})
	if err != nil {
		return err
	}
	return ackError(ack, s.ID)
}

// LoadScene fetches a scene; the ack payload is the scene document.
func (b *Backend) LoadScene(id string) (*core.Scene, error) {
	ack, err := b.request(streaming.TypeLoadScene, streaming.SceneRef{ID: id})
	if err != nil {
		return nil, err
	}
	if err := ackError(ack, id); err != nil {
		return nil, err
	}
	var s core.Scene
	if err := json.Unmarshal(ack.Payload, &s); err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", id, err)
	}
	return &s, nil
}

// ListScenes asks the server for every stored scene id.
func (b *Backend) ListScenes() ([]string, error) {
	ack, err := b.request(streaming.TypeListScenes, nil)
	if err != nil {
		return nil, err
	}
	if err := ackError(ack, ""); err != nil {
		return nil, err
	}
	var list streaming.SceneListPayload
	if len(ack.Payload) > 0 {
		if err := json.Unmarshal(ack.Payload, &list); err != nil {
			return nil, fmt.Errorf("decode scene list: %w", err)
		}
	}
	if list.IDs == nil {
		list.IDs = []string{}
	}
	return list.IDs, nil
}

// DeleteScene asks the server to drop a scene.
func (b *Backend) DeleteScene(id string) error {
	ack, err := b.request(streaming.TypeDeleteScene, streaming.SceneRef{ID: id})
	if err != nil {
		return err
	}
	return ackError(ack, id)
}

// PublishCommit announces a finished edit (fire-and-forget).
func (b *Backend) PublishCommit(c streaming.CommitPayload) error {
	if b.linkErr != nil {
		return b.linkErr
	}
	_, data, err := marshalEnvelope(streaming.TypeCommit, c)
	if err != nil {
		return err
	}
	return b.link.send(data)
}
