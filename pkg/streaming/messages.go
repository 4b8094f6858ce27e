// Package streaming defines the websocket protocol between the editor and
// the scene service.
package streaming

import (
	"encoding/json"

	"github.com/twinlayout/sceneedit/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeHello       = "hello"
	TypeSaveScene   = "save_scene"
	TypeLoadScene   = "load_scene"
	TypeListScenes  = "list_scenes"
	TypeDeleteScene = "delete_scene"
	TypeCommit      = "commit"
	TypeAck         = "ack"
)

// ErrorNotFound is the ack error code for unknown scene ids.
const ErrorNotFound = "not_found"

// Envelope wraps all messages sent over the WebSocket. ID correlates a
// request with its ack.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the server's acknowledgement response. Payload carries the
// result of read requests; Error is set when the request failed.
type AckMessage struct {
	Type    string          `json:"type"` // always "ack"
	ID      string          `json:"id"`   // the acknowledged envelope id
	For     string          `json:"for"`  // the message type being acknowledged
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload identifies the editor session to the server.
type HelloPayload struct {
	Client  string `json:"client"`
	Session string `json:"session"`
}

// SceneRef names a scene for load and delete requests.
type SceneRef struct {
	ID string `json:"id"`
}

// SaveScenePayload carries a full scene snapshot.
type SaveScenePayload struct {
	Scene *core.Scene `json:"scene"`
}

// CommitPayload announces a finished edit. It is sent without waiting for an ack.
type CommitPayload struct {
	SceneID     string `json:"sceneId"`
	Action      string `json:"action"`
	EntityCount int    `json:"entityCount"`
	Cursor      int    `json:"cursor"`
}

// SceneListPayload is the ack payload of list_scenes.
type SceneListPayload struct {
	IDs []string `json:"ids"`
}
