// Package bridgeproto defines the messages exchanged with the kiosk UI over
// the bridge WebSocket.
package bridgeproto

import (
	"encoding/json"
	"fmt"
)

// Inbound message types, sent by the kiosk UI.
const (
	TypeConfigure = "configure"
	TypePointer   = "pointer"
	TypeLabelTap  = "label_tap"
	TypeResize    = "resize"
	TypeResetView = "reset_view"
	TypeOrbit     = "orbit"
	TypePan       = "pan"
	TypeZoom      = "zoom"
)

// Outbound message types, sent by the engine.
const (
	TypeHello  = "hello"
	TypeSelect = "select"
	TypeStatus = "status"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConfigurePayload sets the engine inputs.
type ConfigurePayload struct {
	Floor      string `json:"floor"`
	SelectedID string `json:"selectedId"`
	ShowRoute  bool   `json:"showRoute"`
}

// PointerPayload is a tap or click in viewport pixels.
type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LabelTapPayload reports a tap on a label overlay.
type LabelTapPayload struct {
	ID string `json:"id"`
}

// ResizePayload carries the new viewport size in pixels.
type ResizePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// OrbitPayload rotates the camera, in radians.
type OrbitPayload struct {
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// PanPayload moves the camera target, in pixels.
type PanPayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// ZoomPayload scales the view; values above 1 zoom in.
type ZoomPayload struct {
	Factor float64 `json:"factor"`
}

// HelloPayload opens a session.
type HelloPayload struct {
	Session string `json:"session"`
	Version string `json:"version"`
}

// SelectPayload reports the inputs the engine applied after a pick.
type SelectPayload struct {
	ID        string `json:"id"`
	Floor     string `json:"floor"`
	ShowRoute bool   `json:"showRoute"`
}

// StatusPayload is a periodic engine summary.
type StatusPayload struct {
	Session     string `json:"session"`
	Floor       string `json:"floor"`
	Loading     bool   `json:"loading"`
	Selected    string `json:"selected"`
	RouteTarget string `json:"routeTarget"`
	Entities    int    `json:"entities"`
	Frames      uint64 `json:"frames"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
// A nil payload is omitted.
func Marshal(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Unmarshal decodes an Envelope, rejecting messages without a type.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}
