package server

import (
	"github.com/five82/arenaview/internal/state"
)

// Message types on the WebSocket feed.
const (
	TypeSnapshot = "snapshot"
	TypeAck      = "ack"
	TypeError    = "error"
	TypePing     = "ping"
	TypePong     = "pong"
	TypeCycleArt = "cycle_art"
	TypeResetArt = "reset_art"
)

// Message is the envelope for everything sent to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Command is a client request. Key is an identity key such as "mtga:1001";
// Dir is "next" or "prev" for cycle_art.
type Command struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Key       string `json:"key,omitempty"`
	Dir       string `json:"dir,omitempty"`
}

// Ack answers a command.
type Ack struct {
	RequestID string `json:"requestId,omitempty"`
	Command   string `json:"command"`
	Changed   bool   `json:"changed"`
	UpdateID  uint64 `json:"updateId"`
}

// ErrorData describes a rejected command.
type ErrorData struct {
	RequestID string `json:"requestId,omitempty"`
	Message   string `json:"message"`
}

func snapshotMessage(snap state.Snapshot) Message {
	return Message{Type: TypeSnapshot, Data: snap}
}
