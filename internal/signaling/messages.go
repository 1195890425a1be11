package signaling

import "encoding/json"

// Message types for signaling protocol.
const (
	TypeRegister           = "register"
	TypeRegistered         = "registered"
	TypeListSources        = "list-sources"
	TypeSources            = "sources"
	TypeSourcesUpdated     = "sources-updated"
	TypeOffer              = "offer"
	TypeAnswer             = "answer"
	TypeICECandidate       = "ice-candidate"
	TypePing               = "ping"
	TypePong               = "pong"
	TypeError              = "error"
	TypeSourceDisconnected = "source-disconnected"
)

// ClientType distinguishes a frame source from a viewer.
const (
	ClientTypeSource = "source"
	ClientTypeViewer = "viewer"
)

// Message is the envelope for all signaling messages.
type Message struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	ClientType string          `json:"clientType,omitempty"`
	From       string          `json:"from,omitempty"`
	Target     string          `json:"target,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	List       []SourceInfo    `json:"list,omitempty"`
	SourceID   string          `json:"sourceId,omitempty"`
	Msg        string          `json:"message,omitempty"`
	Timestamp  int64           `json:"timestamp,omitempty"`
}

// SourceInfo describes a source in the source list.
type SourceInfo struct {
	ID     string `json:"id"`
	Online bool   `json:"online"`
}
