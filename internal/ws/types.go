package ws

import "encoding/json"

const (
	// client - server
	MsgPing     = "ping"
	MsgBegin    = "begin"
	MsgSubmit   = "submit"
	MsgContinue = "continue"

	// server - client
	MsgReady = "ready"
	MsgStats = "stats"
	MsgPhase = "phase"
	MsgPong  = "pong"
	MsgError = "error"
)

type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
