package ws

import (
	"encoding/json"

	"mindcascade/internal/domain"
	"mindcascade/internal/ledger"
)

type ErrorPayload struct {
	Message string `json:"message"`
}

// BeginPayload starts the next level, or a new run when the game changes or
// the previous run is complete. Steps is how many items the level reveals.
type BeginPayload struct {
	Game  domain.GameID `json:"game"`
	Steps int           `json:"steps"`
}

type SubmitPayload struct {
	Correct bool `json:"correct"`
}

func encode(msgType string, payload any) []byte {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil
		}
		data = b
	}
	b, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		return nil
	}
	return b
}

// StatsMessage wraps a ledger snapshot for the wire.
func StatsMessage(s ledger.Snapshot) []byte {
	return encode(MsgStats, s)
}
