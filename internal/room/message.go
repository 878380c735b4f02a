package room

// MessageType identifies a relay message.
type MessageType string

const (
	// MessagePaired is sent by the relay to both clients when a match forms.
	MessagePaired MessageType = "paired"
	// MessageLocked carries a sealed bet lock for a round.
	MessageLocked MessageType = "locked"
	// MessageLeft reports that the sender, or the opponent, left the match.
	MessageLeft MessageType = "left"
)

// Message is the single JSON envelope exchanged with the relay.
type Message struct {
	Type     MessageType `json:"type"`
	MatchID  string      `json:"match_id,omitempty"`
	Seed     int64       `json:"seed,omitempty"`
	You      string      `json:"you,omitempty"`
	Opponent string      `json:"opponent,omitempty"`
	Round    int         `json:"round,omitempty"`
	Ack      []byte      `json:"ack,omitempty"`
}

// Pairing is what a client learns when the relay pairs it.
type Pairing struct {
	MatchID    string
	Seed       int64
	LocalID    string
	OpponentID string
}

func lockedMessage(round int, ack []byte) Message {
	return Message{Type: MessageLocked, Round: round, Ack: ack}
}
