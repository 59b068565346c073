package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/goliatone/go-entity-cache/querykey"
)

// MessageType discriminates realtime payloads.
type MessageType string

const (
	MessageCreate MessageType = "create"
	MessageUpdate MessageType = "update"
	MessageDelete MessageType = "delete"
	MessageSync   MessageType = "sync"
	MessagePing   MessageType = "ping"
	MessagePong   MessageType = "pong"
)

// Message is the JSON payload exchanged over the realtime channel.
type Message struct {
	Type      MessageType        `json:"type"`
	Entity    querykey.Namespace `json:"entity,omitempty"`
	ID        int64              `json:"id,omitempty"`
	Data      json.RawMessage    `json:"data,omitempty"`
	Timestamp int64              `json:"timestamp,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// NewPing builds a heartbeat message stamped with the current time.
func NewPing() Message {
	return Message{Type: MessagePing, Timestamp: time.Now().UnixMilli()}
}

// Encode renders the message for the wire.
func (m Message) Encode() ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("realtime: encode message: %w", err)
	}
	return payload, nil
}

// DecodeMessage parses a wire payload.
func DecodeMessage(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("realtime: decode message: %w", err)
	}
	return m, nil
}
