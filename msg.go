package dpsim

// msg.go holds the Message convenience type protocol implementations
// exchange.  The framework itself is generic over any payload; Message
// just gives protocol authors a typed, JSON-serializable envelope.

import (
	"encoding/json"
)

// A Message pairs a type tag with a free-form data dictionary
type Message struct {
	Type string         `json:"type" yaml:"type"`
	Data map[string]any `json:"data" yaml:"data"`
}

// CreateMessage is a constructor
func CreateMessage(msgType string) Message {
	return Message{Type: msgType, Data: make(map[string]any)}
}

// MessageFromJSON builds a Message of the given type from a JSON object
func MessageFromJSON(msgType string, jsonStr string) (Message, error) {
	msg := CreateMessage(msgType)
	err := json.Unmarshal([]byte(jsonStr), &msg.Data)
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// ToJSON serializes the message's data dictionary
func (msg Message) ToJSON() string {
	bytes, merr := json.Marshal(msg.Data)
	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// Get returns the named data field, nil if absent
func (msg Message) Get(key string) any {
	return msg.Data[key]
}

// Set assigns the named data field
func (msg Message) Set(key string, value any) {
	msg.Data[key] = value
}

// Remove deletes the named data field if present
func (msg Message) Remove(key string) {
	delete(msg.Data, key)
}
