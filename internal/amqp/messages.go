package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReplyMessage is one outbound message waiting for delivery to a phone. The
// webhook answers synchronously; this queue carries everything the bot sends
// on its own, like reminders.
type ReplyMessage struct {
	Phone     string    `json:"phone"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReplyMessage creates a reply message stamped with the current time.
func NewReplyMessage(phone, text string) *ReplyMessage {
	return &ReplyMessage{
		Phone:     phone,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// Validate rejects messages that cannot be delivered.
func (m *ReplyMessage) Validate() error {
	if m.Phone == "" {
		return errors.New("reply message without phone")
	}
	if m.Text == "" {
		return errors.New("reply message without text")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ReplyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReplyMessageFromJSON creates a message from JSON bytes
func ReplyMessageFromJSON(data []byte) (*ReplyMessage, error) {
	var msg ReplyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
