package model

import "time"

// MessageType classifies a message payload
type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeImage   MessageType = "image"
	MessageTypeFile    MessageType = "file"
	MessageTypeUnknown MessageType = "unknown"
)

// ParseMessageType normalizes a caller-supplied type string.
// Empty input falls back to text, unrecognized values to unknown.
func ParseMessageType(s string) MessageType {
	switch MessageType(s) {
	case MessageTypeText, MessageTypeImage, MessageTypeFile:
		return MessageType(s)
	case "":
		return MessageTypeText
	default:
		return MessageTypeUnknown
	}
}

// Message represents a chat message stored in a room
type Message struct {
	ID          string      `json:"id" gorm:"primaryKey;size:36"`
	Text        string      `json:"text" gorm:"not null;type:text"`
	Timestamp   time.Time   `json:"timestamp" gorm:"not null;index"`
	SenderID    string      `json:"sender_id" gorm:"size:64"`
	Username    string      `json:"username" gorm:"size:64"`
	MessageType MessageType `json:"message_type" gorm:"size:16"`
	MediaData   *string     `json:"media_data,omitempty" gorm:"type:longtext"`
	RoomID      string      `json:"room_id" gorm:"not null;index;size:64"`
}

// MessageCreate is the payload accepted by POST /api/messages
type MessageCreate struct {
	Text        string  `json:"text"`
	SenderID    string  `json:"sender_id"`
	Username    string  `json:"username"`
	MessageType string  `json:"message_type"`
	MediaData   *string `json:"media_data"`
	RoomID      string  `json:"room_id"`
}
