package model

// Message represents a posted message
type Message struct {
	ID     string `json:"id"`
	Text   string `json:"message"`
	Author string `json:"usr"`
}

// CreateMessageRequest is the body of PUT /api/message/
type CreateMessageRequest struct {
	Text   string `json:"message" validate:"required"`
	Author string `json:"usr" validate:"required"`
}

// EventMessageCreated is the type of CreatedEventMessage.
const EventMessageCreated = "message_created"

// CreatedEventMessage is used for WebSocket create notifications
type CreatedEventMessage struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}
