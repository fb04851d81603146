package domain

// InboundMessage is a chatMessage event received on a live connection.
type InboundMessage struct {
	Message    string `json:"message" validate:"required"`
	SenderID   UserID `json:"senderId" validate:"required"`
	ReceiverID UserID `json:"receiverId" validate:"required"`
}

// ReceivedMessage is pushed to the receiver's live connection only.
type ReceivedMessage struct {
	Message  string `json:"message"`
	SenderID UserID `json:"senderId"`
}
