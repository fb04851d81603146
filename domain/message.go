// Package domain contains core concepts of the chat system.
// This file defines chat messages and the per-user history built from them.
// Messages are immutable once created.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is embedded in both the sender's and the receiver's history.
// The two copies share the same ID.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	Message    string    `json:"message"`
	SenderID   UserID    `json:"senderId"`
	ReceiverID UserID    `json:"receiverId"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewChatMessage(text string, senderID, receiverID UserID, at time.Time) ChatMessage {
	return ChatMessage{
		ID:         uuid.New(),
		Message:    text,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Timestamp:  at,
	}
}

// Between reports whether the message was exchanged between a and b, in either direction.
func (m ChatMessage) Between(a, b UserID) bool {
	return (m.SenderID == a && m.ReceiverID == b) ||
		(m.SenderID == b && m.ReceiverID == a)
}

type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// HistoryEntry is a message seen from one participant's side.
type HistoryEntry struct {
	Data ChatMessage `json:"data"`
	Type Direction   `json:"type"`
}

// ClearResult mirrors an update-one outcome: at most one history document is touched.
type ClearResult struct {
	Acknowledged  bool `json:"acknowledged"`
	MatchedCount  int  `json:"matchedCount"`
	ModifiedCount int  `json:"modifiedCount"`
	RemovedCount  int  `json:"removedCount"`
}
