package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat roles.
const (
	RoleMsgUser      = "user"
	RoleMsgAssistant = "assistant"
	RoleMsgSystem    = "system"
)

// ChatSession groups the messages of one conversation. The session id is an
// opaque string minted by the client and reused for the life of its profile.
type ChatSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	UserID    string             `bson:"user_id,omitempty" json:"user_id,omitempty"`

	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	LastActiveAt time.Time `bson:"last_active_at" json:"last_active_at"`
}

// ChatMessage is one history entry. JSON field names match the /chat wire
// contract: role, content, ts.
type ChatMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"-"`

	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
	TS      int64  `bson:"ts" json:"ts"`
}
