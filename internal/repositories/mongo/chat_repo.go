package mongo

import (
	"context"
	"time"

	"github.com/theravid/theravid/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ChatRepository interface {
	EnsureSession(ctx context.Context, sessionID, userID string) error
	AppendMessage(ctx context.Context, m *models.ChatMessage) error
	History(ctx context.Context, sessionID string, limit int64) ([]models.ChatMessage, error)
}

type chatRepo struct {
	sessions *mongo.Collection
	messages *mongo.Collection
}

func NewChatRepo(db *mongo.Database) ChatRepository {
	return &chatRepo{
		sessions: db.Collection("chat_sessions"),
		messages: db.Collection("chat_messages"),
	}
}

// EnsureSession creates the session document on first use and bumps
// last_active_at on every call.
func (r *chatRepo) EnsureSession(ctx context.Context, sessionID, userID string) error {
	now := time.Now().UTC()
	_, err := r.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$set":         bson.M{"last_active_at": now},
			"$setOnInsert": bson.M{"session_id": sessionID, "user_id": userID, "created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *chatRepo) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	if m.TS == 0 {
		m.TS = time.Now().UTC().UnixMilli()
	}
	_, err := r.messages.InsertOne(ctx, m)
	return err
}

// History returns the session's messages in send order.
func (r *chatRepo) History(ctx context.Context, sessionID string, limit int64) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.messages.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "ts", Value: 1}, {Key: "_id", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ChatMessage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
