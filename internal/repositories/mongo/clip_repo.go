package mongo

import (
	"context"
	"time"

	"github.com/theravid/theravid/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ClipRepository interface {
	InsertChunk(ctx context.Context, c *models.ClipChunk) error
	UpdateSTT(ctx context.Context, sessionID string, chunkIndex int64, transcript string, confidence float64, status string) error
	UpdateAnalysis(ctx context.Context, sessionID string, chunkIndex int64, sentiment string, emotions []string) error
	UpdateLLM(ctx context.Context, sessionID string, chunkIndex int64, response string, status string, processingMS int64) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.ClipChunk, error)
}

type clipRepo struct {
	col *mongo.Collection
}

func NewClipRepo(db *mongo.Database) ClipRepository {
	return &clipRepo{col: db.Collection("clip_chunks")}
}

func (r *clipRepo) InsertChunk(ctx context.Context, c *models.ClipChunk) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *clipRepo) UpdateSTT(ctx context.Context, sessionID string, chunkIndex int64, transcript string, confidence float64, status string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "chunk_index": chunkIndex},
		bson.M{"$set": bson.M{
			"transcript":     transcript,
			"stt_confidence": confidence,
			"stt_status":     status,
		}},
	)
	return err
}

func (r *clipRepo) UpdateAnalysis(ctx context.Context, sessionID string, chunkIndex int64, sentiment string, emotions []string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "chunk_index": chunkIndex},
		bson.M{"$set": bson.M{
			"sentiment": sentiment,
			"emotions":  emotions,
		}},
	)
	return err
}

func (r *clipRepo) UpdateLLM(ctx context.Context, sessionID string, chunkIndex int64, response string, status string, processingMS int64) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "chunk_index": chunkIndex},
		bson.M{"$set": bson.M{
			"llm_response":       response,
			"llm_status":         status,
			"processing_time_ms": processingMS,
		}},
	)
	return err
}

func (r *clipRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.ClipChunk, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "chunk_index", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ClipChunk
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
