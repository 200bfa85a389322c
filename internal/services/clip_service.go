package services

import (
	"context"
	"time"

	"github.com/theravid/theravid/internal/models"
	mongorepo "github.com/theravid/theravid/internal/repositories/mongo"
	"github.com/theravid/theravid/internal/utils"
)

type ClipService interface {
	InsertClipChunk(ctx context.Context, sessionID string, chunkIndex int64, mimeType string, videoURL, videoBase64 *string) (*models.ClipChunk, error)
	MarkSTT(ctx context.Context, sessionID string, chunkIndex int64, transcript string, confidence float64, status string) error
	MarkAnalysis(ctx context.Context, sessionID string, chunkIndex int64, sentiment string, emotions []string) error
	MarkLLM(ctx context.Context, sessionID string, chunkIndex int64, response string, status string, processingMS int64) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.ClipChunk, error)
}

type clipService struct {
	clips mongorepo.ClipRepository
	ttl   time.Duration
}

func NewClipService(clips mongorepo.ClipRepository, ttl time.Duration) ClipService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &clipService{clips: clips, ttl: ttl}
}

func (s *clipService) InsertClipChunk(ctx context.Context, sessionID string, chunkIndex int64, mimeType string, videoURL, videoBase64 *string) (*models.ClipChunk, error) {
	const op = "ClipService.InsertClipChunk"

	if sessionID == "" || chunkIndex <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required and chunk_index must be > 0", nil)
	}

	now := time.Now().UTC()
	doc := &models.ClipChunk{
		SessionID:   sessionID,
		ChunkIndex:  chunkIndex,
		MimeType:    mimeType,
		VideoURL:    videoURL,
		VideoBase64: videoBase64,

		STTStatus: models.StatusPending,
		LLMStatus: models.StatusPending,

		Timestamp: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.clips.InsertChunk(ctx, doc); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert clip chunk", err)
	}
	return doc, nil
}

func (s *clipService) MarkSTT(ctx context.Context, sessionID string, chunkIndex int64, transcript string, confidence float64, status string) error {
	const op = "ClipService.MarkSTT"

	if sessionID == "" || chunkIndex <= 0 || status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id, chunk_index (>0), and status are required", nil)
	}
	if err := s.clips.UpdateSTT(ctx, sessionID, chunkIndex, transcript, confidence, status); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update stt fields", err)
	}
	return nil
}

func (s *clipService) MarkAnalysis(ctx context.Context, sessionID string, chunkIndex int64, sentiment string, emotions []string) error {
	const op = "ClipService.MarkAnalysis"

	if sessionID == "" || chunkIndex <= 0 {
		return utils.E(utils.CodeInvalidArgument, op, "session_id and chunk_index (>0) are required", nil)
	}
	if err := s.clips.UpdateAnalysis(ctx, sessionID, chunkIndex, sentiment, emotions); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update analysis fields", err)
	}
	return nil
}

func (s *clipService) MarkLLM(ctx context.Context, sessionID string, chunkIndex int64, response string, status string, processingMS int64) error {
	const op = "ClipService.MarkLLM"

	if sessionID == "" || chunkIndex <= 0 || status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id, chunk_index (>0), and status are required", nil)
	}
	if err := s.clips.UpdateLLM(ctx, sessionID, chunkIndex, response, status, processingMS); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update llm fields", err)
	}
	return nil
}

func (s *clipService) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.ClipChunk, error) {
	const op = "ClipService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	out, err := s.clips.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list clip chunks", err)
	}
	return out, nil
}
