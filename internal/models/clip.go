package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pipeline stage states shared by ClipChunk status fields.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// ClipChunk is one recorded video clip queued for the analysis pipeline.
// Chunks are short-lived: a TTL index on expires_at reaps them once the
// worker has extracted transcript, sentiment and emotions.
type ClipChunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID  string             `bson:"session_id" json:"session_id"`
	ChunkIndex int64              `bson:"chunk_index" json:"chunk_index"`

	VideoURL    *string `bson:"video_url,omitempty" json:"video_url,omitempty"`
	VideoBase64 *string `bson:"video_base64,omitempty" json:"video_base64,omitempty"`
	MimeType    string  `bson:"mime_type,omitempty" json:"mime_type,omitempty"`

	Transcript    string  `bson:"transcript,omitempty" json:"transcript,omitempty"`
	STTStatus     string  `bson:"stt_status" json:"stt_status"`
	STTConfidence float64 `bson:"stt_confidence,omitempty" json:"stt_confidence,omitempty"`

	Sentiment string   `bson:"sentiment,omitempty" json:"sentiment,omitempty"`
	Emotions  []string `bson:"emotions,omitempty" json:"emotions,omitempty"`

	LLMStatus   string `bson:"llm_status" json:"llm_status"`
	LLMResponse string `bson:"llm_response,omitempty" json:"llm_response,omitempty"`

	ProcessingTimeMS int64     `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
