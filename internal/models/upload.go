package models

import (
	"time"

	"github.com/lib/pq"
)

// Upload is one stored recording, either a check-in clip or a plain file
// upload. Analysis results live alongside the row once /record ran.
type Upload struct {
	ID       string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID   string `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	FileName string `gorm:"column:file_name;type:text" json:"file_name"`
	StoredAs string `gorm:"column:stored_as;type:text" json:"stored_as"`
	FilePath string `gorm:"column:file_path;type:text" json:"file_path"`

	FileSize int    `gorm:"column:file_size;type:integer" json:"file_size"`
	MimeType string `gorm:"column:mime_type;type:text" json:"mime_type"`

	// analysis outcome, empty until /record processed the clip
	Transcript string         `gorm:"column:transcript;type:text" json:"transcript,omitempty"`
	Sentiment  string         `gorm:"column:sentiment;type:text" json:"sentiment,omitempty"`
	Emotions   pq.StringArray `gorm:"column:emotions;type:text[]" json:"emotions,omitempty"`

	UploadAt time.Time `gorm:"column:upload_at;type:timestamptz" json:"upload_at"`
}

func (Upload) TableName() string { return "uploads" }
