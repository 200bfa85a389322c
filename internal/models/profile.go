package models

import (
	"time"

	"gorm.io/datatypes"
)

type Profile struct {
	UserID string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Goal   string `gorm:"column:goal;type:text" json:"goal"`
	Mood   string `gorm:"column:mood;type:text" json:"mood"`

	// JSONB (free-form per-user settings beyond goal/mood)
	Preferences datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
