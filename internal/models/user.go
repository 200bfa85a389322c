package models

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           string   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FirstName    string   `gorm:"column:first_name;type:text" json:"first"`
	LastName     string   `gorm:"column:last_name;type:text" json:"last"`
	Email        string   `gorm:"column:email;type:text;uniqueIndex" json:"email"`
	Phone        string   `gorm:"column:phone;type:text" json:"phone"`
	PasswordHash string   `gorm:"column:password_hash;type:text" json:"-"`
	Role         UserRole `gorm:"column:role;type:text" json:"role"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (User) TableName() string { return "users" }
