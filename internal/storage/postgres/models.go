package postgres

import "time"

type userModel struct {
	ID              string `gorm:"type:text;primaryKey"`
	Email           string `gorm:"not null"`
	NormalizedEmail string `gorm:"not null;uniqueIndex"`
	UserName        string `gorm:"not null"`
	PasswordHash    string `gorm:"not null"`
	CreatedAt       time.Time
	Contacts        []contactModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (userModel) TableName() string { return "users" }

type contactModel struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	FirstName   string  `gorm:"not null"`
	LastName    string  `gorm:"not null"`
	PhoneNumber string  `gorm:"not null"`
	Email       string  `gorm:"not null"`
	UserID      *string `gorm:"type:text;index"`
}

func (contactModel) TableName() string { return "contact_models" }
