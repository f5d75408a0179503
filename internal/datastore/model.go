// model.go defines the persisted entities
package datastore

import (
	"time"

	"gorm.io/datatypes"
)

// User is a registered account. PasswordHash never leaves the datastore and
// account layers.
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FullName     string    `gorm:"type:varchar(200);not null" json:"fullName"`
	Email        string    `gorm:"type:varchar(320);uniqueIndex:idx_users_email;not null" json:"email"` // lowercase, trimmed
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	JoinedAt     time.Time `gorm:"not null" json:"joinedAt"`
}

// Session is a login session referenced by the jti claim of its token.
type Session struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"type:varchar(36);not null;index:idx_sessions_user"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index:idx_sessions_expires"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether s is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// DiagnosisRecord is one completed analysis. Rows are only ever inserted.
type DiagnosisRecord struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string `gorm:"type:varchar(36);not null;index:idx_diagnoses_user_created,priority:1" json:"userId"`
	OrganType   string `gorm:"type:varchar(16);not null" json:"organType"`
	ImageRef    string `gorm:"type:longtext" json:"imageRef"`
	DiseaseName string `gorm:"type:varchar(255);not null" json:"diseaseName"`
	RawLabel    string `gorm:"type:varchar(255)" json:"rawLabel"`
	Matched     bool   `json:"matched"`
	Confidence  int    `gorm:"not null" json:"confidence"`

	Causes      datatypes.JSONSlice[string] `json:"causes"`
	Precautions datatypes.JSONSlice[string] `json:"precautions"`
	Remedies    datatypes.JSONSlice[string] `json:"remedies"`
	FoodHabits  datatypes.JSONSlice[string] `json:"foodHabits"`
	Medicines   datatypes.JSONSlice[string] `json:"medicines"`

	CreatedAt time.Time `gorm:"not null;index:idx_diagnoses_user_created,priority:2" json:"timestamp"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName returns the table name for GORM.
func (DiagnosisRecord) TableName() string {
	return "diagnoses"
}
