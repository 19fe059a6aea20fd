package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type ClassModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	TeacherID   string    `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
}

// EnrollmentModel is the class/student join table. The composite primary key
// makes re-enrollment idempotent at the storage layer.
type EnrollmentModel struct {
	ClassID   string    `gorm:"primaryKey"`
	StudentID string    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type MaterialModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string
	FileURL     string    `gorm:"not null"`
	FileType    string    `gorm:"not null"`
	ClassID     string    `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
}

type GradeModel struct {
	ID         string  `gorm:"primaryKey"`
	StudentID  string  `gorm:"not null;index"`
	ClassID    string  `gorm:"not null;index"`
	Assignment string  `gorm:"not null"`
	Grade      float64 `gorm:"not null"`
	Feedback   string
	CreatedAt  time.Time `gorm:"not null"`
}

type MessageModel struct {
	ID        string    `gorm:"primaryKey"`
	StudentID string    `gorm:"not null;index"`
	ClassID   string    `gorm:"not null;index"`
	Title     string    `gorm:"not null"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
