package store

import (
	"errors"

	"lumina/pkg/domain"
)

// ErrDuplicateEmail is returned by SaveUser when the email column's unique
// constraint rejects the row. The constraint, not the caller's advisory
// existence check, is the source of truth for email uniqueness.
var ErrDuplicateEmail = errors.New("email already registered")

// Store defines persistence operations for users, classes, enrollment,
// materials, grades, and messages.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// classes
	SaveClass(domain.Class) error
	GetClass(id string) (domain.Class, bool, error)
	ListClassesByTeacher(teacherID string) ([]domain.Class, error)
	ListClassesByStudent(studentID string) ([]domain.Class, error)

	// enrollment
	AddEnrollment(classID, studentID string) error
	IsEnrolled(classID, studentID string) (bool, error)
	ListClassStudents(classID string) ([]domain.User, error)

	// materials
	SaveMaterial(domain.Material) error
	ListMaterialsByClass(classID string) ([]domain.Material, error)
	ListMaterialsByStudent(studentID string) ([]domain.Material, error)

	// grades
	SaveGrade(domain.Grade) error
	ListGradesByStudent(studentID string) ([]domain.Grade, error)

	// messages
	SaveMessage(domain.Message) error
	ListMessagesByStudent(studentID string) ([]domain.Message, error)
}

// SessionStore issues and validates session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
}
