package app

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"lumina/pkg/domain"
)

// Field constraints applied before any operation touches the store.
const (
	nameMinLen      = 2
	nameMaxLen      = 100
	passwordMinLen  = 6
	passwordMaxLen  = 100
	titleMaxLen     = 200
	contentMaxLen   = 1000
	gradeMin        = 0
	gradeMax        = 10
	classNameMaxLen = 100
	descriptionMax  = 2000
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < nameMinLen || n > nameMaxLen {
		return invalid("name", fmt.Sprintf("must be between %d and %d characters", nameMinLen, nameMaxLen))
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return invalid("email", "must be a valid email address")
	}
	return nil
}

func validatePassword(password string) error {
	n := len(password)
	if n < passwordMinLen || n > passwordMaxLen {
		return invalid("password", fmt.Sprintf("must be between %d and %d characters", passwordMinLen, passwordMaxLen))
	}
	return nil
}

func validateRole(role string) (domain.UserRole, error) {
	switch domain.UserRole(role) {
	case domain.RoleStudent:
		return domain.RoleStudent, nil
	case domain.RoleTeacher:
		return domain.RoleTeacher, nil
	default:
		return "", invalid("user_type", "must be student or teacher")
	}
}

func validateGrade(grade float64) error {
	if grade < gradeMin || grade > gradeMax {
		return invalid("grade", fmt.Sprintf("must be between %d and %d", gradeMin, gradeMax))
	}
	return nil
}

// validateTitle covers material titles, message titles, and assignment names,
// which share the same bound.
func validateTitle(field, value string) error {
	n := utf8.RuneCountInString(value)
	if n < 1 || n > titleMaxLen {
		return invalid(field, fmt.Sprintf("must be between 1 and %d characters", titleMaxLen))
	}
	return nil
}

func validateContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n < 1 || n > contentMaxLen {
		return invalid("content", fmt.Sprintf("must be between 1 and %d characters", contentMaxLen))
	}
	return nil
}

func validateClassName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > classNameMaxLen {
		return invalid("name", fmt.Sprintf("must be between 1 and %d characters", classNameMaxLen))
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > descriptionMax {
		return invalid("description", fmt.Sprintf("must be at most %d characters", descriptionMax))
	}
	return nil
}
