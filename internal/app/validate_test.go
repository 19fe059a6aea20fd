package app

import (
	"strings"
	"testing"

	"lumina/pkg/domain"
)

func TestValidateName(t *testing.T) {
	for _, ok := range []string{"Al", "Alice Johnson", strings.Repeat("x", 100)} {
		if err := validateName(ok); err != nil {
			t.Fatalf("validateName(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "A", strings.Repeat("x", 101)} {
		if err := validateName(bad); err == nil {
			t.Fatalf("validateName(%q) = nil, want error", bad)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", "alice.smith+tag@example.org"} {
		if err := validateEmail(ok); err != nil {
			t.Fatalf("validateEmail(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "plain", "a@b", "@example.com", "a b@example.com"} {
		if err := validateEmail(bad); err == nil {
			t.Fatalf("validateEmail(%q) = nil, want error", bad)
		}
	}
}

func TestValidateGrade(t *testing.T) {
	for _, ok := range []float64{0, 5.5, 10} {
		if err := validateGrade(ok); err != nil {
			t.Fatalf("validateGrade(%v) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []float64{-1, -0.01, 10.01, 10.5, 99} {
		if err := validateGrade(bad); err == nil {
			t.Fatalf("validateGrade(%v) = nil, want error", bad)
		}
	}
}

func TestValidateRole(t *testing.T) {
	role, err := validateRole("student")
	if err != nil || role != domain.RoleStudent {
		t.Fatalf("validateRole(student) = %v, %v", role, err)
	}
	role, err = validateRole("teacher")
	if err != nil || role != domain.RoleTeacher {
		t.Fatalf("validateRole(teacher) = %v, %v", role, err)
	}
	for _, bad := range []string{"", "admin", "Student", "TEACHER"} {
		if _, err := validateRole(bad); err == nil {
			t.Fatalf("validateRole(%q) = nil, want error", bad)
		}
	}
}

func TestValidateTitleAndContent(t *testing.T) {
	if err := validateTitle("title", strings.Repeat("x", 200)); err != nil {
		t.Fatalf("200-char title rejected: %v", err)
	}
	if err := validateTitle("title", strings.Repeat("x", 201)); err == nil {
		t.Fatal("201-char title accepted")
	}
	if err := validateTitle("title", ""); err == nil {
		t.Fatal("empty title accepted")
	}
	if err := validateContent(strings.Repeat("x", 1000)); err != nil {
		t.Fatalf("1000-char content rejected: %v", err)
	}
	if err := validateContent(strings.Repeat("x", 1001)); err == nil {
		t.Fatal("1001-char content accepted")
	}
}
