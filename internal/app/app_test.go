package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"lumina/internal/store"
	"lumina/pkg/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{
		Store:    store.NewMemoryStore(),
		Sessions: store.NewJWTSessionStore("test-secret", time.Hour),
		Files:    discardFiles{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

type discardFiles struct{}

func (discardFiles) Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	return "/uploads/" + filename, nil
}

func registerUser(t *testing.T, a *App, name, email, role string) domain.User {
	t.Helper()
	user, _, err := a.Register(name, email, "secret123", role)
	if err != nil {
		t.Fatalf("Register %s: %v", email, err)
	}
	return user
}

func TestRegisterDuplicateEmail(t *testing.T) {
	a := newTestApp(t)
	registerUser(t, a, "Alice", "alice@example.com", "teacher")

	_, _, err := a.Register("Alice Two", "alice@example.com", "secret123", "student")
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
	// Email comparison is case-insensitive.
	_, _, err = a.Register("Alice Three", "ALICE@Example.com", "secret123", "student")
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists for upper-cased email, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	a := newTestApp(t)
	cases := []struct {
		name     string
		userName string
		email    string
		password string
		role     string
	}{
		{"short name", "A", "a@example.com", "secret123", "student"},
		{"long name", strings.Repeat("x", 101), "a@example.com", "secret123", "student"},
		{"bad email", "Alice", "not-an-email", "secret123", "student"},
		{"short password", "Alice", "a@example.com", "12345", "student"},
		{"bad role", "Alice", "a@example.com", "secret123", "admin"},
	}
	for _, tc := range cases {
		_, _, err := a.Register(tc.userName, tc.email, tc.password, tc.role)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestLoginIndistinguishableFailures(t *testing.T) {
	a := newTestApp(t)
	registerUser(t, a, "Alice", "alice@example.com", "student")

	_, _, errUnknown := a.Login("nobody@example.com", "secret123")
	_, _, errWrongPW := a.Login("alice@example.com", "wrongpass")
	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", errUnknown)
	}
	if !errors.Is(errWrongPW, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", errWrongPW)
	}
	if errUnknown.Error() != errWrongPW.Error() {
		t.Fatalf("login failures must be indistinguishable: %q vs %q", errUnknown, errWrongPW)
	}
}

func TestLoginSuccess(t *testing.T) {
	a := newTestApp(t)
	want := registerUser(t, a, "Alice", "alice@example.com", "student")

	user, token, err := a.Login("Alice@Example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != want.ID {
		t.Fatalf("user ID = %q, want %q", user.ID, want.ID)
	}
	got, ok := a.UserFromToken(token)
	if !ok || got.ID != want.ID {
		t.Fatalf("UserFromToken: ok=%v id=%q, want id=%q", ok, got.ID, want.ID)
	}
}

func TestUserFromTokenRejectsGarbage(t *testing.T) {
	a := newTestApp(t)
	if _, ok := a.UserFromToken("not-a-token"); ok {
		t.Fatal("garbage token accepted")
	}
	if _, ok := a.UserFromToken(""); ok {
		t.Fatal("empty token accepted")
	}
}

func TestOwnershipHidesForeignClasses(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com", "teacher")
	other := registerUser(t, a, "Other", "other@example.com", "teacher")
	student := registerUser(t, a, "Student", "student@example.com", "student")

	class, err := a.CreateClass(owner, "Algebra", "intro course")
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if err := a.EnrollStudent(owner, class.ID, student.ID); err != nil {
		t.Fatalf("EnrollStudent: %v", err)
	}

	// A foreign class and an absent class produce the same error.
	_, errForeign := a.ListClassStudents(other, class.ID)
	_, errAbsent := a.ListClassStudents(other, "missing-id")
	if !errors.Is(errForeign, ErrClassNotFound) {
		t.Fatalf("foreign class: expected ErrClassNotFound, got %v", errForeign)
	}
	if !errors.Is(errAbsent, ErrClassNotFound) {
		t.Fatalf("absent class: expected ErrClassNotFound, got %v", errAbsent)
	}
	if errForeign.Error() != errAbsent.Error() {
		t.Fatalf("foreign and absent classes must be indistinguishable: %q vs %q", errForeign, errAbsent)
	}
}

func TestOwnershipCheckedBeforeEnrollment(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "Owner", "owner@example.com", "teacher")
	other := registerUser(t, a, "Other", "other@example.com", "teacher")
	student := registerUser(t, a, "Student", "student@example.com", "student")

	class, err := a.CreateClass(owner, "Algebra", "")
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if err := a.EnrollStudent(owner, class.ID, student.ID); err != nil {
		t.Fatalf("EnrollStudent: %v", err)
	}

	// The student IS enrolled, but the caller does not own the class, so the
	// class itself must appear absent rather than leaking enrollment state.
	_, err = a.CreateGrade(other, class.ID, student.ID, "quiz 1", 8, "")
	if !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
}

func TestCreateGradeFlow(t *testing.T) {
	a := newTestApp(t)
	teacher := registerUser(t, a, "Teacher", "teacher@example.com", "teacher")
	student := registerUser(t, a, "Student", "student@example.com", "student")
	outsider := registerUser(t, a, "Outsider", "outsider@example.com", "student")

	class, err := a.CreateClass(teacher, "Algebra", "")
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if err := a.EnrollStudent(teacher, class.ID, student.ID); err != nil {
		t.Fatalf("EnrollStudent: %v", err)
	}

	grade, err := a.CreateGrade(teacher, class.ID, student.ID, "quiz 1", 8.5, "good work")
	if err != nil {
		t.Fatalf("CreateGrade: %v", err)
	}
	if grade.Grade != 8.5 || grade.StudentID != student.ID {
		t.Fatalf("unexpected grade record: %+v", grade)
	}

	grades, err := a.ListStudentGrades(student)
	if err != nil {
		t.Fatalf("ListStudentGrades: %v", err)
	}
	if len(grades) != 1 || grades[0].ID != grade.ID {
		t.Fatalf("student grades = %+v, want the recorded grade", grades)
	}

	// Not enrolled.
	_, err = a.CreateGrade(teacher, class.ID, outsider.ID, "quiz 1", 8, "")
	if !errors.Is(err, ErrStudentNotInClass) {
		t.Fatalf("expected ErrStudentNotInClass, got %v", err)
	}
}

func TestCreateGradeRejectsOutOfRange(t *testing.T) {
	a := newTestApp(t)
	teacher := registerUser(t, a, "Teacher", "teacher@example.com", "teacher")
	student := registerUser(t, a, "Student", "student@example.com", "student")
	class, err := a.CreateClass(teacher, "Algebra", "")
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if err := a.EnrollStudent(teacher, class.ID, student.ID); err != nil {
		t.Fatalf("EnrollStudent: %v", err)
	}

	for _, bad := range []float64{-0.1, 10.5, 100} {
		_, err := a.CreateGrade(teacher, class.ID, student.ID, "quiz", bad, "")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("grade %v: expected ValidationError, got %v", bad, err)
		}
	}
	grades, err := a.ListStudentGrades(student)
	if err != nil {
		t.Fatalf("ListStudentGrades: %v", err)
	}
	if len(grades) != 0 {
		t.Fatalf("rejected grades were persisted: %+v", grades)
	}
}

func TestEnrollStudentRejectsTeachers(t *testing.T) {
	a := newTestApp(t)
	teacher := registerUser(t, a, "Teacher", "teacher@example.com", "teacher")
	colleague := registerUser(t, a, "Colleague", "colleague@example.com", "teacher")
	class, err := a.CreateClass(teacher, "Algebra", "")
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}

	if err := a.EnrollStudent(teacher, class.ID, colleague.ID); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("enrolling a teacher: expected ErrStudentNotFound, got %v", err)
	}
	if err := a.EnrollStudent(teacher, class.ID, "missing-id"); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("enrolling a missing user: expected ErrStudentNotFound, got %v", err)
	}
}

func TestEnrollStudentIdempotent(t *testing.T) {
	a := newTestApp(t)
	teacher := registerUser(t, a, "Teacher", "teacher@example.com", "teacher")
	student := registerUser(t, a, "Student", "student@example.com", "student")
	class, err := a.CreateClass(teacher, "Algebra", "")
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}

	if err := a.EnrollStudent(teacher, class.ID, student.ID); err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if err := a.EnrollStudent(teacher, class.ID, student.ID); err != nil {
		t.Fatalf("second enroll: %v", err)
	}
	roster, err := a.ListClassStudents(teacher, class.ID)
	if err != nil {
		t.Fatalf("ListClassStudents: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("roster has %d entries, want 1", len(roster))
	}
}

func TestStudentViewsScopedToEnrollment(t *testing.T) {
	a := newTestApp(t)
	teacher := registerUser(t, a, "Teacher", "teacher@example.com", "teacher")
	enrolled := registerUser(t, a, "Enrolled", "enrolled@example.com", "student")
	outsider := registerUser(t, a, "Outsider", "outsider@example.com", "student")

	class, err := a.CreateClass(teacher, "Algebra", "")
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if err := a.EnrollStudent(teacher, class.ID, enrolled.ID); err != nil {
		t.Fatalf("EnrollStudent: %v", err)
	}
	if _, err := a.SendMessage(teacher, class.ID, enrolled.ID, "welcome", "see you monday"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	material, err := a.UploadMaterial(context.Background(), teacher, class.ID, "syllabus", "", "syllabus.pdf", "application/pdf", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("UploadMaterial: %v", err)
	}
	if material.FileURL == "" {
		t.Fatal("material has no file URL")
	}

	subjects, err := a.ListStudentSubjects(enrolled)
	if err != nil {
		t.Fatalf("ListStudentSubjects: %v", err)
	}
	if len(subjects) != 1 || subjects[0].ID != class.ID {
		t.Fatalf("subjects = %+v, want the enrolled class", subjects)
	}
	materials, err := a.ListStudentMaterials(enrolled)
	if err != nil {
		t.Fatalf("ListStudentMaterials: %v", err)
	}
	if len(materials) != 1 || materials[0].ID != material.ID {
		t.Fatalf("materials = %+v, want the uploaded material", materials)
	}
	messages, err := a.ListStudentMessages(enrolled)
	if err != nil {
		t.Fatalf("ListStudentMessages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("messages = %+v, want one message", messages)
	}

	for name, list := range map[string]func(domain.User) (int, error){
		"subjects": func(u domain.User) (int, error) {
			v, err := a.ListStudentSubjects(u)
			return len(v), err
		},
		"materials": func(u domain.User) (int, error) {
			v, err := a.ListStudentMaterials(u)
			return len(v), err
		},
		"messages": func(u domain.User) (int, error) {
			v, err := a.ListStudentMessages(u)
			return len(v), err
		},
	} {
		n, err := list(outsider)
		if err != nil {
			t.Fatalf("outsider %s: %v", name, err)
		}
		if n != 0 {
			t.Fatalf("outsider sees %d %s, want 0", n, name)
		}
	}
}
