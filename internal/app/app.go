package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"lumina/internal/storage"
	"lumina/internal/store"
	"lumina/pkg/auth"
	"lumina/pkg/domain"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	SessionTTL  time.Duration
	UploadDir   string

	// Pre-built collaborators override the defaults above (used by tests).
	Store    store.Store
	Sessions store.SessionStore
	Files    storage.FileStore
}

// App is the core application service wiring storage, sessions, and file
// storage together. Every operation takes the authenticated caller as an
// explicit argument; there is no ambient "current user".
type App struct {
	store    store.Store
	sessions store.SessionStore
	files    storage.FileStore
}

// New constructs the application with Postgres storage, JWT sessions, and
// disk file storage unless collaborators are injected.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessions := cfg.Sessions
	if sessions == nil {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("jwt secret required")
		}
		sessions = store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
	}

	files := cfg.Files
	if files == nil {
		uploadDir := cfg.UploadDir
		if uploadDir == "" {
			uploadDir = "uploads"
		}
		var err error
		files, err = storage.NewDiskStore(uploadDir)
		if err != nil {
			return nil, fmt.Errorf("init file store: %w", err)
		}
	}

	return &App{
		store:    dataStore,
		sessions: sessions,
		files:    files,
	}, nil
}

// Register creates a user and issues a session token. The existence check is
// advisory; the store's unique constraint is the real uniqueness guard.
func (a *App) Register(name, email, password, role string) (domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateName(name); err != nil {
		return domain.User{}, "", err
	}
	if err := validateEmail(email); err != nil {
		return domain.User{}, "", err
	}
	if err := validatePassword(password); err != nil {
		return domain.User{}, "", err
	}
	userRole, err := validateRole(role)
	if err != nil {
		return domain.User{}, "", err
	}

	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           store.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         userRole,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return domain.User{}, "", ErrEmailAlreadyExists
		}
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token. Unknown email and
// wrong password fail identically.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a user from a session token. A valid token whose
// subject no longer exists is treated as invalid.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// ListStudentSubjects returns the classes the student is enrolled in.
func (a *App) ListStudentSubjects(student domain.User) ([]domain.Class, error) {
	return a.store.ListClassesByStudent(student.ID)
}

// ListStudentMaterials returns materials across the student's classes.
func (a *App) ListStudentMaterials(student domain.User) ([]domain.Material, error) {
	return a.store.ListMaterialsByStudent(student.ID)
}

// ListStudentMessages returns messages addressed to the student.
func (a *App) ListStudentMessages(student domain.User) ([]domain.Message, error) {
	return a.store.ListMessagesByStudent(student.ID)
}

// ListStudentGrades returns the student's grades.
func (a *App) ListStudentGrades(student domain.User) ([]domain.Grade, error) {
	return a.store.ListGradesByStudent(student.ID)
}

// ListTeacherClasses returns the classes owned by the teacher.
func (a *App) ListTeacherClasses(teacher domain.User) ([]domain.Class, error) {
	return a.store.ListClassesByTeacher(teacher.ID)
}

// CreateClass creates a class owned by the teacher.
func (a *App) CreateClass(teacher domain.User, name, description string) (domain.Class, error) {
	name = strings.TrimSpace(name)
	if err := validateClassName(name); err != nil {
		return domain.Class{}, err
	}
	if err := validateDescription(description); err != nil {
		return domain.Class{}, err
	}
	class := domain.Class{
		ID:          store.NewID(),
		Name:        name,
		Description: description,
		TeacherID:   teacher.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.SaveClass(class); err != nil {
		return domain.Class{}, fmt.Errorf("save class: %w", err)
	}
	return class, nil
}

// ListClassStudents returns the roster of a class owned by the teacher.
func (a *App) ListClassStudents(teacher domain.User, classID string) ([]domain.User, error) {
	class, err := a.assertOwnsClass(teacher, classID)
	if err != nil {
		return nil, err
	}
	return a.store.ListClassStudents(class.ID)
}

// EnrollStudent adds a student to a class owned by the teacher.
func (a *App) EnrollStudent(teacher domain.User, classID, studentID string) error {
	class, err := a.assertOwnsClass(teacher, classID)
	if err != nil {
		return err
	}
	student, ok, err := a.store.GetUserByID(studentID)
	if err != nil {
		return fmt.Errorf("fetch student: %w", err)
	}
	if !ok || student.Role != domain.RoleStudent {
		return ErrStudentNotFound
	}
	if err := a.store.AddEnrollment(class.ID, student.ID); err != nil {
		return fmt.Errorf("save enrollment: %w", err)
	}
	return nil
}

// UploadMaterial stores the file and creates a material record in a class
// owned by the teacher. The file is persisted before the record so a record
// never points at a missing file.
func (a *App) UploadMaterial(ctx context.Context, teacher domain.User, classID, title, description, filename, contentType string, r io.Reader, size int64) (domain.Material, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle("title", title); err != nil {
		return domain.Material{}, err
	}
	if err := validateDescription(description); err != nil {
		return domain.Material{}, err
	}
	class, err := a.assertOwnsClass(teacher, classID)
	if err != nil {
		return domain.Material{}, err
	}
	fileURL, err := a.files.Save(ctx, filename, contentType, r, size)
	if err != nil {
		return domain.Material{}, fmt.Errorf("save file: %w", err)
	}
	material := domain.Material{
		ID:          store.NewID(),
		Title:       title,
		Description: description,
		FileURL:     fileURL,
		FileType:    contentType,
		ClassID:     class.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.SaveMaterial(material); err != nil {
		return domain.Material{}, fmt.Errorf("save material: %w", err)
	}
	return material, nil
}

// CreateGrade records a grade for a student enrolled in a class owned by the
// teacher.
func (a *App) CreateGrade(teacher domain.User, classID, studentID, assignment string, grade float64, feedback string) (domain.Grade, error) {
	assignment = strings.TrimSpace(assignment)
	if err := validateTitle("assignment", assignment); err != nil {
		return domain.Grade{}, err
	}
	if err := validateGrade(grade); err != nil {
		return domain.Grade{}, err
	}
	class, err := a.assertOwnsClass(teacher, classID)
	if err != nil {
		return domain.Grade{}, err
	}
	if err := a.assertEnrolled(class, studentID); err != nil {
		return domain.Grade{}, err
	}
	record := domain.Grade{
		ID:         store.NewID(),
		StudentID:  studentID,
		ClassID:    class.ID,
		Assignment: assignment,
		Grade:      grade,
		Feedback:   feedback,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.SaveGrade(record); err != nil {
		return domain.Grade{}, fmt.Errorf("save grade: %w", err)
	}
	return record, nil
}

// SendMessage records a message to a student enrolled in a class owned by
// the teacher.
func (a *App) SendMessage(teacher domain.User, classID, studentID, title, content string) (domain.Message, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle("title", title); err != nil {
		return domain.Message{}, err
	}
	if err := validateContent(content); err != nil {
		return domain.Message{}, err
	}
	class, err := a.assertOwnsClass(teacher, classID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := a.assertEnrolled(class, studentID); err != nil {
		return domain.Message{}, err
	}
	message := domain.Message{
		ID:        store.NewID(),
		StudentID: studentID,
		ClassID:   class.ID,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveMessage(message); err != nil {
		return domain.Message{}, fmt.Errorf("save message: %w", err)
	}
	return message, nil
}

// assertOwnsClass resolves the class and checks ownership. An absent class
// and a class owned by someone else return the same ErrClassNotFound.
func (a *App) assertOwnsClass(teacher domain.User, classID string) (domain.Class, error) {
	class, ok, err := a.store.GetClass(classID)
	if err != nil {
		return domain.Class{}, fmt.Errorf("fetch class: %w", err)
	}
	if !ok || class.TeacherID != teacher.ID {
		return domain.Class{}, ErrClassNotFound
	}
	return class, nil
}

// assertEnrolled checks class membership. Callers must have passed the
// ownership check first so enrollment state never leaks for foreign classes.
func (a *App) assertEnrolled(class domain.Class, studentID string) error {
	enrolled, err := a.store.IsEnrolled(class.ID, studentID)
	if err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return ErrStudentNotInClass
	}
	return nil
}
