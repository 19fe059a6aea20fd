package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lumina/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&ClassModel{},
		&EnrollmentModel{},
		&MaterialModel{},
		&GradeModel{},
		&MessageModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser inserts a user. The unique index on email is the race-safe
// uniqueness guard; a violation is reported as ErrDuplicateEmail.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveClass inserts a class.
func (s *GormStore) SaveClass(c domain.Class) error {
	model := classToModel(c)
	return s.db.Create(&model).Error
}

// GetClass retrieves a class.
func (s *GormStore) GetClass(id string) (domain.Class, bool, error) {
	var model ClassModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Class{}, false, nil
		}
		return domain.Class{}, false, err
	}
	return classFromModel(model), true, nil
}

// ListClassesByTeacher returns classes owned by the teacher, oldest first.
func (s *GormStore) ListClassesByTeacher(teacherID string) ([]domain.Class, error) {
	var models []ClassModel
	if err := s.db.Where("teacher_id = ?", teacherID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return classesFromModels(models), nil
}

// ListClassesByStudent returns classes the student is enrolled in.
func (s *GormStore) ListClassesByStudent(studentID string) ([]domain.Class, error) {
	var models []ClassModel
	err := s.db.Model(&ClassModel{}).
		Joins("JOIN enrollment_models ON enrollment_models.class_id = class_models.id").
		Where("enrollment_models.student_id = ?", studentID).
		Order("class_models.created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return classesFromModels(models), nil
}

// AddEnrollment records the class/student relation. Re-enrollment is a no-op.
func (s *GormStore) AddEnrollment(classID, studentID string) error {
	model := EnrollmentModel{
		ClassID:   classID,
		StudentID: studentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}

// IsEnrolled reports whether the student is a member of the class.
func (s *GormStore) IsEnrolled(classID, studentID string) (bool, error) {
	var count int64
	err := s.db.Model(&EnrollmentModel{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListClassStudents returns the enrolled students of a class.
func (s *GormStore) ListClassStudents(classID string) ([]domain.User, error) {
	var models []UserModel
	err := s.db.Model(&UserModel{}).
		Joins("JOIN enrollment_models ON enrollment_models.student_id = user_models.id").
		Where("enrollment_models.class_id = ?", classID).
		Order("enrollment_models.created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// SaveMaterial inserts a material record.
func (s *GormStore) SaveMaterial(m domain.Material) error {
	model := materialToModel(m)
	return s.db.Create(&model).Error
}

// ListMaterialsByClass returns materials of one class.
func (s *GormStore) ListMaterialsByClass(classID string) ([]domain.Material, error) {
	var models []MaterialModel
	if err := s.db.Where("class_id = ?", classID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return materialsFromModels(models), nil
}

// ListMaterialsByStudent returns materials across all classes the student is
// enrolled in.
func (s *GormStore) ListMaterialsByStudent(studentID string) ([]domain.Material, error) {
	var models []MaterialModel
	err := s.db.Model(&MaterialModel{}).
		Joins("JOIN enrollment_models ON enrollment_models.class_id = material_models.class_id").
		Where("enrollment_models.student_id = ?", studentID).
		Order("material_models.created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return materialsFromModels(models), nil
}

// SaveGrade inserts a grade record.
func (s *GormStore) SaveGrade(g domain.Grade) error {
	model := gradeToModel(g)
	return s.db.Create(&model).Error
}

// ListGradesByStudent returns the student's grades, oldest first.
func (s *GormStore) ListGradesByStudent(studentID string) ([]domain.Grade, error) {
	var models []GradeModel
	if err := s.db.Where("student_id = ?", studentID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Grade, 0, len(models))
	for _, m := range models {
		res = append(res, gradeFromModel(m))
	}
	return res, nil
}

// SaveMessage inserts a message record.
func (s *GormStore) SaveMessage(m domain.Message) error {
	model := messageToModel(m)
	return s.db.Create(&model).Error
}

// ListMessagesByStudent returns messages addressed to the student.
func (s *GormStore) ListMessagesByStudent(studentID string) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.Where("student_id = ?", studentID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Message, 0, len(models))
	for _, m := range models {
		res = append(res, messageFromModel(m))
	}
	return res, nil
}

func classesFromModels(models []ClassModel) []domain.Class {
	res := make([]domain.Class, 0, len(models))
	for _, m := range models {
		res = append(res, classFromModel(m))
	}
	return res
}

func materialsFromModels(models []MaterialModel) []domain.Material {
	res := make([]domain.Material, 0, len(models))
	for _, m := range models {
		res = append(res, materialFromModel(m))
	}
	return res
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
	}
}

func classToModel(c domain.Class) ClassModel {
	return ClassModel{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		TeacherID:   c.TeacherID,
		CreatedAt:   c.CreatedAt,
	}
}

func classFromModel(m ClassModel) domain.Class {
	return domain.Class{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		TeacherID:   m.TeacherID,
		CreatedAt:   m.CreatedAt,
	}
}

func materialToModel(m domain.Material) MaterialModel {
	return MaterialModel{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		FileURL:     m.FileURL,
		FileType:    m.FileType,
		ClassID:     m.ClassID,
		CreatedAt:   m.CreatedAt,
	}
}

func materialFromModel(m MaterialModel) domain.Material {
	return domain.Material{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		FileURL:     m.FileURL,
		FileType:    m.FileType,
		ClassID:     m.ClassID,
		CreatedAt:   m.CreatedAt,
	}
}

func gradeToModel(g domain.Grade) GradeModel {
	return GradeModel{
		ID:         g.ID,
		StudentID:  g.StudentID,
		ClassID:    g.ClassID,
		Assignment: g.Assignment,
		Grade:      g.Grade,
		Feedback:   g.Feedback,
		CreatedAt:  g.CreatedAt,
	}
}

func gradeFromModel(m GradeModel) domain.Grade {
	return domain.Grade{
		ID:         m.ID,
		StudentID:  m.StudentID,
		ClassID:    m.ClassID,
		Assignment: m.Assignment,
		Grade:      m.Grade,
		Feedback:   m.Feedback,
		CreatedAt:  m.CreatedAt,
	}
}

func messageToModel(m domain.Message) MessageModel {
	return MessageModel{
		ID:        m.ID,
		StudentID: m.StudentID,
		ClassID:   m.ClassID,
		Title:     m.Title,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		StudentID: m.StudentID,
		ClassID:   m.ClassID,
		Title:     m.Title,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
