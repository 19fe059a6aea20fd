package store

import (
	"sync"

	"lumina/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs the app and server tests
// and mirrors the uniqueness guarantees of the Postgres store.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]domain.User // key: user ID
	email       map[string]string      // email -> user ID
	classes     map[string]domain.Class
	classOrder  []string
	enrollments map[string][]string          // class ID -> student IDs in enrollment order
	materials   map[string][]domain.Material // class ID -> materials
	grades      map[string][]domain.Grade    // student ID -> grades
	messages    map[string][]domain.Message  // student ID -> messages
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]domain.User),
		email:       make(map[string]string),
		classes:     make(map[string]domain.Class),
		enrollments: make(map[string][]string),
		materials:   make(map[string][]domain.Material),
		grades:      make(map[string][]domain.Grade),
		messages:    make(map[string][]domain.Message),
	}
}

// SaveUser registers a user, enforcing email uniqueness like the DB index.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.email[u.Email]; ok && existing != u.ID {
		return ErrDuplicateEmail
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// SaveClass stores a class and tracks insertion order.
func (m *MemoryStore) SaveClass(c domain.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.classes[c.ID]; !exists {
		m.classOrder = append(m.classOrder, c.ID)
	}
	m.classes[c.ID] = c
	return nil
}

// GetClass retrieves a class by ID.
func (m *MemoryStore) GetClass(id string) (domain.Class, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[id]
	return c, ok, nil
}

// ListClassesByTeacher returns classes owned by the teacher in insertion order.
func (m *MemoryStore) ListClassesByTeacher(teacherID string) ([]domain.Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Class, 0)
	for _, id := range m.classOrder {
		if c, ok := m.classes[id]; ok && c.TeacherID == teacherID {
			res = append(res, c)
		}
	}
	return res, nil
}

// ListClassesByStudent returns classes the student is enrolled in.
func (m *MemoryStore) ListClassesByStudent(studentID string) ([]domain.Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Class, 0)
	for _, id := range m.classOrder {
		if m.enrolledLocked(id, studentID) {
			res = append(res, m.classes[id])
		}
	}
	return res, nil
}

// AddEnrollment records the class/student relation. Re-enrollment is a no-op.
func (m *MemoryStore) AddEnrollment(classID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enrolledLocked(classID, studentID) {
		return nil
	}
	m.enrollments[classID] = append(m.enrollments[classID], studentID)
	return nil
}

// IsEnrolled reports whether the student is a member of the class.
func (m *MemoryStore) IsEnrolled(classID, studentID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enrolledLocked(classID, studentID), nil
}

// ListClassStudents returns enrolled students in enrollment order.
func (m *MemoryStore) ListClassStudents(classID string) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.enrollments[classID]
	res := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

// SaveMaterial stores a material under its class.
func (m *MemoryStore) SaveMaterial(material domain.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materials[material.ClassID] = append(m.materials[material.ClassID], material)
	return nil
}

// ListMaterialsByClass returns materials of one class.
func (m *MemoryStore) ListMaterialsByClass(classID string) ([]domain.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Material, 0, len(m.materials[classID]))
	res = append(res, m.materials[classID]...)
	return res, nil
}

// ListMaterialsByStudent returns materials across the student's classes.
func (m *MemoryStore) ListMaterialsByStudent(studentID string) ([]domain.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Material, 0)
	for _, id := range m.classOrder {
		if m.enrolledLocked(id, studentID) {
			res = append(res, m.materials[id]...)
		}
	}
	return res, nil
}

// SaveGrade stores a grade under its student.
func (m *MemoryStore) SaveGrade(g domain.Grade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grades[g.StudentID] = append(m.grades[g.StudentID], g)
	return nil
}

// ListGradesByStudent returns the student's grades.
func (m *MemoryStore) ListGradesByStudent(studentID string) ([]domain.Grade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Grade, 0, len(m.grades[studentID]))
	res = append(res, m.grades[studentID]...)
	return res, nil
}

// SaveMessage stores a message under its recipient.
func (m *MemoryStore) SaveMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.StudentID] = append(m.messages[msg.StudentID], msg)
	return nil
}

// ListMessagesByStudent returns messages addressed to the student.
func (m *MemoryStore) ListMessagesByStudent(studentID string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Message, 0, len(m.messages[studentID]))
	res = append(res, m.messages[studentID]...)
	return res, nil
}

func (m *MemoryStore) enrolledLocked(classID, studentID string) bool {
	for _, id := range m.enrollments[classID] {
		if id == studentID {
			return true
		}
	}
	return false
}
