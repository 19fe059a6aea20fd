package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"lumina/internal/app"
	"lumina/internal/ratelimit"
	"lumina/internal/util"
	"lumina/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	RegisterLimiter *ratelimit.FixedWindowLimiter
	LoginLimiter    *ratelimit.FixedWindowLimiter

	// UploadDir, when set, is served read-only under /uploads/ (disk backend).
	UploadDir string
	// MaxUploadBytes caps multipart material uploads. Zero means the default.
	MaxUploadBytes int64
	// AllowedExtensions restricts upload file extensions. Empty allows all.
	AllowedExtensions []string

	CORSOrigins    []string
	TrustedProxies *util.TrustedProxies
}

const defaultMaxUploadBytes = 32 << 20

// Server exposes the HTTP API.
type Server struct {
	app             *app.App
	mux             *http.ServeMux
	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	maxUploadBytes  int64
	allowedExts     map[string]struct{}
	corsOrigins     []string
	trustedProxies  *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:             cfg.App,
		mux:             http.NewServeMux(),
		registerLimiter: cfg.RegisterLimiter,
		loginLimiter:    cfg.LoginLimiter,
		maxUploadBytes:  cfg.MaxUploadBytes,
		corsOrigins:     cfg.CORSOrigins,
		trustedProxies:  cfg.TrustedProxies,
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if len(cfg.AllowedExtensions) > 0 {
		s.allowedExts = make(map[string]struct{}, len(cfg.AllowedExtensions))
		for _, ext := range cfg.AllowedExtensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			s.allowedExts[ext] = struct{}{}
		}
	}
	s.routes(cfg.UploadDir)
	return s
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.corsOrigins, s.mux))))
}

func (s *Server) routes(uploadDir string) {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)

	// student
	s.mux.Handle("/api/student/subjects", s.studentOnly(s.handleStudentSubjects))
	s.mux.Handle("/api/student/materials", s.studentOnly(s.handleStudentMaterials))
	s.mux.Handle("/api/student/messages", s.studentOnly(s.handleStudentMessages))
	s.mux.Handle("/api/student/grades", s.studentOnly(s.handleStudentGrades))

	// teacher
	s.mux.Handle("/api/teacher/classes", s.teacherOnly(s.handleTeacherClasses))
	s.mux.Handle("/api/teacher/students", s.teacherOnly(s.handleTeacherStudents))
	s.mux.Handle("/api/teacher/enrollments", s.teacherOnly(s.handleTeacherEnrollments))
	s.mux.Handle("/api/teacher/materials", s.teacherOnly(s.handleTeacherMaterials))
	s.mux.Handle("/api/teacher/grades", s.teacherOnly(s.handleTeacherGrades))
	s.mux.Handle("/api/teacher/messages", s.teacherOnly(s.handleTeacherMessages))

	// uploaded files (disk backend only)
	if uploadDir != "" {
		s.mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			s.audit(r, "auth.authorize", "fail")
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) studentOnly(next authHandler) http.Handler {
	return s.roleOnly(domain.RoleStudent, next)
}

func (s *Server) teacherOnly(next authHandler) http.Handler {
	return s.roleOnly(domain.RoleTeacher, next)
}

func (s *Server) roleOnly(role domain.UserRole, next authHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != role {
			s.audit(r, "auth.role", "fail", "user_id", user.ID, "role", string(user.Role))
			writeError(w, http.StatusForbidden, "access denied")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

// auth handlers
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "too many registration attempts") {
		s.audit(r, "auth.register", "rate_limited")
		return
	}
	var req registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Register(req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		s.audit(r, "auth.register", "fail", "reason", err.Error())
		s.writeAppError(w, err)
		return
	}
	s.audit(r, "auth.register", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "auth.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "auth.login", "fail")
		s.writeAppError(w, err)
		return
	}
	s.audit(r, "auth.login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// student handlers
func (s *Server) handleStudentSubjects(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	classes, err := s.app.ListStudentSubjects(user)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(classes))
}

func (s *Server) handleStudentMaterials(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	materials, err := s.app.ListStudentMaterials(user)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(materials))
}

func (s *Server) handleStudentMessages(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	messages, err := s.app.ListStudentMessages(user)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(messages))
}

func (s *Server) handleStudentGrades(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	grades, err := s.app.ListStudentGrades(user)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(grades))
}

// teacher handlers
func (s *Server) handleTeacherClasses(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		classes, err := s.app.ListTeacherClasses(user)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, emptySlice(classes))
	case http.MethodPost:
		var req classCreateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		class, err := s.app.CreateClass(user, req.Name, req.Description)
		if err != nil {
			s.writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, class)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleTeacherStudents(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	classID := strings.TrimSpace(r.URL.Query().Get("class_id"))
	if classID == "" {
		writeError(w, http.StatusBadRequest, "class_id is required")
		return
	}
	students, err := s.app.ListClassStudents(user, classID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptySlice(students))
}

func (s *Server) handleTeacherEnrollments(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req enrollmentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.EnrollStudent(user, req.ClassID, req.StudentID); err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "enrolled"})
}

func (s *Server) handleTeacherMaterials(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body or file too large")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if len(s.allowedExts) > 0 {
		ext := strings.ToLower(path.Ext(header.Filename))
		if _, ok := s.allowedExts[ext]; !ok {
			writeError(w, http.StatusBadRequest, "file type not allowed")
			return
		}
	}

	contentType := header.Header.Get("Content-Type")
	material, err := s.app.UploadMaterial(
		r.Context(),
		user,
		r.FormValue("class_id"),
		r.FormValue("title"),
		r.FormValue("description"),
		header.Filename,
		contentType,
		file,
		header.Size,
	)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.audit(r, "material.upload", "success", "user_id", user.ID, "material_id", material.ID)
	writeJSON(w, http.StatusCreated, material)
}

func (s *Server) handleTeacherGrades(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req gradeCreateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	grade, err := s.app.CreateGrade(user, req.ClassID, req.StudentID, req.Assignment, req.Grade, req.Feedback)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grade)
}

func (s *Server) handleTeacherMessages(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req messageCreateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	message, err := s.app.SendMessage(user, req.ClassID, req.StudentID, req.Title, req.Content)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

// writeAppError maps application errors to HTTP statuses. Unexpected errors
// are logged and surface as a plain 500.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrClassNotFound),
		errors.Is(err, app.ErrStudentNotFound),
		errors.Is(err, app.ErrStudentNotInClass):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

// allowRate checks the limiter keyed by path and client IP. A nil limiter
// allows everything (tests and single-node dev setups).
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"user_type"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type classCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type enrollmentRequest struct {
	ClassID   string `json:"class_id"`
	StudentID string `json:"student_id"`
}

type gradeCreateRequest struct {
	StudentID  string  `json:"student_id"`
	ClassID    string  `json:"class_id"`
	Assignment string  `json:"assignment"`
	Grade      float64 `json:"grade"`
	Feedback   string  `json:"feedback"`
}

type messageCreateRequest struct {
	StudentID string `json:"student_id"`
	ClassID   string `json:"class_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// emptySlice keeps list responses as [] instead of null.
func emptySlice[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
