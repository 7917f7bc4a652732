package clearance

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"clearance-server-go/db"
	"clearance-server-go/models"
)

// NewStudent is the profile captured by the add form or an import row
type NewStudent struct {
	ID        string `json:"id" form:"id"`
	Name      string `json:"name" form:"name"`
	Level     string `json:"level" form:"level"`
	Programme string `json:"programme" form:"programme"`
}

// Summary backs the dashboard cards
type Summary struct {
	Total        int `json:"total"`
	FullyCleared int `json:"fullyCleared"`
	Departments  int `json:"departments"`
}

// ImportResult reports what a batch add did
type ImportResult struct {
	Imported int         `json:"imported"`
	Skipped  []SkipEntry `json:"skipped"`
}

// SkipEntry explains why one import row was not added
type SkipEntry struct {
	Row    int    `json:"row"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Service owns the in-memory copies of the departments and students. Every
// read goes through the cache and every mutation is serialised here, written
// through to the store, and only then made visible.
type Service struct {
	store  db.Store
	logger *zap.Logger

	mu          sync.RWMutex
	departments []models.Department
	students    []models.Student
}

// NewService creates a service; call Load before serving reads
func NewService(store db.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Load fills the cache from the store, seeding defaults on first use
func (s *Service) Load(ctx context.Context) error {
	depts, err := s.store.LoadDepartments(ctx)
	if err != nil {
		return err
	}
	students, err := s.store.LoadStudents(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.departments = depts
	s.students = students
	s.mu.Unlock()

	s.logger.Info("clearance state loaded",
		zap.Int("departments", len(depts)),
		zap.Int("students", len(students)))
	return nil
}

// Departments returns a copy of the department list
func (s *Service) Departments() []models.Department {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Department(nil), s.departments...)
}

// Students returns a copy of the student list, newest first
func (s *Service) Students() []models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Student, len(s.students))
	for i, st := range s.students {
		out[i] = st.Clone()
	}
	return out
}

// Student looks up one student by matriculation number
func (s *Service) Student(id string) (models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.students, id); i >= 0 {
		return s.students[i].Clone(), nil
	}
	return models.Student{}, ErrStudentNotFound
}

// Summary counts students and fully cleared students
func (s *Service) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := Summary{Total: len(s.students), Departments: len(s.departments)}
	for _, st := range s.students {
		if Evaluate(st, s.departments) != StatePending {
			sum.FullyCleared++
		}
	}
	return sum
}

// SetDeptStatus records one department's mark for a student. Any change,
// from anyone, withdraws a previous final clearance.
func (s *Service) SetDeptStatus(ctx context.Context, studentID string, deptID int, status models.ClearanceStatus, actor models.Actor) (models.Student, error) {
	if _, err := models.ParseClearanceStatus(string(status)); err != nil {
		return models.Student{}, ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !hasDepartment(s.departments, deptID) {
		return models.Student{}, fmt.Errorf("%w: %d", ErrUnknownDepartment, deptID)
	}

	updated, err := s.mutate(ctx, studentID, func(st *models.Student) error {
		if st.Status == nil {
			st.Status = map[int]models.ClearanceStatus{}
		}
		st.Status[deptID] = status
		st.FinalStatus = nil
		return nil
	})
	if err != nil {
		return models.Student{}, err
	}

	s.logger.Info("department status updated",
		zap.String("student", studentID),
		zap.Int("department", deptID),
		zap.String("status", string(status)),
		zap.String("actor", actor.Value()))
	return updated, nil
}

// AdminDeclare sets final clearance once every department has cleared the student
func (s *Service) AdminDeclare(ctx context.Context, studentID string, actor models.Actor) (models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.mutate(ctx, studentID, func(st *models.Student) error {
		if !AllCleared(*st, s.departments) {
			return ErrNotAllCleared
		}
		st.FinalStatus = models.Cleared()
		return nil
	})
	if err != nil {
		return models.Student{}, err
	}

	s.logger.Info("final clearance declared",
		zap.String("student", studentID),
		zap.String("actor", actor.Value()))
	return updated, nil
}

// AddStudent registers a new student at the front of the list with every
// department Pending
func (s *Service) AddStudent(ctx context.Context, in NewStudent) (models.Student, error) {
	res, err := s.ImportStudents(ctx, []NewStudent{in})
	if err != nil {
		return models.Student{}, err
	}
	if len(res.Skipped) > 0 {
		return models.Student{}, res.Skipped[0].Err
	}
	return s.Student(strings.TrimSpace(in.ID))
}

// ImportStudents adds a batch of students in one write. Rows with a missing
// matric number or name, or a matric number already present, are skipped.
// Row numbers in the result are 1-based positions in the input.
func (s *Service) ImportStudents(ctx context.Context, in []NewStudent) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.LoadStudents(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Skipped: []SkipEntry{}}
	seen := make(map[string]bool, len(all)+len(in))
	for _, st := range all {
		seen[st.ID] = true
	}

	added := make([]models.Student, 0, len(in))
	for i, row := range in {
		id, name := strings.TrimSpace(row.ID), strings.TrimSpace(row.Name)
		switch {
		case id == "" || name == "":
			res.Skipped = append(res.Skipped, skip(i+1, id, ErrValidation))
			continue
		case seen[id]:
			res.Skipped = append(res.Skipped, skip(i+1, id, ErrStudentExists))
			continue
		}
		seen[id] = true

		status := make(map[int]models.ClearanceStatus, len(s.departments))
		for _, d := range s.departments {
			status[d.ID] = models.StatusPending
		}
		added = append(added, models.Student{
			ID:        id,
			Name:      name,
			Level:     strings.TrimSpace(row.Level),
			Programme: strings.TrimSpace(row.Programme),
			Status:    status,
		})
	}

	if len(added) == 0 {
		return res, nil
	}

	// Rows are prepended one after another, so the last row ends up first
	for i, j := 0, len(added)-1; i < j; i, j = i+1, j-1 {
		added[i], added[j] = added[j], added[i]
	}
	all = append(added, all...)
	if err := s.store.SaveStudents(ctx, all); err != nil {
		return ImportResult{}, err
	}
	s.students = all
	res.Imported = len(added)

	s.logger.Info("students added", zap.Int("added", res.Imported), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

// Watch keeps the cache in sync with saves made by other instances until ctx
// is done
func (s *Service) Watch(ctx context.Context) error {
	changes, err := s.store.Watch(ctx)
	if err != nil {
		return err
	}
	keys := s.store.Keys()
	for change := range changes {
		if err := s.reload(ctx, change.Key, keys); err != nil {
			s.logger.Error("failed to refresh after external change",
				zap.String("key", change.Key), zap.Error(err))
		}
	}
	return ctx.Err()
}

func (s *Service) reload(ctx context.Context, key string, keys db.Keys) error {
	switch key {
	case keys.Students:
		students, err := s.store.LoadStudents(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.students = students
		s.mu.Unlock()
	case keys.Departments:
		depts, err := s.store.LoadDepartments(ctx)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.departments = depts
		s.mu.Unlock()
	}
	return nil
}

// mutate applies fn to the freshly persisted copy of one student, saves the
// whole list and refreshes the cache. Callers hold s.mu.
func (s *Service) mutate(ctx context.Context, studentID string, fn func(*models.Student) error) (models.Student, error) {
	all, err := s.store.LoadStudents(ctx)
	if err != nil {
		return models.Student{}, err
	}
	i := indexOf(all, studentID)
	if i < 0 {
		return models.Student{}, ErrStudentNotFound
	}

	updated := all[i].Clone()
	if err := fn(&updated); err != nil {
		return models.Student{}, err
	}
	all[i] = updated

	if err := s.store.SaveStudents(ctx, all); err != nil {
		return models.Student{}, err
	}
	s.students = all
	return updated.Clone(), nil
}

func skip(row int, id string, err error) SkipEntry {
	return SkipEntry{Row: row, ID: id, Reason: err.Error(), Err: err}
}

func indexOf(students []models.Student, id string) int {
	for i, st := range students {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func hasDepartment(departments []models.Department, id int) bool {
	for _, d := range departments {
		if d.ID == id {
			return true
		}
	}
	return false
}
