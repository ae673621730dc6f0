package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/service"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

// DefaultCourses mirrors the catalogue seeded by the initial migration.
func DefaultCourses() []models.Course {
	return []models.Course{
		{ID: 1, Name: "Calculus", Credits: 5},
		{ID: 2, Name: "Chemistry", Credits: 3},
		{ID: 3, Name: "Composition", Credits: 3},
		{ID: 4, Name: "Literature", Credits: 4},
		{ID: 5, Name: "Trigonometry", Credits: 4},
		{ID: 6, Name: "Microeconomics", Credits: 3},
		{ID: 7, Name: "Macroeconomics", Credits: 3},
	}
}

// MemoryStore is an in-process persistence engine. Units of work read
// copies of the stored aggregates and publish changes atomically on Commit,
// rejecting stale versions like the Postgres store does.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	students map[int64]*models.Student
	courses  map[string]models.Course
}

// NewMemoryStore creates a store seeded with the provided courses.
func NewMemoryStore(courses ...models.Course) *MemoryStore {
	s := &MemoryStore{
		students: make(map[int64]*models.Student),
		courses:  make(map[string]models.Course, len(courses)),
	}
	for _, c := range courses {
		s.courses[c.Name] = c
	}
	return s
}

// Begin opens a unit of work over the store.
func (s *MemoryStore) Begin(_ context.Context) (service.UnitOfWork, error) {
	u := &memoryUnitOfWork{store: s, identity: make(map[int64]*memoryTracked)}
	u.students = &memoryStudentStore{uow: u}
	u.courses = &memoryCourseStore{store: s}
	return u, nil
}

// StudentCount reports how many students are stored.
func (s *MemoryStore) StudentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students)
}

func (s *MemoryStore) load(id int64) *models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.students[id]
	if !ok {
		return nil
	}
	return cloneStudent(stored)
}

func (s *MemoryStore) snapshot() []*models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Student, 0, len(s.students))
	for _, stored := range s.students {
		out = append(out, cloneStudent(stored))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func cloneStudent(src *models.Student) *models.Student {
	enrollments := src.Enrollments()
	ptrs := make([]*models.Enrollment, len(enrollments))
	for i := range enrollments {
		ptrs[i] = &enrollments[i]
	}
	return models.RestoreStudent(src.ID(), src.Name(), src.Email(), src.Version(), ptrs, src.Disenrollments())
}

type memoryTracked struct {
	student       *models.Student
	loadedVersion int
	dirty         bool
	deleted       bool
}

type memoryUnitOfWork struct {
	store    *MemoryStore
	identity map[int64]*memoryTracked
	added    []*models.Student
	done     bool

	students *memoryStudentStore
	courses  *memoryCourseStore
}

func (u *memoryUnitOfWork) Students() service.StudentStore { return u.students }
func (u *memoryUnitOfWork) Courses() service.CourseStore   { return u.courses }

func (u *memoryUnitOfWork) Rollback() error {
	u.done = true
	return nil
}

func (u *memoryUnitOfWork) Commit(_ context.Context) error {
	if u.done {
		return errUnitOfWorkDone
	}
	u.done = true

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, tracked := range u.identity {
		if !tracked.deleted && !tracked.dirty {
			continue
		}
		stored, ok := s.students[id]
		if !ok || stored.Version() != tracked.loadedVersion {
			return fmt.Errorf("commit student %d: %w", id, appErrors.Clone(appErrors.ErrConflict, "student was modified concurrently"))
		}
	}

	for id, tracked := range u.identity {
		switch {
		case tracked.deleted:
			delete(s.students, id)
		case tracked.dirty:
			tracked.student.MarkPersisted(id, tracked.loadedVersion+1)
			s.students[id] = cloneStudent(tracked.student)
		}
	}
	for _, student := range u.added {
		s.nextID++
		student.MarkPersisted(s.nextID, 1)
		s.students[s.nextID] = cloneStudent(student)
	}
	return nil
}

func (u *memoryUnitOfWork) track(student *models.Student) *models.Student {
	if tracked, ok := u.identity[student.ID()]; ok {
		return tracked.student
	}
	u.identity[student.ID()] = &memoryTracked{student: student, loadedVersion: student.Version()}
	return student
}

type memoryStudentStore struct {
	uow *memoryUnitOfWork
}

func (r *memoryStudentStore) GetByID(_ context.Context, id int64) (*models.Student, error) {
	if tracked, ok := r.uow.identity[id]; ok {
		if tracked.deleted {
			return nil, nil
		}
		return tracked.student, nil
	}
	student := r.uow.store.load(id)
	if student == nil {
		return nil, nil
	}
	return r.uow.track(student), nil
}

func (r *memoryStudentStore) List(_ context.Context, filter models.StudentFilter) ([]*models.Student, error) {
	out := []*models.Student{}
	for _, student := range r.uow.store.snapshot() {
		if tracked, ok := r.uow.identity[student.ID()]; ok && tracked.deleted {
			continue
		}
		student = r.uow.track(student)
		if filter.Matches(student) {
			out = append(out, student)
		}
	}
	return out, nil
}

func (r *memoryStudentStore) Save(_ context.Context, student *models.Student) error {
	u := r.uow
	if u.done {
		return errUnitOfWorkDone
	}
	if student.IsNew() {
		for _, existing := range u.added {
			if existing == student {
				return nil
			}
		}
		u.added = append(u.added, student)
		return nil
	}
	tracked, ok := u.identity[student.ID()]
	if !ok || tracked.student != student {
		return fmt.Errorf("save student %d: not loaded by this unit of work", student.ID())
	}
	tracked.dirty = true
	return nil
}

func (r *memoryStudentStore) Delete(_ context.Context, student *models.Student) error {
	u := r.uow
	if u.done {
		return errUnitOfWorkDone
	}
	if student.IsNew() {
		for i, existing := range u.added {
			if existing == student {
				u.added = append(u.added[:i], u.added[i+1:]...)
				break
			}
		}
		return nil
	}
	tracked, ok := u.identity[student.ID()]
	if !ok || tracked.student != student {
		return fmt.Errorf("delete student %d: not loaded by this unit of work", student.ID())
	}
	tracked.deleted = true
	return nil
}

type memoryCourseStore struct {
	store *MemoryStore
}

func (r *memoryCourseStore) GetByName(_ context.Context, name string) (*models.Course, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	course, ok := r.store.courses[name]
	if !ok {
		return nil, nil
	}
	return &course, nil
}

func (r *memoryCourseStore) List(_ context.Context) ([]models.Course, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]models.Course, 0, len(r.store.courses))
	for _, c := range r.store.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
