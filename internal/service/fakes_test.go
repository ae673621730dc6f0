package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

var (
	courseCS101 = models.Course{ID: 1, Name: "CS101", Credits: 3}
	courseMath  = models.Course{ID: 2, Name: "Math", Credits: 4}
	courseArt   = models.Course{ID: 3, Name: "Art", Credits: 2}
)

// fakeStore is a minimal unit of work backend that records commits and
// deletes so tests can assert on side effects.
type fakeStore struct {
	students  map[int64]*models.Student
	courses   map[string]models.Course
	nextID    int64
	commits   int
	deletes   int
	commitErr error
	beginErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		students: make(map[int64]*models.Student),
		courses: map[string]models.Course{
			courseCS101.Name: courseCS101,
			courseMath.Name:  courseMath,
			courseArt.Name:   courseArt,
		},
	}
}

func (f *fakeStore) Begin(context.Context) (UnitOfWork, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &fakeUnitOfWork{store: f, loaded: make(map[int64]*models.Student)}, nil
}

// seed stores a persisted student enrolled in the given courses.
func (f *fakeStore) seed(name string, courses ...models.Course) int64 {
	s := models.NewStudent(name, name+"@x.com")
	for _, c := range courses {
		if _, err := s.Enroll(c, models.GradeB); err != nil {
			panic(err)
		}
	}
	f.nextID++
	s.MarkPersisted(f.nextID, 1)
	f.students[f.nextID] = clone(s)
	return f.nextID
}

func (f *fakeStore) get(id int64) *models.Student {
	if s, ok := f.students[id]; ok {
		return clone(s)
	}
	return nil
}

func clone(src *models.Student) *models.Student {
	enrollments := src.Enrollments()
	ptrs := make([]*models.Enrollment, len(enrollments))
	for i := range enrollments {
		ptrs[i] = &enrollments[i]
	}
	return models.RestoreStudent(src.ID(), src.Name(), src.Email(), src.Version(), ptrs, src.Disenrollments())
}

type fakeUnitOfWork struct {
	store   *fakeStore
	loaded  map[int64]*models.Student
	saved   []*models.Student
	deleted []*models.Student
}

func (u *fakeUnitOfWork) Students() StudentStore { return fakeStudentStore{u} }
func (u *fakeUnitOfWork) Courses() CourseStore   { return fakeCourseStore{u.store} }
func (u *fakeUnitOfWork) Rollback() error        { return nil }

func (u *fakeUnitOfWork) Commit(context.Context) error {
	if u.store.commitErr != nil {
		return u.store.commitErr
	}
	for _, s := range u.deleted {
		delete(u.store.students, s.ID())
		u.store.deletes++
	}
	for _, s := range u.saved {
		if s.IsNew() {
			u.store.nextID++
			s.MarkPersisted(u.store.nextID, 1)
		} else {
			s.MarkPersisted(s.ID(), s.Version()+1)
		}
		u.store.students[s.ID()] = clone(s)
	}
	u.store.commits++
	return nil
}

type fakeStudentStore struct{ u *fakeUnitOfWork }

func (r fakeStudentStore) GetByID(_ context.Context, id int64) (*models.Student, error) {
	if s, ok := r.u.loaded[id]; ok {
		return s, nil
	}
	s := r.u.store.get(id)
	if s != nil {
		r.u.loaded[id] = s
	}
	return s, nil
}

func (r fakeStudentStore) Save(_ context.Context, s *models.Student) error {
	r.u.saved = append(r.u.saved, s)
	return nil
}

func (r fakeStudentStore) Delete(_ context.Context, s *models.Student) error {
	r.u.deleted = append(r.u.deleted, s)
	return nil
}

func (r fakeStudentStore) List(_ context.Context, filter models.StudentFilter) ([]*models.Student, error) {
	var out []*models.Student
	for id := range r.u.store.students {
		s := r.u.store.get(id)
		if filter.Matches(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() > out[j].ID() })
	return out, nil
}

type fakeCourseStore struct{ store *fakeStore }

func (r fakeCourseStore) GetByName(_ context.Context, name string) (*models.Course, error) {
	if c, ok := r.store.courses[name]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r fakeCourseStore) List(context.Context) ([]models.Course, error) {
	out := make([]models.Course, 0, len(r.store.courses))
	for _, c := range r.store.courses {
		out = append(out, c)
	}
	return out, nil
}

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) InvalidateStudentLists(context.Context) { f.calls++ }

type fakeCacheRepo struct {
	entries  map[string]interface{}
	counters map[string]int64
	gets     int
	sets     int
	deleted  []string
	getErr   error
	// keepOnDelete leaves entries in place on pattern deletes so tests can
	// observe what a lagging delete would leave behind.
	keepOnDelete bool
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string]interface{}), counters: make(map[string]int64)}
}

func (f *fakeCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	f.gets++
	if f.getErr != nil {
		return f.getErr
	}
	v, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	summaries, ok := v.([]models.StudentSummary)
	target, okDest := dest.(*[]models.StudentSummary)
	if !ok || !okDest {
		return errors.New("unexpected cache payload")
	}
	*target = append([]models.StudentSummary(nil), summaries...)
	return nil
}

func (f *fakeCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.sets++
	f.entries[key] = value
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	f.deleted = append(f.deleted, pattern)
	if !f.keepOnDelete {
		f.entries = make(map[string]interface{})
	}
	return nil
}

func (f *fakeCacheRepo) Counter(_ context.Context, key string) (int64, error) {
	return f.counters[key], nil
}

func (f *fakeCacheRepo) Incr(_ context.Context, key string) (int64, error) {
	f.counters[key]++
	return f.counters[key], nil
}

// interleavingStore runs during once, right after the first student list is
// read and before the reader returns, to stand in for a concurrent commit.
type interleavingStore struct {
	*fakeStore
	during func()
}

func (s *interleavingStore) Begin(ctx context.Context) (UnitOfWork, error) {
	uow, err := s.fakeStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return interleavingUnitOfWork{UnitOfWork: uow, store: s}, nil
}

type interleavingUnitOfWork struct {
	UnitOfWork
	store *interleavingStore
}

func (u interleavingUnitOfWork) Students() StudentStore {
	return interleavingStudentStore{StudentStore: u.UnitOfWork.Students(), store: u.store}
}

type interleavingStudentStore struct {
	StudentStore
	store *interleavingStore
}

func (r interleavingStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]*models.Student, error) {
	out, err := r.StudentStore.List(ctx, filter)
	if during := r.store.during; during != nil {
		r.store.during = nil
		during()
	}
	return out, err
}

func strPtr(s string) *string { return &s }
