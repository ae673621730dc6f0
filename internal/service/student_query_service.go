package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

type listCache interface {
	StudentListGeneration(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// StudentQueryService answers read-only messages. It opens a unit of work
// per query and never commits it.
type StudentQueryService struct {
	uow    UnitOfWorkFactory
	cache  listCache
	logger *zap.Logger
}

// NewStudentQueryService constructs the query handlers. cache may be nil.
func NewStudentQueryService(uow UnitOfWorkFactory, cache listCache, logger *zap.Logger) *StudentQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentQueryService{uow: uow, cache: cache, logger: logger}
}

// GetList returns the flat projection of students matching the filter,
// ordered by id.
func (s *StudentQueryService) GetList(ctx context.Context, q GetListQuery) ([]models.StudentSummary, error) {
	filter := models.StudentFilter{EnrolledIn: q.EnrolledIn, NumberOfCourses: q.NumberOfCourses}

	// The generation is read before the store so a commit that lands in
	// between bumps it and the entry written below is never served.
	var key string
	if s.cache != nil {
		if gen, err := s.cache.StudentListGeneration(ctx); err == nil {
			key = StudentListKey(gen, filter)
		}
	}

	if key != "" {
		var cached []models.StudentSummary
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	var summaries []models.StudentSummary
	err := s.read(ctx, func(uow UnitOfWork) error {
		students, err := uow.Students().List(ctx, filter)
		if err != nil {
			return appErrors.Persistence(err, "failed to list students")
		}
		sort.Slice(students, func(i, j int) bool { return students[i].ID() < students[j].ID() })
		summaries = make([]models.StudentSummary, 0, len(students))
		for _, student := range students {
			summaries = append(summaries, models.Summarize(student))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if key != "" {
		_ = s.cache.Set(ctx, key, summaries, 0)
	}
	return summaries, nil
}

// GetStudent returns one student with enrollment ids and history.
func (s *StudentQueryService) GetStudent(ctx context.Context, q GetStudentQuery) (models.StudentDetail, error) {
	var detail models.StudentDetail
	err := s.read(ctx, func(uow UnitOfWork) error {
		student, err := uow.Students().GetByID(ctx, q.StudentID)
		if err != nil {
			return appErrors.Persistence(err, "failed to load student")
		}
		if student == nil {
			return studentNotFound(q.StudentID)
		}
		detail = models.Describe(student)
		return nil
	})
	return detail, err
}

// ListCourses returns the course catalogue ordered by name.
func (s *StudentQueryService) ListCourses(ctx context.Context, _ ListCoursesQuery) ([]models.Course, error) {
	var courses []models.Course
	err := s.read(ctx, func(uow UnitOfWork) error {
		list, err := uow.Courses().List(ctx)
		if err != nil {
			return appErrors.Persistence(err, "failed to list courses")
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		courses = list
		return nil
	})
	return courses, err
}

func (s *StudentQueryService) read(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return appErrors.Persistence(err, "failed to begin unit of work")
	}
	defer func() {
		if rbErr := uow.Rollback(); rbErr != nil {
			s.logger.Warn("release read unit of work", zap.Error(rbErr))
		}
	}()
	return fn(uow)
}
