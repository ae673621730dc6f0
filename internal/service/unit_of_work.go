package service

import (
	"context"

	"github.com/noah-isme/enrollment-api/internal/models"
)

// UnitOfWorkFactory opens a unit of work scoped to a single message.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork tracks aggregates loaded and changed during one message and
// persists all of them on Commit. Rollback after Commit is a no-op.
type UnitOfWork interface {
	Students() StudentStore
	Courses() CourseStore
	Commit(ctx context.Context) error
	Rollback() error
}

// StudentStore loads and stages Student aggregates. GetByID returns
// (nil, nil) when the student does not exist.
type StudentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	Save(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, student *models.Student) error
	List(ctx context.Context, filter models.StudentFilter) ([]*models.Student, error)
}

// CourseStore resolves catalogue entries. GetByName returns (nil, nil) when
// the course does not exist.
type CourseStore interface {
	GetByName(ctx context.Context, name string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
}
