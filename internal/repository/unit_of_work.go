package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/service"
)

var errUnitOfWorkDone = errors.New("unit of work already completed")

// PostgresUnitOfWorkFactory opens a transaction-backed unit of work per message.
type PostgresUnitOfWorkFactory struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresUnitOfWorkFactory constructs the factory.
func NewPostgresUnitOfWorkFactory(db *sqlx.DB, logger *zap.Logger) *PostgresUnitOfWorkFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresUnitOfWorkFactory{db: db, logger: logger}
}

// Begin starts a transaction and wraps it in a unit of work.
func (f *PostgresUnitOfWorkFactory) Begin(ctx context.Context) (service.UnitOfWork, error) {
	tx, err := f.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return newPostgresUnitOfWork(tx, f.logger), nil
}

type trackedStudent struct {
	student              *models.Student
	loadedVersion        int
	loadedDisenrollments int
	dirty                bool
	deleted              bool
}

// PostgresUnitOfWork keeps an identity map of the students it loaded and
// writes every staged change inside one transaction on Commit.
type PostgresUnitOfWork struct {
	tx       *sqlx.Tx
	logger   *zap.Logger
	identity map[int64]*trackedStudent
	added    []*models.Student
	done     bool

	students *postgresStudentStore
	courses  *postgresCourseStore
}

func newPostgresUnitOfWork(tx *sqlx.Tx, logger *zap.Logger) *PostgresUnitOfWork {
	u := &PostgresUnitOfWork{tx: tx, logger: logger, identity: make(map[int64]*trackedStudent)}
	u.students = &postgresStudentStore{uow: u}
	u.courses = &postgresCourseStore{tx: tx}
	return u
}

// Students returns the student store bound to this unit of work.
func (u *PostgresUnitOfWork) Students() service.StudentStore { return u.students }

// Courses returns the course store bound to this unit of work.
func (u *PostgresUnitOfWork) Courses() service.CourseStore { return u.courses }

// Commit flushes deletes, updates and inserts in that order and commits the
// transaction. Any failure rolls everything back.
func (u *PostgresUnitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return errUnitOfWorkDone
	}
	u.done = true

	if err := u.flush(ctx); err != nil {
		if rbErr := u.tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			u.logger.Warn("rollback after failed flush", zap.Error(rbErr))
		}
		return err
	}
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

// Rollback discards the transaction. It is a no-op after Commit.
func (u *PostgresUnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback unit of work: %w", err)
	}
	return nil
}

func (u *PostgresUnitOfWork) flush(ctx context.Context) error {
	ids := make([]int64, 0, len(u.identity))
	for id := range u.identity {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		tracked := u.identity[id]
		if !tracked.deleted {
			continue
		}
		if err := deleteStudent(ctx, u.tx, id, tracked.loadedVersion); err != nil {
			return err
		}
	}

	for _, id := range ids {
		tracked := u.identity[id]
		if tracked.deleted || !tracked.dirty {
			continue
		}
		if err := updateStudent(ctx, u.tx, tracked.student, tracked.loadedVersion); err != nil {
			return err
		}
		if err := syncChildren(ctx, u.tx, tracked.student, tracked.loadedDisenrollments); err != nil {
			return err
		}
		tracked.student.MarkPersisted(id, tracked.loadedVersion+1)
	}

	for _, student := range u.added {
		id, err := insertStudent(ctx, u.tx, student)
		if err != nil {
			return err
		}
		student.MarkPersisted(id, 1)
		if err := syncChildren(ctx, u.tx, student, 0); err != nil {
			return err
		}
	}
	return nil
}

func (u *PostgresUnitOfWork) track(student *models.Student, disenrollments int) *models.Student {
	if tracked, ok := u.identity[student.ID()]; ok {
		return tracked.student
	}
	u.identity[student.ID()] = &trackedStudent{
		student:              student,
		loadedVersion:        student.Version(),
		loadedDisenrollments: disenrollments,
	}
	return student
}

func (u *PostgresUnitOfWork) stageSave(student *models.Student) error {
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

func (u *PostgresUnitOfWork) stageDelete(student *models.Student) error {
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
