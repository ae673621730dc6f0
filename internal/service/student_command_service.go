package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

type listInvalidator interface {
	InvalidateStudentLists(ctx context.Context)
}

// StudentCommandService handles every state-changing student message. Each
// handler runs inside its own unit of work and commits at most once.
type StudentCommandService struct {
	uow       UnitOfWorkFactory
	lists     listInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentCommandService constructs the command handlers. lists may be nil.
func NewStudentCommandService(uow UnitOfWorkFactory, lists listInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentCommandService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentCommandService{uow: uow, lists: lists, validator: validate, logger: logger}
}

// Register creates a student, enrolls it in the provided course slots and
// returns the id assigned on commit.
func (s *StudentCommandService) Register(ctx context.Context, cmd RegisterCommand) (int64, error) {
	if err := s.validator.Struct(cmd); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	var studentID int64
	err := s.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		student := models.NewStudent(cmd.Name, cmd.Email)
		slots := [][2]*string{{cmd.Course1, cmd.Course1Grade}, {cmd.Course2, cmd.Course2Grade}}
		for _, slot := range slots {
			if slot[0] == nil || slot[1] == nil {
				continue
			}
			course, err := s.course(ctx, uow, *slot[0])
			if err != nil {
				return err
			}
			grade, err := models.ParseGrade(*slot[1])
			if err != nil {
				return err
			}
			if _, err := student.Enroll(*course, grade); err != nil {
				return err
			}
		}

		if err := uow.Students().Save(ctx, student); err != nil {
			return appErrors.Persistence(err, "failed to save student")
		}
		if err := s.commit(ctx, uow); err != nil {
			return err
		}
		studentID = student.ID()
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("student registered", zap.Int64("student_id", studentID))
	return studentID, nil
}

// Unregister deletes a student.
func (s *StudentCommandService) Unregister(ctx context.Context, cmd UnregisterCommand) error {
	return s.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		student, err := s.student(ctx, uow, cmd.StudentID)
		if err != nil {
			return err
		}
		if err := uow.Students().Delete(ctx, student); err != nil {
			return appErrors.Persistence(err, "failed to delete student")
		}
		return s.commit(ctx, uow)
	})
}

// Enroll adds a course in the student's next free slot.
func (s *StudentCommandService) Enroll(ctx context.Context, cmd EnrollCommand) error {
	return s.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		student, err := s.student(ctx, uow, cmd.StudentID)
		if err != nil {
			return err
		}
		course, err := s.course(ctx, uow, cmd.Course)
		if err != nil {
			return err
		}
		grade, err := models.ParseGrade(cmd.Grade)
		if err != nil {
			return err
		}
		if _, err := student.Enroll(*course, grade); err != nil {
			return err
		}
		return s.save(ctx, uow, student)
	})
}

// Transfer moves the numbered enrollment to another course and grade.
func (s *StudentCommandService) Transfer(ctx context.Context, cmd TransferCommand) error {
	return s.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		student, err := s.student(ctx, uow, cmd.StudentID)
		if err != nil {
			return err
		}
		course, err := s.course(ctx, uow, cmd.Course)
		if err != nil {
			return err
		}
		grade, err := models.ParseGrade(cmd.Grade)
		if err != nil {
			return err
		}
		enrollment, err := enrollmentAt(student, cmd.EnrollmentNumber)
		if err != nil {
			return err
		}
		if err := student.TransferEnrollment(enrollment.ID(), *course, grade); err != nil {
			return err
		}
		return s.save(ctx, uow, student)
	})
}

// Disenroll removes the numbered enrollment and records the comment.
func (s *StudentCommandService) Disenroll(ctx context.Context, cmd DisenrollCommand) error {
	return s.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		student, err := s.student(ctx, uow, cmd.StudentID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(cmd.Comment) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "disenrollment comment is required")
		}
		enrollment, err := enrollmentAt(student, cmd.EnrollmentNumber)
		if err != nil {
			return err
		}
		if _, err := student.RemoveEnrollment(enrollment.ID(), cmd.Comment); err != nil {
			return err
		}
		return s.save(ctx, uow, student)
	})
}

// EditPersonalInfo replaces the student's name and email.
func (s *StudentCommandService) EditPersonalInfo(ctx context.Context, cmd EditPersonalInfoCommand) error {
	return s.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		student, err := s.student(ctx, uow, cmd.StudentID)
		if err != nil {
			return err
		}
		if err := s.validator.Struct(cmd); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
		}
		if err := student.Rename(cmd.Name); err != nil {
			return err
		}
		if err := student.ChangeEmail(cmd.Email); err != nil {
			return err
		}
		return s.save(ctx, uow, student)
	})
}

// inUnitOfWork opens a unit of work, runs fn and always releases it. List
// caches are dropped only when fn succeeded, which implies a commit.
func (s *StudentCommandService) inUnitOfWork(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow, err := s.uow.Begin(ctx)
	if err != nil {
		return appErrors.Persistence(err, "failed to begin unit of work")
	}
	defer func() {
		if rbErr := uow.Rollback(); rbErr != nil {
			s.logger.Warn("rollback unit of work", zap.Error(rbErr))
		}
	}()

	if err := fn(uow); err != nil {
		return err
	}
	if s.lists != nil {
		s.lists.InvalidateStudentLists(ctx)
	}
	return nil
}

func (s *StudentCommandService) save(ctx context.Context, uow UnitOfWork, student *models.Student) error {
	if err := uow.Students().Save(ctx, student); err != nil {
		return appErrors.Persistence(err, "failed to save student")
	}
	return s.commit(ctx, uow)
}

func (s *StudentCommandService) commit(ctx context.Context, uow UnitOfWork) error {
	if err := uow.Commit(ctx); err != nil {
		return appErrors.Persistence(err, "failed to commit changes")
	}
	return nil
}

func (s *StudentCommandService) student(ctx context.Context, uow UnitOfWork, id int64) (*models.Student, error) {
	student, err := uow.Students().GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load student")
	}
	if student == nil {
		return nil, studentNotFound(id)
	}
	return student, nil
}

func (s *StudentCommandService) course(ctx context.Context, uow UnitOfWork, name string) (*models.Course, error) {
	course, err := uow.Courses().GetByName(ctx, name)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load course")
	}
	if course == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course is incorrect: '%s'", name))
	}
	return course, nil
}

func enrollmentAt(student *models.Student, number int) (models.Enrollment, error) {
	enrollment, ok := student.GetEnrollment(number)
	if !ok {
		return models.Enrollment{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no enrollment found with number '%d'", number))
	}
	return enrollment, nil
}

func studentNotFound(id int64) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no student found for id: '%d'", id))
}
