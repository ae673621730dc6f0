package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

// MaxEnrollments is the number of courses a student may attend at once.
const MaxEnrollments = 2

var (
	newEnrollmentID = uuid.New
	now             = func() time.Time { return time.Now().UTC() }
)

// Student is the aggregate root owning its enrollments and disenrollment
// history. Collections are only changed through the methods below.
type Student struct {
	id             int64
	name           string
	email          string
	version        int
	enrollments    []*Enrollment
	disenrollments []Disenrollment
}

// NewStudent creates an unsaved student. The identity is assigned by the store.
func NewStudent(name, email string) *Student {
	return &Student{name: name, email: email}
}

// RestoreStudent rebuilds a persisted aggregate. Stores are the only callers.
func RestoreStudent(id int64, name, email string, version int, enrollments []*Enrollment, disenrollments []Disenrollment) *Student {
	s := &Student{id: id, name: name, email: email, version: version}
	for _, e := range enrollments {
		clone := *e
		s.enrollments = append(s.enrollments, &clone)
	}
	s.disenrollments = append(s.disenrollments, disenrollments...)
	return s
}

func (s *Student) ID() int64     { return s.id }
func (s *Student) Name() string  { return s.name }
func (s *Student) Email() string { return s.email }
func (s *Student) Version() int  { return s.version }
func (s *Student) IsNew() bool   { return s.id == 0 }

// EnrollmentCount returns the number of occupied slots.
func (s *Student) EnrollmentCount() int { return len(s.enrollments) }

// MarkPersisted records the identity and version assigned by a store.
func (s *Student) MarkPersisted(id int64, version int) {
	s.id = id
	s.version = version
	for _, e := range s.enrollments {
		e.studentID = id
	}
}

// Enrollments returns a copy of the active enrollments in slot order.
func (s *Student) Enrollments() []Enrollment {
	out := make([]Enrollment, len(s.enrollments))
	for i, e := range s.enrollments {
		out[i] = *e
	}
	return out
}

// Disenrollments returns a copy of the disenrollment history, oldest first.
func (s *Student) Disenrollments() []Disenrollment {
	out := make([]Disenrollment, len(s.disenrollments))
	copy(out, s.disenrollments)
	return out
}

// GetEnrollment returns the enrollment occupying the zero-based slot index.
func (s *Student) GetEnrollment(index int) (Enrollment, bool) {
	if index < 0 || index >= len(s.enrollments) {
		return Enrollment{}, false
	}
	return *s.enrollments[index], true
}

func (s *Student) FirstEnrollment() (Enrollment, bool)  { return s.GetEnrollment(0) }
func (s *Student) SecondEnrollment() (Enrollment, bool) { return s.GetEnrollment(1) }

// Enroll adds a course to the next free slot.
func (s *Student) Enroll(course Course, grade Grade) (Enrollment, error) {
	if len(s.enrollments) >= MaxEnrollments {
		return Enrollment{}, appErrors.Clone(appErrors.ErrCapacityExceeded,
			fmt.Sprintf("cannot have more than %d enrollments", MaxEnrollments))
	}
	if !grade.Valid() {
		return Enrollment{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade is incorrect: '%s'", grade))
	}

	e := &Enrollment{id: newEnrollmentID(), studentID: s.id, course: course, grade: grade}
	s.enrollments = append(s.enrollments, e)
	return *e, nil
}

// TransferEnrollment moves an existing enrollment to another course and grade.
func (s *Student) TransferEnrollment(enrollmentID uuid.UUID, course Course, grade Grade) error {
	e, _ := s.findEnrollment(enrollmentID)
	if e == nil {
		return enrollmentNotFound(enrollmentID)
	}
	if !grade.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade is incorrect: '%s'", grade))
	}
	e.Update(course, grade)
	return nil
}

// RemoveEnrollment drops an active enrollment and appends one disenrollment
// carrying the comment.
func (s *Student) RemoveEnrollment(enrollmentID uuid.UUID, comment string) (Disenrollment, error) {
	if strings.TrimSpace(comment) == "" {
		return Disenrollment{}, appErrors.Clone(appErrors.ErrValidation, "disenrollment comment is required")
	}
	e, idx := s.findEnrollment(enrollmentID)
	if e == nil {
		return Disenrollment{}, enrollmentNotFound(enrollmentID)
	}

	s.enrollments = append(s.enrollments[:idx], s.enrollments[idx+1:]...)
	d := Disenrollment{
		id:        newEnrollmentID(),
		studentID: s.id,
		course:    e.course,
		comment:   comment,
		createdAt: now(),
	}
	s.disenrollments = append(s.disenrollments, d)
	return d, nil
}

// Rename replaces the student's name.
func (s *Student) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	s.name = name
	return nil
}

// ChangeEmail replaces the student's email address.
func (s *Student) ChangeEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	s.email = email
	return nil
}

func (s *Student) findEnrollment(id uuid.UUID) (*Enrollment, int) {
	for i, e := range s.enrollments {
		if e.id == id {
			return e, i
		}
	}
	return nil, -1
}

func enrollmentNotFound(id uuid.UUID) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("enrollment not found: '%s'", id))
}
