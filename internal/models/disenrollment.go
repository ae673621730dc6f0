package models

import (
	"time"

	"github.com/google/uuid"
)

// Disenrollment records why a student left a course. It is never mutated.
type Disenrollment struct {
	id        uuid.UUID
	studentID int64
	course    Course
	comment   string
	createdAt time.Time
}

// RestoreDisenrollment rebuilds a persisted disenrollment record.
func RestoreDisenrollment(id uuid.UUID, studentID int64, course Course, comment string, createdAt time.Time) Disenrollment {
	return Disenrollment{id: id, studentID: studentID, course: course, comment: comment, createdAt: createdAt}
}

func (d Disenrollment) ID() uuid.UUID        { return d.id }
func (d Disenrollment) StudentID() int64     { return d.studentID }
func (d Disenrollment) Course() Course       { return d.course }
func (d Disenrollment) Comment() string      { return d.comment }
func (d Disenrollment) CreatedAt() time.Time { return d.createdAt }
