package models

import "github.com/google/uuid"

// Enrollment ties a student to one course with a grade. Instances are only
// created by Student.Enroll or rebuilt by a store via RestoreEnrollment.
type Enrollment struct {
	id        uuid.UUID
	studentID int64
	course    Course
	grade     Grade
}

// RestoreEnrollment rebuilds a persisted enrollment.
func RestoreEnrollment(id uuid.UUID, studentID int64, course Course, grade Grade) *Enrollment {
	return &Enrollment{id: id, studentID: studentID, course: course, grade: grade}
}

func (e Enrollment) ID() uuid.UUID    { return e.id }
func (e Enrollment) StudentID() int64 { return e.studentID }
func (e Enrollment) Course() Course   { return e.course }
func (e Enrollment) Grade() Grade     { return e.grade }

// Update replaces course and grade together.
func (e *Enrollment) Update(course Course, grade Grade) {
	e.course = course
	e.grade = grade
}
