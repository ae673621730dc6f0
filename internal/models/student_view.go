package models

import (
	"time"

	"github.com/google/uuid"
)

// StudentFilter narrows a student listing. Nil fields do not constrain.
// EnrolledIn matches a course name exactly; NumberOfCourses matches the
// active enrollment count exactly. Both combine with AND.
type StudentFilter struct {
	EnrolledIn      *string
	NumberOfCourses *int
}

// Matches reports whether s satisfies every set criterion.
func (f StudentFilter) Matches(s *Student) bool {
	if f.NumberOfCourses != nil && s.EnrollmentCount() != *f.NumberOfCourses {
		return false
	}
	if f.EnrolledIn != nil {
		for _, e := range s.enrollments {
			if e.course.Name == *f.EnrolledIn {
				return true
			}
		}
		return false
	}
	return true
}

// StudentSummary is the flat list projection with two enrollment slots.
type StudentSummary struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Course1        *string `json:"course1"`
	Course1Grade   *string `json:"course1_grade"`
	Course1Credits *int    `json:"course1_credits"`
	Course2        *string `json:"course2"`
	Course2Grade   *string `json:"course2_grade"`
	Course2Credits *int    `json:"course2_credits"`
}

// EnrollmentView exposes an active enrollment with its stable identifier.
type EnrollmentView struct {
	ID      uuid.UUID `json:"id"`
	Number  int       `json:"number"`
	Course  string    `json:"course"`
	Grade   string    `json:"grade"`
	Credits int       `json:"credits"`
}

// DisenrollmentView is one entry of a student's disenrollment history.
type DisenrollmentView struct {
	ID        uuid.UUID `json:"id"`
	Course    string    `json:"course"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// StudentDetail is the single student projection including history.
type StudentDetail struct {
	StudentSummary
	Version        int                 `json:"version"`
	Enrollments    []EnrollmentView    `json:"enrollments"`
	Disenrollments []DisenrollmentView `json:"disenrollments"`
}

// Summarize projects a student into its list row.
func Summarize(s *Student) StudentSummary {
	summary := StudentSummary{ID: s.id, Name: s.name, Email: s.email}
	if e, ok := s.FirstEnrollment(); ok {
		summary.Course1, summary.Course1Grade, summary.Course1Credits = slotFields(e)
	}
	if e, ok := s.SecondEnrollment(); ok {
		summary.Course2, summary.Course2Grade, summary.Course2Credits = slotFields(e)
	}
	return summary
}

// Describe projects a student into its detail view.
func Describe(s *Student) StudentDetail {
	detail := StudentDetail{
		StudentSummary: Summarize(s),
		Version:        s.version,
		Enrollments:    make([]EnrollmentView, 0, len(s.enrollments)),
		Disenrollments: make([]DisenrollmentView, 0, len(s.disenrollments)),
	}
	for i, e := range s.enrollments {
		detail.Enrollments = append(detail.Enrollments, EnrollmentView{
			ID:      e.id,
			Number:  i,
			Course:  e.course.Name,
			Grade:   e.grade.String(),
			Credits: e.course.Credits,
		})
	}
	for _, d := range s.disenrollments {
		detail.Disenrollments = append(detail.Disenrollments, DisenrollmentView{
			ID:        d.id,
			Course:    d.course.Name,
			Comment:   d.comment,
			CreatedAt: d.createdAt,
		})
	}
	return detail
}

func slotFields(e Enrollment) (*string, *string, *int) {
	name := e.course.Name
	grade := e.grade.String()
	credits := e.course.Credits
	return &name, &grade, &credits
}
