package service

import (
	"github.com/noah-isme/enrollment-api/internal/dispatch"
)

// Message kinds routed by the mediator.
const (
	KindRegister         dispatch.Kind = "student.register"
	KindUnregister       dispatch.Kind = "student.unregister"
	KindEnroll           dispatch.Kind = "student.enroll"
	KindTransfer         dispatch.Kind = "student.transfer"
	KindDisenroll        dispatch.Kind = "student.disenroll"
	KindEditPersonalInfo dispatch.Kind = "student.edit_personal_info"
	KindGetList          dispatch.Kind = "student.get_list"
	KindGetStudent       dispatch.Kind = "student.get"
	KindListCourses      dispatch.Kind = "course.list"
)

// RequiredKinds lists every kind the application must be able to dispatch.
func RequiredKinds() []dispatch.Kind {
	return []dispatch.Kind{
		KindRegister,
		KindUnregister,
		KindEnroll,
		KindTransfer,
		KindDisenroll,
		KindEditPersonalInfo,
		KindGetList,
		KindGetStudent,
		KindListCourses,
	}
}

// RegisterCommand creates a student with up to two initial enrollments. A
// course slot is used only when both its course and grade are provided.
type RegisterCommand struct {
	Name         string  `json:"name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Course1      *string `json:"course1"`
	Course1Grade *string `json:"course1_grade"`
	Course2      *string `json:"course2"`
	Course2Grade *string `json:"course2_grade"`
}

func (RegisterCommand) Kind() dispatch.Kind { return KindRegister }

// UnregisterCommand deletes a student and its history.
type UnregisterCommand struct {
	StudentID int64 `json:"-"`
}

func (UnregisterCommand) Kind() dispatch.Kind { return KindUnregister }

// EnrollCommand adds a course to a student's next free slot.
type EnrollCommand struct {
	StudentID int64  `json:"-"`
	Course    string `json:"course"`
	Grade     string `json:"grade"`
}

func (EnrollCommand) Kind() dispatch.Kind { return KindEnroll }

// TransferCommand replaces course and grade of the enrollment at the
// zero-based EnrollmentNumber.
type TransferCommand struct {
	StudentID        int64  `json:"-"`
	EnrollmentNumber int    `json:"-"`
	Course           string `json:"course"`
	Grade            string `json:"grade"`
}

func (TransferCommand) Kind() dispatch.Kind { return KindTransfer }

// DisenrollCommand removes the enrollment at EnrollmentNumber, recording
// Comment in the student's history.
type DisenrollCommand struct {
	StudentID        int64  `json:"-"`
	EnrollmentNumber int    `json:"-"`
	Comment          string `json:"comment"`
}

func (DisenrollCommand) Kind() dispatch.Kind { return KindDisenroll }

// EditPersonalInfoCommand replaces name and email.
type EditPersonalInfoCommand struct {
	StudentID int64  `json:"-"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

func (EditPersonalInfoCommand) Kind() dispatch.Kind { return KindEditPersonalInfo }

// GetListQuery returns []models.StudentSummary.
type GetListQuery struct {
	EnrolledIn      *string
	NumberOfCourses *int
}

func (GetListQuery) Kind() dispatch.Kind { return KindGetList }

// GetStudentQuery returns models.StudentDetail.
type GetStudentQuery struct {
	StudentID int64
}

func (GetStudentQuery) Kind() dispatch.Kind { return KindGetStudent }

// ListCoursesQuery returns []models.Course ordered by name.
type ListCoursesQuery struct{}

func (ListCoursesQuery) Kind() dispatch.Kind { return KindListCourses }
