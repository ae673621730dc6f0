package models

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

var (
	calculus   = Course{ID: 1, Name: "Calculus", Credits: 5}
	chemistry  = Course{ID: 2, Name: "Chemistry", Credits: 3}
	literature = Course{ID: 3, Name: "Literature", Credits: 4}
)

func TestEnrollFillsSlotsInOrder(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")

	first, err := s.Enroll(calculus, GradeA)
	require.NoError(t, err)
	second, err := s.Enroll(chemistry, GradeB)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	got, ok := s.FirstEnrollment()
	require.True(t, ok)
	assert.Equal(t, "Calculus", got.Course().Name)
	got, ok = s.SecondEnrollment()
	require.True(t, ok)
	assert.Equal(t, GradeB, got.Grade())
}

func TestEnrollRejectsThirdCourse(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	_, _ = s.Enroll(calculus, GradeA)
	_, _ = s.Enroll(chemistry, GradeB)

	_, err := s.Enroll(literature, GradeC)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCapacityExceeded))
	assert.Equal(t, "cannot have more than 2 enrollments", err.Error())
	assert.Equal(t, 2, s.EnrollmentCount())
}

func TestEnrollRejectsGradeOutsideSet(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	_, err := s.Enroll(calculus, Grade(42))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, s.EnrollmentCount())
}

func TestRemoveEnrollmentAppendsHistory(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	first, _ := s.Enroll(calculus, GradeA)
	second, _ := s.Enroll(chemistry, GradeB)

	d, err := s.RemoveEnrollment(first.ID(), "moved abroad")
	require.NoError(t, err)
	assert.Equal(t, "Calculus", d.Course().Name)
	assert.Equal(t, "moved abroad", d.Comment())

	require.Len(t, s.Disenrollments(), 1)
	remaining, ok := s.FirstEnrollment()
	require.True(t, ok)
	assert.Equal(t, second.ID(), remaining.ID())
	_, ok = s.SecondEnrollment()
	assert.False(t, ok)

	_, err = s.RemoveEnrollment(first.ID(), "again")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Len(t, s.Disenrollments(), 1)
}

func TestRemoveEnrollmentRequiresComment(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	e, _ := s.Enroll(calculus, GradeA)

	_, err := s.RemoveEnrollment(e.ID(), "   ")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, 1, s.EnrollmentCount())
	assert.Empty(t, s.Disenrollments())
}

func TestTransferEnrollmentUpdatesTarget(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	_, _ = s.Enroll(calculus, GradeA)
	second, _ := s.Enroll(chemistry, GradeB)

	require.NoError(t, s.TransferEnrollment(second.ID(), literature, GradeD))

	first, _ := s.FirstEnrollment()
	assert.Equal(t, "Calculus", first.Course().Name)
	moved, _ := s.SecondEnrollment()
	assert.Equal(t, second.ID(), moved.ID())
	assert.Equal(t, "Literature", moved.Course().Name)
	assert.Equal(t, GradeD, moved.Grade())

	err := s.TransferEnrollment(uuid.New(), literature, GradeA)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestEnrollmentsAreCopies(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	_, _ = s.Enroll(calculus, GradeA)

	list := s.Enrollments()
	list[0].Update(literature, GradeF)

	got, _ := s.FirstEnrollment()
	assert.Equal(t, "Calculus", got.Course().Name)
	assert.Equal(t, GradeA, got.Grade())
}

func TestMarkPersistedPropagatesIdentity(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	_, _ = s.Enroll(calculus, GradeA)
	assert.True(t, s.IsNew())

	s.MarkPersisted(7, 1)
	assert.False(t, s.IsNew())
	assert.Equal(t, int64(7), s.ID())
	assert.Equal(t, 1, s.Version())
	e, _ := s.FirstEnrollment()
	assert.Equal(t, int64(7), e.StudentID())
}

func TestRenameAndChangeEmail(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	require.NoError(t, s.Rename("Anne"))
	require.NoError(t, s.ChangeEmail("anne@x.com"))
	assert.Equal(t, "Anne", s.Name())
	assert.Equal(t, "anne@x.com", s.Email())

	assert.Error(t, s.Rename(""))
	assert.Error(t, s.ChangeEmail(" "))
	assert.Equal(t, "Anne", s.Name())
}

func TestSummarizeLeavesEmptySlotsNil(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	_, _ = s.Enroll(calculus, GradeA)
	s.MarkPersisted(3, 1)

	summary := Summarize(s)
	assert.Equal(t, int64(3), summary.ID)
	require.NotNil(t, summary.Course1)
	assert.Equal(t, "Calculus", *summary.Course1)
	assert.Equal(t, "A", *summary.Course1Grade)
	assert.Equal(t, 5, *summary.Course1Credits)
	assert.Nil(t, summary.Course2)
	assert.Nil(t, summary.Course2Grade)
	assert.Nil(t, summary.Course2Credits)
}

func TestDescribeIncludesHistory(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	e, _ := s.Enroll(calculus, GradeA)
	_, _ = s.Enroll(chemistry, GradeC)
	_, _ = s.RemoveEnrollment(e.ID(), "schedule clash")

	detail := Describe(s)
	require.Len(t, detail.Enrollments, 1)
	assert.Equal(t, 0, detail.Enrollments[0].Number)
	assert.Equal(t, "Chemistry", detail.Enrollments[0].Course)
	require.Len(t, detail.Disenrollments, 1)
	assert.Equal(t, "schedule clash", detail.Disenrollments[0].Comment)
}

func TestStudentFilterMatches(t *testing.T) {
	s := NewStudent("Ann", "ann@x.com")
	_, _ = s.Enroll(calculus, GradeA)

	name := "Calculus"
	lower := "calculus"
	one, two := 1, 2

	assert.True(t, StudentFilter{}.Matches(s))
	assert.True(t, StudentFilter{EnrolledIn: &name}.Matches(s))
	assert.False(t, StudentFilter{EnrolledIn: &lower}.Matches(s))
	assert.True(t, StudentFilter{NumberOfCourses: &one}.Matches(s))
	assert.False(t, StudentFilter{NumberOfCourses: &two}.Matches(s))
	assert.False(t, StudentFilter{EnrolledIn: &name, NumberOfCourses: &two}.Matches(s))
}
