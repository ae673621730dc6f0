package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

func newCommandService(store *fakeStore) (*StudentCommandService, *fakeInvalidator) {
	lists := &fakeInvalidator{}
	return NewStudentCommandService(store, lists, nil, nil), lists
}

func assertCode(t *testing.T, err error, sentinel *appErrors.Error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel), "expected %s, got %v", sentinel.Code, err)
	if message != "" {
		assert.Equal(t, message, appErrors.FromError(err).Message)
	}
}

func TestRegisterEnrollsProvidedSlotsInOrder(t *testing.T) {
	cases := []struct {
		name    string
		cmd     RegisterCommand
		courses []string
	}{
		{"no courses", RegisterCommand{}, nil},
		{"first slot", RegisterCommand{Course1: strPtr("CS101"), Course1Grade: strPtr("A")}, []string{"CS101"}},
		{"second slot only", RegisterCommand{Course2: strPtr("Math"), Course2Grade: strPtr("C")}, []string{"Math"}},
		{"both slots", RegisterCommand{Course1: strPtr("Math"), Course1Grade: strPtr("B"), Course2: strPtr("CS101"), Course2Grade: strPtr("A")}, []string{"Math", "CS101"}},
		{"incomplete pair ignored", RegisterCommand{Course1: strPtr("CS101"), Course2Grade: strPtr("A")}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc, lists := newCommandService(store)

			cmd := tc.cmd
			cmd.Name = "Ann"
			cmd.Email = "ann@x.com"

			registered, err := svc.Register(context.Background(), cmd)
			require.NoError(t, err)
			require.NotZero(t, registered)
			assert.Equal(t, 1, store.commits)
			assert.Equal(t, 1, lists.calls)

			student := store.get(registered)
			require.NotNil(t, student)
			enrollments := student.Enrollments()
			require.Len(t, enrollments, len(tc.courses))
			for i, name := range tc.courses {
				assert.Equal(t, name, enrollments[i].Course().Name)
			}
		})
	}
}

func TestRegisterAcceptsGradeE(t *testing.T) {
	store := newFakeStore()
	svc, _ := newCommandService(store)

	id, err := svc.Register(context.Background(), RegisterCommand{
		Name: "Ann", Email: "ann@x.com",
		Course1: strPtr("CS101"), Course1Grade: strPtr("E"),
	})
	require.NoError(t, err)

	enrollments := store.get(id).Enrollments()
	require.Len(t, enrollments, 1)
	assert.Equal(t, models.GradeE, enrollments[0].Grade())
	assert.Equal(t, "E", enrollments[0].Grade().String())
}

func TestRegisterFailuresCommitNothing(t *testing.T) {
	cases := []struct {
		name     string
		cmd      RegisterCommand
		sentinel *appErrors.Error
		message  string
	}{
		{
			name:     "unknown course",
			cmd:      RegisterCommand{Name: "Ann", Email: "ann@x.com", Course1: strPtr("CS101"), Course1Grade: strPtr("A"), Course2: strPtr("Nope"), Course2Grade: strPtr("B")},
			sentinel: appErrors.ErrNotFound,
			message:  "course is incorrect: 'Nope'",
		},
		{
			name:     "bad grade",
			cmd:      RegisterCommand{Name: "Ann", Email: "ann@x.com", Course1: strPtr("CS101"), Course1Grade: strPtr("Z")},
			sentinel: appErrors.ErrValidation,
			message:  "grade is incorrect: 'Z'",
		},
		{
			name:     "invalid email",
			cmd:      RegisterCommand{Name: "Ann", Email: "not-an-email", Course1: strPtr("Nope"), Course1Grade: strPtr("A")},
			sentinel: appErrors.ErrValidation,
			message:  "invalid student payload",
		},
		{
			name:     "missing name",
			cmd:      RegisterCommand{Email: "ann@x.com"},
			sentinel: appErrors.ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc, lists := newCommandService(store)

			id, err := svc.Register(context.Background(), tc.cmd)
			assertCode(t, err, tc.sentinel, tc.message)
			assert.Zero(t, id)
			assert.Zero(t, store.commits)
			assert.Empty(t, store.students)
			assert.Zero(t, lists.calls)
		})
	}
}

func TestEnrollValidationOrder(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann")
	svc, _ := newCommandService(store)
	ctx := context.Background()

	err := svc.Enroll(ctx, EnrollCommand{StudentID: 999, Course: "Nope", Grade: "Z"})
	assertCode(t, err, appErrors.ErrNotFound, "no student found for id: '999'")

	err = svc.Enroll(ctx, EnrollCommand{StudentID: id, Course: "Nope", Grade: "Z"})
	assertCode(t, err, appErrors.ErrNotFound, "course is incorrect: 'Nope'")

	err = svc.Enroll(ctx, EnrollCommand{StudentID: id, Course: "CS101", Grade: "Q"})
	assertCode(t, err, appErrors.ErrValidation, "grade is incorrect: 'Q'")

	assert.Zero(t, store.commits)
	assert.Zero(t, store.get(id).EnrollmentCount())
}

func TestEnrollAddsCourse(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann", courseMath)
	svc, lists := newCommandService(store)

	require.NoError(t, svc.Enroll(context.Background(), EnrollCommand{StudentID: id, Course: "CS101", Grade: "A"}))

	second, ok := store.get(id).SecondEnrollment()
	require.True(t, ok)
	assert.Equal(t, "CS101", second.Course().Name)
	assert.Equal(t, models.GradeA, second.Grade())
	assert.Equal(t, 1, store.commits)
	assert.Equal(t, 1, lists.calls)
}

func TestEnrollCapacityExceeded(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann", courseMath, courseCS101)
	svc, _ := newCommandService(store)

	err := svc.Enroll(context.Background(), EnrollCommand{StudentID: id, Course: "Art", Grade: "A"})
	assertCode(t, err, appErrors.ErrCapacityExceeded, "cannot have more than 2 enrollments")
	assert.Zero(t, store.commits)
	assert.Equal(t, 2, store.get(id).EnrollmentCount())
}

func TestTransferUpdatesIndexedEnrollment(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann", courseMath, courseCS101)
	svc, _ := newCommandService(store)

	require.NoError(t, svc.Transfer(context.Background(), TransferCommand{StudentID: id, EnrollmentNumber: 1, Course: "Art", Grade: "D"}))

	student := store.get(id)
	first, _ := student.FirstEnrollment()
	second, _ := student.SecondEnrollment()
	assert.Equal(t, "Math", first.Course().Name)
	assert.Equal(t, "Art", second.Course().Name)
	assert.Equal(t, models.GradeD, second.Grade())
}

func TestTransferValidationOrder(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann", courseMath)
	svc, _ := newCommandService(store)
	ctx := context.Background()

	err := svc.Transfer(ctx, TransferCommand{StudentID: id, EnrollmentNumber: 5, Course: "Nope", Grade: "A"})
	assertCode(t, err, appErrors.ErrNotFound, "course is incorrect: 'Nope'")

	err = svc.Transfer(ctx, TransferCommand{StudentID: id, EnrollmentNumber: 5, Course: "Art", Grade: "x"})
	assertCode(t, err, appErrors.ErrValidation, "grade is incorrect: 'x'")

	err = svc.Transfer(ctx, TransferCommand{StudentID: id, EnrollmentNumber: 1, Course: "Art", Grade: "A"})
	assertCode(t, err, appErrors.ErrNotFound, "no enrollment found with number '1'")

	assert.Zero(t, store.commits)
}

func TestDisenrollRemovesAndRecordsHistory(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann", courseMath)
	svc, _ := newCommandService(store)
	ctx := context.Background()

	require.NoError(t, svc.Disenroll(ctx, DisenrollCommand{StudentID: id, EnrollmentNumber: 0, Comment: "schedule clash"}))

	student := store.get(id)
	assert.Zero(t, student.EnrollmentCount())
	history := student.Disenrollments()
	require.Len(t, history, 1)
	assert.Equal(t, "Math", history[0].Course().Name)
	assert.Equal(t, "schedule clash", history[0].Comment())

	err := svc.Disenroll(ctx, DisenrollCommand{StudentID: id, EnrollmentNumber: 0, Comment: "again"})
	assertCode(t, err, appErrors.ErrNotFound, "no enrollment found with number '0'")
	assert.Len(t, store.get(id).Disenrollments(), 1)
	assert.Equal(t, 1, store.commits)
}

func TestDisenrollChecksCommentBeforeIndex(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann", courseMath)
	svc, _ := newCommandService(store)
	ctx := context.Background()

	for _, number := range []int{0, 7} {
		err := svc.Disenroll(ctx, DisenrollCommand{StudentID: id, EnrollmentNumber: number, Comment: "  "})
		assertCode(t, err, appErrors.ErrValidation, "disenrollment comment is required")
	}

	err := svc.Disenroll(ctx, DisenrollCommand{StudentID: 999, Comment: ""})
	assertCode(t, err, appErrors.ErrNotFound, "no student found for id: '999'")

	assert.Zero(t, store.commits)
	assert.Equal(t, 1, store.get(id).EnrollmentCount())
}

func TestUnregister(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann", courseMath)
	svc, _ := newCommandService(store)
	ctx := context.Background()

	err := svc.Unregister(ctx, UnregisterCommand{StudentID: 999})
	assertCode(t, err, appErrors.ErrNotFound, "no student found for id: '999'")
	assert.Zero(t, store.deletes)
	assert.Zero(t, store.commits)

	require.NoError(t, svc.Unregister(ctx, UnregisterCommand{StudentID: id}))
	assert.Equal(t, 1, store.deletes)
	assert.Nil(t, store.get(id))
}

func TestEditPersonalInfo(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann")
	svc, _ := newCommandService(store)
	ctx := context.Background()

	err := svc.EditPersonalInfo(ctx, EditPersonalInfoCommand{StudentID: 999, Name: "", Email: "bad"})
	assertCode(t, err, appErrors.ErrNotFound, "no student found for id: '999'")

	err = svc.EditPersonalInfo(ctx, EditPersonalInfoCommand{StudentID: id, Name: "Anne", Email: "bad"})
	assertCode(t, err, appErrors.ErrValidation, "invalid student payload")

	err = svc.EditPersonalInfo(ctx, EditPersonalInfoCommand{StudentID: id, Name: "", Email: "anne@x.com"})
	assertCode(t, err, appErrors.ErrValidation, "invalid student payload")
	assert.Zero(t, store.commits)
	assert.Equal(t, "ann", store.get(id).Name())

	require.NoError(t, svc.EditPersonalInfo(ctx, EditPersonalInfoCommand{StudentID: id, Name: "Anne", Email: "anne@x.com"}))
	student := store.get(id)
	assert.Equal(t, "Anne", student.Name())
	assert.Equal(t, "anne@x.com", student.Email())
	assert.Equal(t, 2, student.Version())
}

func TestCommitFailureIsPersistenceError(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann")
	cause := errors.New("connection reset")
	store.commitErr = cause
	svc, lists := newCommandService(store)

	err := svc.Enroll(context.Background(), EnrollCommand{StudentID: id, Course: "CS101", Grade: "A"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPersistence.Code, appErr.Code)
	assert.Same(t, cause, errors.Unwrap(err))
	assert.Zero(t, lists.calls)
	assert.Zero(t, store.get(id).EnrollmentCount())
}

func TestCommitConflictKeepsConflictCode(t *testing.T) {
	store := newFakeStore()
	id := store.seed("ann")
	store.commitErr = appErrors.Clone(appErrors.ErrConflict, "student was modified concurrently")
	svc, _ := newCommandService(store)

	err := svc.EditPersonalInfo(context.Background(), EditPersonalInfoCommand{StudentID: id, Name: "Anne", Email: "anne@x.com"})
	assertCode(t, err, appErrors.ErrConflict, "")
}

func TestBeginFailureIsPersistenceError(t *testing.T) {
	store := newFakeStore()
	store.beginErr = errors.New("pool exhausted")
	svc, _ := newCommandService(store)

	err := svc.Unregister(context.Background(), UnregisterCommand{StudentID: 1})
	assertCode(t, err, appErrors.ErrPersistence, "failed to begin unit of work")
}
