package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

func seedStudent(t *testing.T, store *MemoryStore, name string, courses ...string) int64 {
	t.Helper()
	ctx := context.Background()
	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()

	student := models.NewStudent(name, name+"@x.com")
	for _, courseName := range courses {
		course, err := uow.Courses().GetByName(ctx, courseName)
		require.NoError(t, err)
		require.NotNil(t, course)
		_, err = student.Enroll(*course, models.GradeB)
		require.NoError(t, err)
	}
	require.NoError(t, uow.Students().Save(ctx, student))
	require.NoError(t, uow.Commit(ctx))
	return student.ID()
}

func TestMemoryStoreAssignsIdentity(t *testing.T) {
	store := NewMemoryStore(DefaultCourses()...)

	first := seedStudent(t, store, "ann", "Calculus")
	second := seedStudent(t, store, "bob")

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, 2, store.StudentCount())
}

func TestMemoryStoreLoadsCopies(t *testing.T) {
	store := NewMemoryStore(DefaultCourses()...)
	id := seedStudent(t, store, "ann", "Calculus")
	ctx := context.Background()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	student, err := uow.Students().GetByID(ctx, id)
	require.NoError(t, err)
	require.NoError(t, student.Rename("changed"))
	require.NoError(t, uow.Rollback())

	reader, err := store.Begin(ctx)
	require.NoError(t, err)
	fresh, err := reader.Students().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ann", fresh.Name())
}

func TestMemoryStoreUncommittedWorkIsDiscarded(t *testing.T) {
	store := NewMemoryStore(DefaultCourses()...)
	ctx := context.Background()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Students().Save(ctx, models.NewStudent("ann", "ann@x.com")))
	require.NoError(t, uow.Rollback())

	assert.Zero(t, store.StudentCount())
}

func TestMemoryStoreDetectsConcurrentUpdates(t *testing.T) {
	store := NewMemoryStore(DefaultCourses()...)
	id := seedStudent(t, store, "ann")
	ctx := context.Background()

	first, _ := store.Begin(ctx)
	second, _ := store.Begin(ctx)

	a, err := first.Students().GetByID(ctx, id)
	require.NoError(t, err)
	b, err := second.Students().GetByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, a.Rename("first"))
	require.NoError(t, first.Students().Save(ctx, a))
	require.NoError(t, first.Commit(ctx))
	assert.Equal(t, 2, a.Version())

	require.NoError(t, b.Rename("second"))
	require.NoError(t, second.Students().Save(ctx, b))
	err = second.Commit(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	reader, _ := store.Begin(ctx)
	stored, _ := reader.Students().GetByID(ctx, id)
	assert.Equal(t, "first", stored.Name())
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(DefaultCourses()...)
	id := seedStudent(t, store, "ann", "Chemistry")
	ctx := context.Background()

	uow, _ := store.Begin(ctx)
	student, err := uow.Students().GetByID(ctx, id)
	require.NoError(t, err)
	require.NoError(t, uow.Students().Delete(ctx, student))
	require.NoError(t, uow.Commit(ctx))

	assert.Zero(t, store.StudentCount())
}

func TestMemoryStoreListFilters(t *testing.T) {
	store := NewMemoryStore(DefaultCourses()...)
	seedStudent(t, store, "ann", "Calculus")
	seedStudent(t, store, "bob", "Calculus", "Chemistry")
	seedStudent(t, store, "cid")
	ctx := context.Background()

	uow, _ := store.Begin(ctx)
	defer uow.Rollback()

	all, err := uow.Students().List(ctx, models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ann", all[0].Name())

	calculus := "Calculus"
	two := 2
	zero := 0
	inCalculus, _ := uow.Students().List(ctx, models.StudentFilter{EnrolledIn: &calculus})
	assert.Len(t, inCalculus, 2)
	withTwo, _ := uow.Students().List(ctx, models.StudentFilter{EnrolledIn: &calculus, NumberOfCourses: &two})
	require.Len(t, withTwo, 1)
	assert.Equal(t, "bob", withTwo[0].Name())
	withNone, _ := uow.Students().List(ctx, models.StudentFilter{NumberOfCourses: &zero})
	require.Len(t, withNone, 1)
	assert.Equal(t, "cid", withNone[0].Name())
}

func TestMemoryCourseStore(t *testing.T) {
	store := NewMemoryStore(DefaultCourses()...)
	ctx := context.Background()
	uow, _ := store.Begin(ctx)

	course, err := uow.Courses().GetByName(ctx, "Literature")
	require.NoError(t, err)
	assert.Equal(t, 4, course.Credits)

	missing, err := uow.Courses().GetByName(ctx, "literature")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := uow.Courses().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(DefaultCourses()))
	assert.Equal(t, "Calculus", list[0].Name)
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil)
	ctx := context.Background()

	var dest []string
	assert.True(t, errors.Is(repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "k", []string{"v"}, 0))
	assert.NoError(t, repo.DeleteByPattern(ctx, "k*"))
	n, err := repo.Incr(ctx, "gen")
	assert.NoError(t, err)
	assert.Zero(t, n)
	n, err = repo.Counter(ctx, "gen")
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}
