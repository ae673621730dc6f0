package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

type studentRow struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	Email   string `db:"email"`
	Version int    `db:"version"`
}

type enrollmentRow struct {
	ID            uuid.UUID `db:"id"`
	StudentID     int64     `db:"student_id"`
	Grade         int       `db:"grade"`
	CourseID      int64     `db:"course_id"`
	CourseName    string    `db:"course_name"`
	CourseCredits int       `db:"course_credits"`
}

type disenrollmentRow struct {
	ID            uuid.UUID `db:"id"`
	StudentID     int64     `db:"student_id"`
	Comment       string    `db:"comment"`
	CreatedAt     time.Time `db:"created_at"`
	CourseID      int64     `db:"course_id"`
	CourseName    string    `db:"course_name"`
	CourseCredits int       `db:"course_credits"`
}

const (
	selectEnrollments = `SELECT e.id, e.student_id, e.grade, c.id AS course_id, c.name AS course_name, c.credits AS course_credits
        FROM enrollments e JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = ANY($1) ORDER BY e.student_id, e.position`
	selectDisenrollments = `SELECT d.id, d.student_id, d.comment, d.created_at, c.id AS course_id, c.name AS course_name, c.credits AS course_credits
        FROM disenrollments d JOIN courses c ON c.id = d.course_id
        WHERE d.student_id = ANY($1) ORDER BY d.student_id, d.created_at, d.id`
)

// postgresStudentStore reads students through the owning unit of work's
// transaction and stages writes in its identity map.
type postgresStudentStore struct {
	uow *PostgresUnitOfWork
}

// GetByID loads a student aggregate or returns (nil, nil) when absent.
func (r *postgresStudentStore) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	if tracked, ok := r.uow.identity[id]; ok {
		if tracked.deleted {
			return nil, nil
		}
		return tracked.student, nil
	}

	var row studentRow
	const query = `SELECT id, name, email, version FROM students WHERE id = $1`
	if err := r.uow.tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}

	students, err := r.hydrate(ctx, []studentRow{row})
	if err != nil {
		return nil, err
	}
	return students[0], nil
}

// List loads every student matching the filter ordered by id.
func (r *postgresStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]*models.Student, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.EnrolledIn != nil {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM enrollments e JOIN courses c ON c.id = e.course_id WHERE e.student_id = s.id AND c.name = $%d)", len(args)+1))
		args = append(args, *filter.EnrolledIn)
	}
	if filter.NumberOfCourses != nil {
		conditions = append(conditions, fmt.Sprintf("(SELECT COUNT(*) FROM enrollments e WHERE e.student_id = s.id) = $%d", len(args)+1))
		args = append(args, *filter.NumberOfCourses)
	}

	query := fmt.Sprintf("SELECT s.id, s.name, s.email, s.version FROM students s WHERE %s ORDER BY s.id", strings.Join(conditions, " AND "))
	var rows []studentRow
	if err := r.uow.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	fresh := make([]studentRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := r.uow.identity[row.ID]; !ok {
			fresh = append(fresh, row)
		}
	}
	if _, err := r.hydrate(ctx, fresh); err != nil {
		return nil, err
	}

	students := make([]*models.Student, 0, len(rows))
	for _, row := range rows {
		tracked := r.uow.identity[row.ID]
		if tracked.deleted || !filter.Matches(tracked.student) {
			continue
		}
		students = append(students, tracked.student)
	}
	return students, nil
}

// Save stages an insert for new students and an update for loaded ones.
func (r *postgresStudentStore) Save(_ context.Context, student *models.Student) error {
	return r.uow.stageSave(student)
}

// Delete stages removal of a loaded student.
func (r *postgresStudentStore) Delete(_ context.Context, student *models.Student) error {
	return r.uow.stageDelete(student)
}

func (r *postgresStudentStore) hydrate(ctx context.Context, rows []studentRow) ([]*models.Student, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var enrollmentRows []enrollmentRow
	if err := r.uow.tx.SelectContext(ctx, &enrollmentRows, selectEnrollments, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load enrollments: %w", err)
	}
	var disenrollmentRows []disenrollmentRow
	if err := r.uow.tx.SelectContext(ctx, &disenrollmentRows, selectDisenrollments, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load disenrollments: %w", err)
	}

	enrollments := make(map[int64][]*models.Enrollment)
	for _, e := range enrollmentRows {
		grade := models.Grade(e.Grade)
		if !grade.Valid() {
			return nil, fmt.Errorf("load enrollments: student %d has invalid grade %d", e.StudentID, e.Grade)
		}
		course := models.Course{ID: e.CourseID, Name: e.CourseName, Credits: e.CourseCredits}
		enrollments[e.StudentID] = append(enrollments[e.StudentID], models.RestoreEnrollment(e.ID, e.StudentID, course, grade))
	}
	disenrollments := make(map[int64][]models.Disenrollment)
	for _, d := range disenrollmentRows {
		course := models.Course{ID: d.CourseID, Name: d.CourseName, Credits: d.CourseCredits}
		disenrollments[d.StudentID] = append(disenrollments[d.StudentID],
			models.RestoreDisenrollment(d.ID, d.StudentID, course, d.Comment, d.CreatedAt))
	}

	students := make([]*models.Student, 0, len(rows))
	for _, row := range rows {
		history := disenrollments[row.ID]
		student := models.RestoreStudent(row.ID, row.Name, row.Email, row.Version, enrollments[row.ID], history)
		students = append(students, r.uow.track(student, len(history)))
	}
	return students, nil
}

func insertStudent(ctx context.Context, tx *sqlx.Tx, student *models.Student) (int64, error) {
	const query = `INSERT INTO students (name, email, version) VALUES ($1, $2, 1) RETURNING id`
	var id int64
	if err := tx.QueryRowxContext(ctx, query, student.Name(), student.Email()).Scan(&id); err != nil {
		return 0, fmt.Errorf("create student: %w", err)
	}
	return id, nil
}

func updateStudent(ctx context.Context, tx *sqlx.Tx, student *models.Student, version int) error {
	const query = `UPDATE students SET name = $1, email = $2, version = version + 1, updated_at = NOW() WHERE id = $3 AND version = $4`
	res, err := tx.ExecContext(ctx, query, student.Name(), student.Email(), student.ID(), version)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectOneRow(res, student.ID(), "update student")
}

func deleteStudent(ctx context.Context, tx *sqlx.Tx, id int64, version int) error {
	const query = `DELETE FROM students WHERE id = $1 AND version = $2`
	res, err := tx.ExecContext(ctx, query, id, version)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectOneRow(res, id, "delete student")
}

// syncChildren makes the enrollment rows mirror the aggregate and appends
// disenrollments recorded after the first persisted ones.
func syncChildren(ctx context.Context, tx *sqlx.Tx, student *models.Student, persistedDisenrollments int) error {
	enrollments := student.Enrollments()
	keep := make([]string, len(enrollments))
	for i, e := range enrollments {
		keep[i] = e.ID().String()
	}

	const prune = `DELETE FROM enrollments WHERE student_id = $1 AND id <> ALL($2::uuid[])`
	if _, err := tx.ExecContext(ctx, prune, student.ID(), pq.Array(keep)); err != nil {
		return fmt.Errorf("prune enrollments: %w", err)
	}

	const upsert = `INSERT INTO enrollments (id, student_id, course_id, grade, position) VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET course_id = EXCLUDED.course_id, grade = EXCLUDED.grade, position = EXCLUDED.position`
	for position, e := range enrollments {
		if _, err := tx.ExecContext(ctx, upsert, e.ID(), student.ID(), e.Course().ID, int(e.Grade()), position); err != nil {
			return fmt.Errorf("upsert enrollment: %w", err)
		}
	}

	history := student.Disenrollments()
	if persistedDisenrollments > len(history) {
		persistedDisenrollments = len(history)
	}
	const insertDisenrollment = `INSERT INTO disenrollments (id, student_id, course_id, comment, created_at) VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO NOTHING`
	for _, d := range history[persistedDisenrollments:] {
		if _, err := tx.ExecContext(ctx, insertDisenrollment, d.ID(), student.ID(), d.Course().ID, d.Comment(), d.CreatedAt()); err != nil {
			return fmt.Errorf("insert disenrollment: %w", err)
		}
	}
	return nil
}

func expectOneRow(res sql.Result, id int64, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", op, id, appErrors.Clone(appErrors.ErrConflict, "student was modified concurrently"))
	}
	return nil
}
