package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollment-api/internal/models"
)

type postgresCourseStore struct {
	tx *sqlx.Tx
}

// GetByName returns the course with the exact name or (nil, nil).
func (r *postgresCourseStore) GetByName(ctx context.Context, name string) (*models.Course, error) {
	var course models.Course
	const query = `SELECT id, name, credits FROM courses WHERE name = $1`
	if err := r.tx.GetContext(ctx, &course, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &course, nil
}

// List returns the catalogue ordered by name.
func (r *postgresCourseStore) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	const query = `SELECT id, name, credits FROM courses ORDER BY name`
	if err := r.tx.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
