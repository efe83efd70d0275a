package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/grade"
)

type gradeRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ForumID   int64     `db:"forum_id"`
	Value     float64   `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

type gradeRepository struct {
	db core.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db core.DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) UpsertGrade(ctx context.Context, g *grade.Grade) error {
	const q = `
INSERT INTO grade (user_id, forum_id, value, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, forum_id)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, g.UserID, g.ForumID, g.Value, g.UpdatedAt).Scan(&g.ID)
	return errors.Wrap(err, "upserting grade")
}

func (repo *gradeRepository) GetGrade(ctx context.Context, userID, forumID int64) (grade.Grade, error) {
	var row gradeRow
	const q = `SELECT * FROM grade WHERE user_id = $1 AND forum_id = $2`
	err := sqlx.GetContext(ctx, repo.db, &row, q, userID, forumID)
	if err == sql.ErrNoRows {
		return grade.Grade{}, grade.ErrNotFound
	}
	return grade.Grade(row), errors.Wrap(err, "getting grade")
}

func (repo *gradeRepository) QueryGradesByForum(ctx context.Context, forumID int64) ([]grade.Grade, error) {
	var rows []gradeRow
	const q = `SELECT * FROM grade WHERE forum_id = $1 ORDER BY user_id`
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, forumID); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]grade.Grade, len(rows))
	for i, r := range rows {
		grades[i] = grade.Grade(r)
	}
	return grades, nil
}
