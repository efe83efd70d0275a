package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/user"
)

type userRow struct {
	ID         int64           `db:"id"`
	Name       string          `db:"name"`
	Username   string          `db:"username"`
	Email      string          `db:"email"`
	IsActive   bool            `db:"is_active"`
	Roles      string          `db:"roles"`
	DigestMode user.DigestMode `db:"digest_mode"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:         r.ID,
		Name:       r.Name,
		Username:   r.Username,
		Email:      r.Email,
		IsActive:   r.IsActive,
		DigestMode: r.DigestMode,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Roles != "" {
		usr.Roles = strings.Split(r.Roles, ",")
	}
	return usr
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
INSERT INTO app_user (name, username, email, is_active, roles, digest_mode, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		usr.Name, usr.Username, usr.Email, usr.IsActive,
		strings.Join(usr.Roles, ","), usr.DigestMode, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	return usr, errors.Wrap(err, "inserting user")
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, repo.db, &row, `SELECT * FROM app_user WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	return row.toUser(), errors.Wrap(err, "getting user")
}

func (repo *userRepository) QueryUsersByID(ctx context.Context, ids ...int64) ([]user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT * FROM app_user WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	q = sqlx.Rebind(sqlx.DOLLAR, q)

	var rows []userRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, len(rows))
	for i, r := range rows {
		users[i] = r.toUser()
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
UPDATE app_user
SET name = $1, email = $2, is_active = $3, roles = $4, digest_mode = $5, updated_at = $6
WHERE id = $7`
	res, err := repo.db.ExecContext(
		ctx, q,
		usr.Name, usr.Email, usr.IsActive,
		strings.Join(usr.Roles, ","), usr.DigestMode, usr.UpdatedAt, usr.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
