package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
)

// effectiveCreatedAt mirrors Post.EffectiveCreatedAt for SQL predicates.
const effectiveCreatedAt = "COALESCE(GREATEST(created_at, time_reviewed), created_at)"

// postTreeCTE collects a post and all its descendants, depth-first.
const postTreeCTE = `
WITH RECURSIVE tree AS (
    SELECT id FROM post WHERE id = $1
    UNION ALL
    SELECT p.id FROM post p JOIN tree t ON p.parent_id = t.id
)`

type postRow struct {
	ID            int64                `db:"id"`
	DiscussionID  int64                `db:"discussion_id"`
	ParentID      int64                `db:"parent_id"`
	UserID        int64                `db:"user_id"`
	Message       string               `db:"message"`
	MessageFormat int8                 `db:"message_format"`
	HasAttachment bool                 `db:"has_attachment"`
	Mailed        discussion.MailState `db:"mailed"`
	Reviewed      bool                 `db:"reviewed"`
	TimeReviewed  null.Time            `db:"time_reviewed"`
	CreatedAt     time.Time            `db:"created_at"`
	UpdatedAt     time.Time            `db:"updated_at"`
}

func (r postRow) toPost() discussion.Post {
	return discussion.Post(r)
}

type discussionRow struct {
	ID           int64     `db:"id"`
	CourseID     int64     `db:"course_id"`
	ForumID      int64     `db:"forum_id"`
	Name         string    `db:"name"`
	FirstPostID  int64     `db:"first_post_id"`
	UserID       int64     `db:"user_id"`
	UserModified int64     `db:"user_modified"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r discussionRow) toDiscussion() discussion.Discussion {
	return discussion.Discussion(r)
}

type discussionRepository struct {
	db core.DB
}

var _ discussion.Repository = (*discussionRepository)(nil) // interface compliance check

func NewDiscussionRepository(db core.DB) discussion.Repository {
	return &discussionRepository{db: db}
}

func (repo *discussionRepository) CreateDiscussion(ctx context.Context, d discussion.Discussion, root discussion.Post) (discussion.Discussion, discussion.Post, error) {
	err := core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		const dq = `
INSERT INTO discussion (course_id, forum_id, name, first_post_id, user_id, user_modified, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $5, $6, $7)
RETURNING id`
		if err := tx.QueryRowxContext(
			ctx, dq,
			d.CourseID, d.ForumID, d.Name, d.UserID, d.UserModified, d.CreatedAt, d.UpdatedAt,
		).Scan(&d.ID); err != nil {
			return errors.Wrap(err, "inserting discussion")
		}

		root.DiscussionID = d.ID
		var err error
		if root, err = insertPost(ctx, tx, root); err != nil {
			return err
		}

		d.FirstPostID = root.ID
		_, err = tx.ExecContext(ctx, `UPDATE discussion SET first_post_id = $1 WHERE id = $2`, root.ID, d.ID)
		return errors.Wrap(err, "linking root post")
	})
	if err != nil {
		return discussion.Discussion{}, discussion.Post{}, err
	}
	return d, root, nil
}

func (repo *discussionRepository) GetDiscussionByID(ctx context.Context, id int64) (discussion.Discussion, error) {
	var row discussionRow
	err := sqlx.GetContext(ctx, repo.db, &row, `SELECT * FROM discussion WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return discussion.Discussion{}, discussion.ErrNotFound
	}
	return row.toDiscussion(), errors.Wrap(err, "getting discussion")
}

func (repo *discussionRepository) QueryDiscussionsByForum(ctx context.Context, forumID int64, ordering []core.DBOrdering) ([]discussion.Discussion, error) {
	orderBy := "updated_at DESC, id DESC"
	if len(ordering) > 0 {
		// fields are whitelisted in the service layer
		parts := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			parts = append(parts, ord.String())
		}
		orderBy = strings.Join(parts, ", ")
	}

	var rows []discussionRow
	q := `SELECT * FROM discussion WHERE forum_id = $1 ORDER BY ` + orderBy
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, forumID); err != nil {
		return nil, errors.Wrap(err, "querying discussions")
	}
	ds := make([]discussion.Discussion, len(rows))
	for i, r := range rows {
		ds[i] = r.toDiscussion()
	}
	return ds, nil
}

func (repo *discussionRepository) TouchDiscussion(ctx context.Context, id int64, modified time.Time, userID int64) error {
	const q = `UPDATE discussion SET updated_at = $1, user_modified = $2 WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, q, modified, userID, id)
	if err != nil {
		return errors.Wrap(err, "touching discussion")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return discussion.ErrNotFound
	}
	return nil
}

func (repo *discussionRepository) DeleteDiscussion(ctx context.Context, d discussion.Discussion) error {
	return core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rating WHERE discussion_id = $1`, d.ID); err != nil {
			return errors.Wrap(err, "deleting ratings")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM read_record WHERE discussion_id = $1`, d.ID); err != nil {
			return errors.Wrap(err, "deleting read records")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM discussion_subscription WHERE discussion_id = $1`, d.ID); err != nil {
			return errors.Wrap(err, "deleting discussion subscriptions")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM post WHERE discussion_id = $1`, d.ID); err != nil {
			return errors.Wrap(err, "deleting posts")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM discussion WHERE id = $1`, d.ID)
		if err != nil {
			return errors.Wrap(err, "deleting discussion")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return discussion.ErrNotFound
		}
		return nil
	})
}

func insertPost(ctx context.Context, db core.DBExecutor, p discussion.Post) (discussion.Post, error) {
	const q = `
INSERT INTO post (discussion_id, parent_id, user_id, message, message_format, has_attachment,
                  mailed, reviewed, time_reviewed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`
	err := db.QueryRowxContext(
		ctx, q,
		p.DiscussionID, p.ParentID, p.UserID, p.Message, p.MessageFormat, p.HasAttachment,
		p.Mailed, p.Reviewed, p.TimeReviewed, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	return p, errors.Wrap(err, "inserting post")
}

func (repo *discussionRepository) CreatePost(ctx context.Context, p discussion.Post) (discussion.Post, error) {
	return insertPost(ctx, repo.db, p)
}

func (repo *discussionRepository) GetPostByID(ctx context.Context, id int64) (discussion.Post, error) {
	var row postRow
	err := sqlx.GetContext(ctx, repo.db, &row, `SELECT * FROM post WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return discussion.Post{}, discussion.ErrNotFound
	}
	return row.toPost(), errors.Wrap(err, "getting post")
}

func (repo *discussionRepository) UpdatePost(ctx context.Context, p discussion.Post, rename null.String) (discussion.Post, error) {
	err := core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		const q = `
UPDATE post SET message = $1, message_format = $2, has_attachment = $3, updated_at = $4 WHERE id = $5`
		res, err := tx.ExecContext(ctx, q, p.Message, p.MessageFormat, p.HasAttachment, p.UpdatedAt, p.ID)
		if err != nil {
			return errors.Wrap(err, "updating post")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return discussion.ErrNotFound
		}

		if rename.Valid {
			const dq = `UPDATE discussion SET name = $1, updated_at = $2, user_modified = $3 WHERE id = $4`
			if _, err = tx.ExecContext(ctx, dq, rename.String, p.UpdatedAt, p.UserID, p.DiscussionID); err != nil {
				return errors.Wrap(err, "renaming discussion")
			}
		}
		return nil
	})
	if err != nil {
		return discussion.Post{}, err
	}
	return p, nil
}

func (repo *discussionRepository) QueryPostsByDiscussion(ctx context.Context, discussionID int64) ([]discussion.Post, error) {
	var rows []postRow
	const q = `SELECT * FROM post WHERE discussion_id = $1 ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, discussionID); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	return toPosts(rows), nil
}

func (repo *discussionRepository) QueryPostsByAuthor(ctx context.Context, userID int64) ([]discussion.Post, error) {
	var rows []postRow
	const q = `SELECT * FROM post WHERE user_id = $1 ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	return toPosts(rows), nil
}

func (repo *discussionRepository) CountChildren(ctx context.Context, postID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, repo.db, &n, `SELECT COUNT(*) FROM post WHERE parent_id = $1`, postID)
	return n, errors.Wrap(err, "counting children")
}

func (repo *discussionRepository) DeletePostTree(ctx context.Context, root discussion.Post) (int, error) {
	var count int
	err := core.Atomic(ctx, repo.db, func(tx core.DBExecutor) error {
		if _, err := tx.ExecContext(ctx, postTreeCTE+
			` DELETE FROM rating WHERE post_id IN (SELECT id FROM tree)`, root.ID); err != nil {
			return errors.Wrap(err, "deleting ratings")
		}
		if _, err := tx.ExecContext(ctx, postTreeCTE+
			` DELETE FROM read_record WHERE post_id IN (SELECT id FROM tree)`, root.ID); err != nil {
			return errors.Wrap(err, "deleting read records")
		}
		res, err := tx.ExecContext(ctx, postTreeCTE+
			` DELETE FROM post WHERE id IN (SELECT id FROM tree)`, root.ID)
		if err != nil {
			return errors.Wrap(err, "deleting posts")
		}
		n, _ := res.RowsAffected()
		count = int(n)
		return nil
	})
	return count, err
}

func (repo *discussionRepository) LatestReviewedPost(ctx context.Context, discussionID int64) (discussion.Post, error) {
	var row postRow
	const q = `
SELECT * FROM post WHERE discussion_id = $1 AND reviewed ORDER BY updated_at DESC, id DESC LIMIT 1`
	err := sqlx.GetContext(ctx, repo.db, &row, q, discussionID)
	if err == sql.ErrNoRows {
		return discussion.Post{}, discussion.ErrNotFound
	}
	return row.toPost(), errors.Wrap(err, "getting latest reviewed post")
}

func (repo *discussionRepository) SetReviewed(ctx context.Context, postID int64, at time.Time) error {
	const q = `UPDATE post SET reviewed = TRUE, time_reviewed = $1, updated_at = $1 WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, q, at, postID)
	if err != nil {
		return errors.Wrap(err, "setting reviewed")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return discussion.ErrNotFound
	}
	return nil
}

func (repo *discussionRepository) NextUnreviewedPost(ctx context.Context, forumID, excludeID int64) (discussion.Post, error) {
	var row postRow
	const q = `
SELECT p.* FROM post p
JOIN discussion d ON p.discussion_id = d.id
WHERE d.forum_id = $1 AND NOT p.reviewed AND p.id <> $2
ORDER BY p.created_at, p.id
LIMIT 1`
	err := sqlx.GetContext(ctx, repo.db, &row, q, forumID, excludeID)
	if err == sql.ErrNoRows {
		return discussion.Post{}, discussion.ErrNotFound
	}
	return row.toPost(), errors.Wrap(err, "getting next unreviewed post")
}

func (repo *discussionRepository) QueryUnmailedPosts(ctx context.Context, start, end time.Time) ([]discussion.Post, error) {
	var rows []postRow
	q := `
SELECT * FROM post
WHERE reviewed AND mailed IN ($1, $2)
  AND ` + effectiveCreatedAt + ` >= $3 AND ` + effectiveCreatedAt + ` < $4
ORDER BY created_at, id`
	err := sqlx.SelectContext(ctx, repo.db, &rows, q, discussion.MailPending, discussion.MailReviewSent, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "querying unmailed posts")
	}
	return toPosts(rows), nil
}

func (repo *discussionRepository) MarkMailedBefore(ctx context.Context, end time.Time) (int64, error) {
	q := `
UPDATE post SET mailed = $1
WHERE reviewed AND mailed IN ($2, $3) AND ` + effectiveCreatedAt + ` < $4`
	res, err := repo.db.ExecContext(ctx, q, discussion.MailSent, discussion.MailPending, discussion.MailReviewSent, end)
	if err != nil {
		return 0, errors.Wrap(err, "marking posts mailed")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (repo *discussionRepository) SetMailState(ctx context.Context, postID int64, state discussion.MailState) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE post SET mailed = $1 WHERE id = $2`, state, postID)
	if err != nil {
		return errors.Wrap(err, "setting mail state")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return discussion.ErrNotFound
	}
	return nil
}

func (repo *discussionRepository) QueryReviewedPostsSince(ctx context.Context, since time.Time) ([]discussion.Post, error) {
	var rows []postRow
	const q = `SELECT * FROM post WHERE reviewed AND updated_at >= $1 ORDER BY updated_at, id`
	if err := sqlx.SelectContext(ctx, repo.db, &rows, q, since); err != nil {
		return nil, errors.Wrap(err, "querying reviewed posts")
	}
	return toPosts(rows), nil
}

func (repo *discussionRepository) QueryPostAuthorIDs(ctx context.Context, forumID int64) ([]int64, error) {
	var ids []int64
	const q = `
SELECT DISTINCT p.user_id FROM post p
JOIN discussion d ON p.discussion_id = d.id
WHERE d.forum_id = $1`
	err := sqlx.SelectContext(ctx, repo.db, &ids, q, forumID)
	return ids, errors.Wrap(err, "querying post authors")
}

func toPosts(rows []postRow) []discussion.Post {
	posts := make([]discussion.Post, len(rows))
	for i, r := range rows {
		posts[i] = r.toPost()
	}
	return posts
}
