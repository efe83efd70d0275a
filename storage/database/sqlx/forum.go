package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/forum"
)

type forumRow struct {
	ID               int64               `db:"id"`
	CourseID         int64               `db:"course_id"`
	Name             string              `db:"name"`
	Intro            string              `db:"intro"`
	ReviewLevel      forum.ReviewLevel   `db:"review_level"`
	Anonymous        forum.AnonymousMode `db:"anonymous"`
	AllowNegativeRep bool                `db:"allow_negative_rep"`
	CourseWideRep    bool                `db:"course_wide_rep"`
	ForceSubscribe   bool                `db:"force_subscribe"`
	GradeScale       int                 `db:"grade_scale"`
	WeightVoteCast   int                 `db:"weight_vote_cast"`
	WeightUpvote     int                 `db:"weight_upvote"`
	WeightDownvote   int                 `db:"weight_downvote"`
	WeightSolved     int                 `db:"weight_solved"`
	WeightHelpful    int                 `db:"weight_helpful"`
	CreatedAt        time.Time           `db:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at"`
}

func (r forumRow) toForum() forum.Forum {
	return forum.Forum{
		ID:               r.ID,
		CourseID:         r.CourseID,
		Name:             r.Name,
		Intro:            r.Intro,
		ReviewLevel:      r.ReviewLevel,
		Anonymous:        r.Anonymous,
		AllowNegativeRep: r.AllowNegativeRep,
		CourseWideRep:    r.CourseWideRep,
		ForceSubscribe:   r.ForceSubscribe,
		GradeScale:       r.GradeScale,
		Weights: forum.ReputationWeights{
			VoteCast:         r.WeightVoteCast,
			UpvoteReceived:   r.WeightUpvote,
			DownvoteReceived: r.WeightDownvote,
			MarkedSolved:     r.WeightSolved,
			MarkedHelpful:    r.WeightHelpful,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type forumRepository struct {
	db core.DB
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db core.DB) forum.Repository {
	return &forumRepository{db: db}
}

func (repo *forumRepository) CreateForum(ctx context.Context, f forum.Forum) (forum.Forum, error) {
	const q = `
INSERT INTO forum (course_id, name, intro, review_level, anonymous, allow_negative_rep,
                   course_wide_rep, force_subscribe, grade_scale,
                   weight_vote_cast, weight_upvote, weight_downvote, weight_solved, weight_helpful,
                   created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING id`
	err := repo.db.QueryRowxContext(
		ctx, q,
		f.CourseID, f.Name, f.Intro, f.ReviewLevel, f.Anonymous, f.AllowNegativeRep,
		f.CourseWideRep, f.ForceSubscribe, f.GradeScale,
		f.Weights.VoteCast, f.Weights.UpvoteReceived, f.Weights.DownvoteReceived,
		f.Weights.MarkedSolved, f.Weights.MarkedHelpful,
		f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	return f, errors.Wrap(err, "inserting forum")
}

func (repo *forumRepository) GetForumByID(ctx context.Context, id int64) (forum.Forum, error) {
	var row forumRow
	err := sqlx.GetContext(ctx, repo.db, &row, `SELECT * FROM forum WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return forum.Forum{}, forum.ErrNotFound
	}
	return row.toForum(), errors.Wrap(err, "getting forum")
}

func (repo *forumRepository) QueryForumsByCourse(ctx context.Context, courseID int64) ([]forum.Forum, error) {
	var rows []forumRow
	err := sqlx.SelectContext(ctx, repo.db, &rows, `SELECT * FROM forum WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying forums")
	}
	forums := make([]forum.Forum, len(rows))
	for i, r := range rows {
		forums[i] = r.toForum()
	}
	return forums, nil
}

func (repo *forumRepository) UpdateForum(ctx context.Context, f forum.Forum) (forum.Forum, error) {
	const q = `
UPDATE forum
SET name = $1, intro = $2, review_level = $3, anonymous = $4, allow_negative_rep = $5,
    course_wide_rep = $6, force_subscribe = $7, grade_scale = $8,
    weight_vote_cast = $9, weight_upvote = $10, weight_downvote = $11,
    weight_solved = $12, weight_helpful = $13, updated_at = $14
WHERE id = $15`
	res, err := repo.db.ExecContext(
		ctx, q,
		f.Name, f.Intro, f.ReviewLevel, f.Anonymous, f.AllowNegativeRep,
		f.CourseWideRep, f.ForceSubscribe, f.GradeScale,
		f.Weights.VoteCast, f.Weights.UpvoteReceived, f.Weights.DownvoteReceived,
		f.Weights.MarkedSolved, f.Weights.MarkedHelpful, f.UpdatedAt, f.ID,
	)
	if err != nil {
		return forum.Forum{}, errors.Wrap(err, "updating forum")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return forum.Forum{}, forum.ErrNotFound
	}
	return f, nil
}
