package forum

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
)

var ErrNotFound = errors.New("forum not found")

type (
	Repository interface {
		CreateForum(ctx context.Context, f Forum) (Forum, error)
		GetForumByID(ctx context.Context, id int64) (Forum, error)
		QueryForumsByCourse(ctx context.Context, courseID int64) ([]Forum, error)
		UpdateForum(ctx context.Context, f Forum) (Forum, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nf NewForum) (Forum, error) {
	now := time.Now().UTC()
	weights := DefaultWeights()
	if nf.Weights != nil {
		weights = *nf.Weights
	}
	f := Forum{
		CourseID:         nf.CourseID,
		Name:             nf.Name,
		Intro:            nf.Intro,
		ReviewLevel:      nf.ReviewLevel,
		Anonymous:        nf.Anonymous,
		AllowNegativeRep: nf.AllowNegativeRep,
		CourseWideRep:    nf.CourseWideRep,
		ForceSubscribe:   nf.ForceSubscribe,
		GradeScale:       nf.GradeScale,
		Weights:          weights,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreateForum(ctx, f)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Forum, error) {
	return svc.repo.GetForumByID(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID int64) ([]Forum, error) {
	return svc.repo.QueryForumsByCourse(ctx, courseID)
}

// NewForum contains information needed to create a new Forum.
type NewForum struct {
	CourseID         int64              `json:"course_id" validate:"required"`
	Name             string             `json:"name" validate:"required"`
	Intro            string             `json:"intro"`
	ReviewLevel      ReviewLevel        `json:"review_level" validate:"min=0,max=2"`
	Anonymous        AnonymousMode      `json:"anonymous" validate:"min=0,max=2"`
	AllowNegativeRep bool               `json:"allow_negative_reputation"`
	CourseWideRep    bool               `json:"course_wide_reputation"`
	ForceSubscribe   bool               `json:"force_subscribe"`
	GradeScale       int                `json:"grade_scale" validate:"min=0,max=100"`
	Weights          *ReputationWeights `json:"weights"`
}

func (nf *NewForum) Validate(validate *validator.Validate, _ ut.Translator) error {
	nf.Name = core.CleanString(nf.Name)
	nf.Intro = core.CleanString(nf.Intro)
	return validate.Struct(nf)
}
