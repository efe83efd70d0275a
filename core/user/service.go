package user

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
)

var ErrNotFound = errors.New("user not found")

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		QueryUsersByID(ctx context.Context, ids ...int64) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:       nu.Name,
		Username:   nu.Username,
		Email:      nu.Email,
		IsActive:   true,
		Roles:      nu.Roles,
		DigestMode: nu.DigestMode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) QueryByID(ctx context.Context, ids ...int64) ([]User, error) {
	return svc.repo.QueryUsersByID(ctx, ids...)
}

// SetDigestMode updates a user's mail preference. The digest engine picks
// the new mode up on its next run.
func (svc *Service) SetDigestMode(ctx context.Context, id int64, mode DigestMode) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.DigestMode = mode
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// NewUser contains information needed to mirror a host platform user.
type NewUser struct {
	Name       string     `json:"name" validate:"required"`
	Username   string     `json:"username" validate:"required"`
	Email      string     `json:"email" validate:"required,email"`
	Roles      []string   `json:"roles"`
	DigestMode DigestMode `json:"digest_mode" validate:"min=0,max=2"`
}

func (nu *NewUser) Validate(validate *validator.Validate, _ ut.Translator) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true)
	nu.Email = core.CleanString(nu.Email, true)
	return validate.Struct(nu)
}
