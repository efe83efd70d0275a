package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/user"
)

type userApi struct {
	svc        *user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:        deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ug := g.Group("/users", jwt)
	ug.POST("", api.create, capabilityMiddleware(user.CapManageSubs))
	ug.GET("/me", api.retrieveSelf)
	ug.PUT("/me/digest", api.setDigestMode)
}

// Handlers

// create mirrors a host platform user so mail and grading can reach them.
func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}

	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) retrieveSelf(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	mirrored, err := api.svc.GetByID(ctx.Request().Context(), usr.ID)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, mirrored)
}

func (api *userApi) setDigestMode(ctx echo.Context) error {
	var data DigestModeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DigestModeRequest")
	}
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	updated, err := api.svc.SetDigestMode(ctx.Request().Context(), usr.ID, user.DigestMode(data.Mode))
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, updated)
}
