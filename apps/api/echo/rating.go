package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/user"
)

type ratingApi struct {
	svc        *rating.Service
	forumSvc   *forum.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerRatingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := ratingApi{
		svc:        deps.RatingSvc,
		forumSvc:   deps.ForumSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	pg := g.Group("/posts/:id", jwt)
	pg.POST("/vote", api.vote)
	pg.GET("/tally", api.tally)
	pg.GET("/ratings", api.myRatings)

	fg := g.Group("/forums/:id", jwt)
	fg.GET("/reputation", api.reputation)
}

// Handlers

func (api *ratingApi) vote(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data VoteRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VoteRequest")
	}
	if err = data.Validate(api.validate, api.translator); err != nil {
		return err
	}
	kind, remove, err := rating.ParseKind(data.Code)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "code", Error: err.Error()})
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	r, err := api.svc.CastVote(ctx.Request().Context(), usr, id, kind, remove)
	if err != nil {
		return apiError(err)
	}
	if r == nil { // removal
		return ctx.NoContent(http.StatusNoContent)
	}

	return ctx.JSON(http.StatusCreated, r)
}

func (api *ratingApi) tally(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	t, err := api.svc.PostTally(ctx.Request().Context(), id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, t)
}

func (api *ratingApi) myRatings(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ratings, err := api.svc.GetRating(ctx.Request().Context(), usr, id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, ratings)
}

// reputation returns the actor's reputation in a forum. A "user" query
// param reads someone else's, which needs the view-any-rating capability.
func (api *ratingApi) reputation(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	subjectID := usr.ID
	if raw := ctx.QueryParam("user"); raw != "" {
		subjectID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || subjectID <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user query param")
		}
		if subjectID != usr.ID && !usr.HasCapability(user.CapViewAnyRating) {
			return errHttpForbidden
		}
	}

	f, err := api.forumSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return apiError(err)
	}
	rep, err := api.svc.UserReputation(ctx.Request().Context(), f, subjectID)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, echo.Map{"user_id": subjectID, "forum_id": id, "reputation": rep})
}
