package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/tracking"
	"github.com/learnweb/moodleoverflow/core/user"
)

type forumApi struct {
	svc        *forum.Service
	subSvc     *subscription.Service
	gradeSvc   *grade.Service
	trackSvc   *tracking.Service
	tokenizer  *subscription.Tokenizer
	validate   *validator.Validate
	translator ut.Translator
}

func registerForumAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := forumApi{
		svc:        deps.ForumSvc,
		subSvc:     deps.SubSvc,
		gradeSvc:   deps.GradeSvc,
		trackSvc:   deps.TrackSvc,
		tokenizer:  deps.Tokenizer,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	fg := g.Group("/forums")

	// un-authed: reached from unsubscribe links in notification mails
	fg.POST("/:id/unsubscribe-token", api.unsubscribeByToken)

	ag := fg.Group("", jwt)
	ag.POST("", api.create, capabilityMiddleware(user.CapManageSubs))
	ag.GET("", api.queryByCourse)

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/subscribe", api.subscribe)
	dg.POST("/unsubscribe", api.unsubscribe)
	dg.GET("/unread", api.unreadDiscussions)
	dg.GET("/grades/me", api.myGrade)
	dg.GET("/grades", api.listGrades, capabilityMiddleware(user.CapViewAnyRating))
	dg.POST("/grades/recompute", api.recomputeGrades, capabilityMiddleware(user.CapViewAnyRating))
}

// Handlers

func (api *forumApi) create(ctx echo.Context) error {
	var data forum.NewForum
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForum")
	}
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating forum")
	}

	return ctx.JSON(http.StatusCreated, f)
}

func (api *forumApi) queryByCourse(ctx echo.Context) error {
	courseID, err := queryID(ctx, "course")
	if err != nil {
		return err
	}

	forums, err := api.svc.QueryByCourse(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "querying forums")
	}

	return ctx.JSON(http.StatusOK, forums)
}

func (api *forumApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	f, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, f)
}

func (api *forumApi) subscribe(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.subSvc.Subscribe(ctx.Request().Context(), usr, id); err != nil {
		return apiError(err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (api *forumApi) unsubscribe(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.subSvc.Unsubscribe(ctx.Request().Context(), usr, id); err != nil {
		return apiError(err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// unsubscribeByToken serves the one-click link embedded in mails. The
// token stands in for authentication, so no JWT is required here.
func (api *forumApi) unsubscribeByToken(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data UnsubscribeTokenRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UnsubscribeTokenRequest")
	}
	if err = data.Validate(api.validate, api.translator); err != nil {
		return err
	}

	if err = api.tokenizer.VerifyToken(data.UserID, id, data.Token); err != nil {
		return apiError(err)
	}
	usr := user.User{ID: data.UserID}
	if err = api.subSvc.Unsubscribe(ctx.Request().Context(), usr, id); err != nil {
		return apiError(err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (api *forumApi) unreadDiscussions(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ids, err := api.trackSvc.UnreadDiscussions(ctx.Request().Context(), usr, id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, echo.Map{"discussion_ids": ids})
}

func (api *forumApi) myGrade(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	g, err := api.gradeSvc.Get(ctx.Request().Context(), usr.ID, id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, g)
}

func (api *forumApi) listGrades(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	grades, err := api.gradeSvc.ListByForum(ctx.Request().Context(), id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, grades)
}

func (api *forumApi) recomputeGrades(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	n, err := api.gradeSvc.RecomputeForum(ctx.Request().Context(), id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, echo.Map{"graded": n})
}
