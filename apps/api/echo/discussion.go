package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/tracking"
	"github.com/learnweb/moodleoverflow/core/user"
)

type discussionApi struct {
	svc        *discussion.Service
	subSvc     *subscription.Service
	trackSvc   *tracking.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerDiscussionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := discussionApi{
		svc:        deps.DiscSvc,
		subSvc:     deps.SubSvc,
		trackSvc:   deps.TrackSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	dg := g.Group("/discussions", jwt)
	dg.POST("", api.create)
	dg.GET("", api.queryByForum)
	dg.GET("/:id", api.retrieve)
	dg.POST("/:id/read", api.markRead)
	dg.GET("/:id/unread-count", api.unreadCount)
	dg.PUT("/:id/subscription", api.setSubscription)

	pg := g.Group("/posts", jwt)
	pg.POST("", api.reply)
	pg.GET("/:id", api.retrievePost)
	pg.PUT("/:id", api.updatePost)
	pg.DELETE("/:id", api.deletePost)
	pg.POST("/:id/read", api.markPostRead)

	rg := pg.Group("/:id", capabilityMiddleware(user.CapReviewPost))
	rg.POST("/approve", api.approve)
	rg.POST("/reject", api.reject)
}

// Handlers

func (api *discussionApi) create(ctx echo.Context) error {
	var data discussion.NewDiscussion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDiscussion")
	}
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	d, p, err := api.svc.AddDiscussion(ctx.Request().Context(), usr, data)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusCreated, echo.Map{"discussion": d, "post": p})
}

func (api *discussionApi) queryByForum(ctx echo.Context) error {
	forumID, err := queryID(ctx, "forum")
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	discussions, err := api.svc.QueryByForum(ctx.Request().Context(), forumID, ordering.Orderings)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, discussions)
}

func (api *discussionApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	d, posts, err := api.svc.GetDiscussion(ctx.Request().Context(), id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, echo.Map{"discussion": d, "posts": posts})
}

func (api *discussionApi) markRead(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.trackSvc.MarkDiscussionRead(ctx.Request().Context(), usr, id); err != nil {
		return apiError(err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (api *discussionApi) unreadCount(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	n, err := api.trackSvc.UnreadCount(ctx.Request().Context(), usr, id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, echo.Map{"unread": n})
}

func (api *discussionApi) setSubscription(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data DiscussionSubscriptionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DiscussionSubscriptionRequest")
	}
	if err = data.Validate(api.validate, api.translator); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.subSvc.SubscribeDiscussion(ctx.Request().Context(), usr, id, data.Preference); err != nil {
		return apiError(err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (api *discussionApi) reply(ctx echo.Context) error {
	var data discussion.NewReply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReply")
	}
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.AddReply(ctx.Request().Context(), usr, data)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusCreated, p)
}

func (api *discussionApi) retrievePost(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	p, err := api.svc.GetPost(ctx.Request().Context(), id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, p)
}

func (api *discussionApi) updatePost(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data discussion.UpdatePost
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePost")
	}
	if err = data.Validate(api.validate, api.translator); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.EditPost(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, p)
}

func (api *discussionApi) deletePost(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cascade, _ := strconv.ParseBool(ctx.QueryParam("cascade"))

	if err = api.svc.DeletePost(ctx.Request().Context(), usr, id, cascade); err != nil {
		return apiError(err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (api *discussionApi) markPostRead(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rec, err := api.trackSvc.MarkPostRead(ctx.Request().Context(), usr, id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, rec)
}

func (api *discussionApi) approve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	next, err := api.svc.Approve(ctx.Request().Context(), usr, id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, echo.Map{"next": next})
}

func (api *discussionApi) reject(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var data RejectRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectRequest")
	}
	if err = data.Validate(api.validate, api.translator); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Reject(ctx.Request().Context(), usr, id, data.Reason); err != nil {
		return apiError(err)
	}

	return ctx.NoContent(http.StatusNoContent)
}
