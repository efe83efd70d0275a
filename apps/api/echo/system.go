package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core/privacy"
	"github.com/learnweb/moodleoverflow/core/search"
	"github.com/learnweb/moodleoverflow/core/user"
)

// systemApi surfaces the host integration points: the search indexer feed
// and the GDPR data requests. Both are manager-only.
type systemApi struct {
	searchSvc  *search.Service
	privacySvc *privacy.Service
}

func registerSystemAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := systemApi{
		searchSvc:  deps.SearchSvc,
		privacySvc: deps.PrivacySvc,
	}

	sg := g.Group("/system", jwt, capabilityMiddleware(user.CapViewAnonymized))
	sg.GET("/search/recordset", api.searchRecordset)
	sg.GET("/search/access/:id", api.searchAccess)
	sg.GET("/privacy/metadata", api.privacyMetadata)
	sg.GET("/privacy/export/:uid", api.privacyExport)
	sg.DELETE("/privacy/data/:uid", api.privacyDelete)
}

// Handlers

func (api *systemApi) searchRecordset(ctx echo.Context) error {
	since := time.Time{}
	if raw := ctx.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be RFC3339")
		}
		since = t
	}

	docs, err := api.searchSvc.RecordsetSince(ctx.Request().Context(), since)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, docs)
}

// searchAccess answers the indexer's per-document visibility check on
// behalf of the user given in the "user" query param.
func (api *systemApi) searchAccess(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	subjectID, err := queryID(ctx, "user")
	if err != nil {
		return err
	}

	ok, err := api.searchSvc.CheckAccess(ctx.Request().Context(), user.User{ID: subjectID}, id)
	if err != nil {
		return apiError(err)
	}

	return ctx.JSON(http.StatusOK, echo.Map{"post_id": id, "user_id": subjectID, "access": ok})
}

func (api *systemApi) privacyMetadata(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.privacySvc.Metadata())
}

func (api *systemApi) privacyExport(ctx echo.Context) error {
	uid, err := pathID(ctx, "uid")
	if err != nil {
		return err
	}

	export, err := api.privacySvc.ExportUserData(ctx.Request().Context(), uid)
	if err != nil {
		return errors.Wrap(err, "exporting user data")
	}

	return ctx.JSON(http.StatusOK, export)
}

func (api *systemApi) privacyDelete(ctx echo.Context) error {
	uid, err := pathID(ctx, "uid")
	if err != nil {
		return err
	}

	if err = api.privacySvc.DeleteUserData(ctx.Request().Context(), uid); err != nil {
		return errors.Wrap(err, "deleting user data")
	}

	return ctx.NoContent(http.StatusNoContent)
}
