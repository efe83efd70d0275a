package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/discussion"
	"github.com/learnweb/moodleoverflow/core/forum"
	"github.com/learnweb/moodleoverflow/core/grade"
	"github.com/learnweb/moodleoverflow/core/rating"
	"github.com/learnweb/moodleoverflow/core/subscription"
	"github.com/learnweb/moodleoverflow/core/tracking"
	"github.com/learnweb/moodleoverflow/core/user"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// apiError maps the service error taxonomy onto HTTP statuses. Unknown
// errors fall through to the HTTPErrorHandler as 500s.
func apiError(err error) error {
	switch errors.Cause(err) {
	case discussion.ErrNotFound, forum.ErrNotFound, rating.ErrNotFound,
		subscription.ErrNotFound, tracking.ErrNotFound, grade.ErrNotFound, user.ErrNotFound:
		return errHttpNotFound
	case discussion.ErrNotAuthorized, rating.ErrNotAuthorized, subscription.ErrNotAuthorized:
		return errHttpForbidden
	case discussion.ErrHasReplies:
		return echo.NewHTTPError(http.StatusConflict, "post has replies")
	case discussion.ErrAlreadyReviewed:
		return echo.NewHTTPError(http.StatusConflict, "post is locked by moderation")
	case discussion.ErrEditWindowExpired:
		return echo.NewHTTPError(http.StatusForbidden, "editing window has expired")
	case rating.ErrSelfVote:
		return echo.NewHTTPError(http.StatusBadRequest, "users cannot vote on their own posts")
	case rating.ErrUnderReview, tracking.ErrNotReviewed:
		return echo.NewHTTPError(http.StatusConflict, "post is waiting for review")
	case subscription.ErrForced:
		return echo.NewHTTPError(http.StatusBadRequest, "forum subscription is forced")
	case subscription.ErrInvalidToken, subscription.ErrTokenExpired:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired token")
	}
	return err
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Error()
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
