package echoapi

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/learnweb/moodleoverflow/core"
	"github.com/learnweb/moodleoverflow/core/user"
)

const contextTokenKey = "userToken"

// Claims represents the authorization claims transmitted via a JWT. The
// host LMS issues the token when it embeds the forum; we only verify it.
type Claims struct {
	jwt.StandardClaims
	Name       string          `json:"name,omitempty"`
	Username   string          `json:"username,omitempty"`
	Email      string          `json:"email,omitempty"`
	Roles      []string        `json:"roles,omitempty"`
	DigestMode user.DigestMode `json:"digest_mode,omitempty"`
}

// jwtHelper bundles the middleware config with the signing key so tokens
// can be issued and checked from one place.
type jwtHelper struct {
	conf   *core.Config
	config middleware.JWTConfig
}

func newJWTHelper(conf *core.Config) *jwtHelper {
	return &jwtHelper{
		conf: conf,
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

// GetUserClaims builds the claims the host LMS would put in a token.
// Mostly used by tests and the admin CLI.
func GetUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.FormatInt(usr.ID, 10),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:       usr.Name,
		Username:   usr.Username,
		Email:      usr.Email,
		Roles:      usr.Roles,
		DigestMode: usr.DigestMode,
	}
}

// GenerateToken signs the claims the way the host LMS would. Mostly used
// by tests.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	return newJWTHelper(conf).GenerateToken(claims)
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (h *jwtHelper) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(h.config.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(h.config.SigningKey.([]byte))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser materializes the acting user from the token claims. The
// user record lives in the host LMS, so no DB round-trip happens here.
func getContextUser(ctx echo.Context) (user.User, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return user.User{}, errUnauthorized
	}
	return user.User{
		ID:         id,
		Name:       claims.Name,
		Username:   claims.Username,
		Email:      claims.Email,
		IsActive:   true,
		Roles:      claims.Roles,
		DigestMode: claims.DigestMode,
	}, nil
}
