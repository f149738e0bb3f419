package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/infast/crm/core"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
}

type tokenGenerator struct {
	conf      middleware.JWTConfig
	appName   string
	expDelta  time.Duration
	refrDelta time.Duration
}

func (tg *tokenGenerator) claims(username string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    tg.appName,
			Subject:   username,
			Audience:  "CRM",
			ExpiresAt: now.Add(tg.expDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     username,
	}
}

// generate signs a JWT token string representing the Claims.
func (tg *tokenGenerator) generate(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(tg.conf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(tg.conf.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context, conf middleware.JWTConfig) (Claims, error) {
	if token, ok := ctx.Get(conf.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

type authApi struct {
	operator core.AuthConfig
	tokens   *tokenGenerator
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, operator core.AuthConfig, tokens *tokenGenerator) {
	api := authApi{operator: operator, tokens: tokens}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// authenticate checks the credentials against the configured operator account.
// An empty password hash disables logins.
func (api *authApi) authenticate(username, password string) error {
	if api.operator.PasswordHash == "" || username != core.CleanString(api.operator.Username, true) {
		return errAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(api.operator.PasswordHash), []byte(password)); err != nil {
		return errAuthenticationFailed
	}
	return nil
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.authenticate(data.Username, data.Password); err != nil {
		return err
	}
	token, err := api.tokens.generate(api.tokens.claims(data.Username))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx, api.tokens.conf)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// the operator may have been renamed since
	if claims.Username != core.CleanString(api.operator.Username, true) {
		return errUnauthorized
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.tokens.refrDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	token, err := api.tokens.generate(api.tokens.claims(claims.Username, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.ValidateStruct(lr)
}
