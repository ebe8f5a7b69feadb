package echoapi

import (
	"crypto/subtle"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}

type auth struct {
	conf         *core.Config
	jwtConfig    middleware.JWTConfig
	adminPwdHash []byte
}

func newAuth(conf *core.Config) *auth {
	hash, err := bcrypt.GenerateFromPassword([]byte(conf.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		panic(errors.Wrap(err, "hashing admin password"))
	}
	return &auth{
		conf: conf,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "adminToken",
			Claims:        new(Claims),
		},
		adminPwdHash: hash,
	}
}

func (a *auth) authenticate(email, pwd string) (*Claims, error) {
	// a single admin principal; constant-time email compare avoids leaking it
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.conf.Admin.Email)) == 1
	pwdErr := bcrypt.CompareHashAndPassword(a.adminPwdHash, []byte(pwd))
	if !emailOK || pwdErr != nil {
		return nil, errAuthenticationFailed
	}

	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   a.conf.Admin.Email,
			Audience:  "Portal",
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:   a.conf.Admin.Email,
		IsAdmin: true,
	}, nil
}

// generateToken generates a signed JWT token string representing the Claims.
func (a *auth) generateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey.([]byte))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get("adminToken").(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
