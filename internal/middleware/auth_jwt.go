package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey    = "user_id"    // string（認証プロバイダのsub）
	CtxUserEmailKey = "user_email" // string
	CtxUserRoleKey  = "user_role"  // string（AdminRoleGuardのみ）
)

var errNoToken = errors.New("no bearer token")

// bearerAuth用のJWT検証ミドルウェア（必須）。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, email, err := authenticate(c.Request(), cfg.AuthJWTSecret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserIDKey, userID)
			c.Set(CtxUserEmailKey, email)
			return next(c)
		}
	}
}

// トークンがあれば検証する。無ければゲストとして通す
func OptionalAuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, email, err := authenticate(c.Request(), cfg.AuthJWTSecret)
			if errors.Is(err, errNoToken) {
				return next(c)
			}
			//壊れたトークンはゲスト扱いにしない
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserIDKey, userID)
			c.Set(CtxUserEmailKey, email)
			return next(c)
		}
	}
}

// Authorizationヘッダを検証して sub と email を返す
func authenticate(r *http.Request, secret string) (string, string, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", "", errNoToken
	}

	//Bearer形式か確認してtokenを抜く
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "", errors.New("invalid scheme")
	}
	rawToken := strings.TrimSpace(parts[1])
	if rawToken == "" {
		return "", "", errors.New("empty token")
	}

	//JWTをパースして検証する
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid claims")
	}

	sub, err := parseString(claims["sub"])
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", "", errors.New("invalid sub")
	}
	// emailは任意
	email, _ := parseString(claims["email"])

	return sub, email, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}
