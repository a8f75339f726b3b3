package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"

	"github.com/labstack/echo/v4"
)

// 管理画面のガード。ロールはトークンではなくusersテーブルから読む。
// 未ログインは ?error=unauthorized、ADMIN以外は ?error=forbidden へリダイレクト。
func AdminRoleGuard(cfg config.Config, userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, email, err := authenticate(c.Request(), cfg.AuthJWTSecret)
			if err != nil {
				return c.Redirect(http.StatusFound, authPageURL(cfg.AuthPagePath, "unauthorized"))
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if errors.Is(err, repository.ErrNotFound) {
				return c.Redirect(http.StatusFound, authPageURL(cfg.AuthPagePath, "forbidden"))
			}
			if err != nil {
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			//USERは拒否、ADMINだけ許可
			if user.Role != model.RoleAdmin {
				return c.Redirect(http.StatusFound, authPageURL(cfg.AuthPagePath, "forbidden"))
			}

			c.Set(CtxUserIDKey, userID)
			c.Set(CtxUserEmailKey, email)
			c.Set(CtxUserRoleKey, string(user.Role))
			return next(c)
		}
	}
}

func authPageURL(path string, reason string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "error=" + url.QueryEscape(reason)
}
