package handler

import (
	"net/http"
	"strconv"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/middleware"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminAuditHandler struct {
	uc *usecase.AuditLogUsecase
}

// DI
func NewAdminAuditHandler(uc *usecase.AuditLogUsecase) *AdminAuditHandler {
	return &AdminAuditHandler{uc: uc}
}

func (h *AdminAuditHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")
	admin.Use(middleware.AdminRoleGuard(cfg, userRepo))

	admin.GET("/audit-logs", h.list)
}

// ?actor=&action=&resource_type=&resource_id=&from=&to=&limit=&offset=
func (h *AdminAuditHandler) list(c echo.Context) error {
	f := repository.AuditLogFilter{
		ActorUserID:  c.QueryParam("actor"),
		Action:       model.AuditAction(c.QueryParam("action")),
		ResourceType: model.AuditResourceType(c.QueryParam("resource_type")),
	}

	var ok bool
	if f.Limit, ok = queryInt(c, "limit", 0); !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	if f.Offset, ok = queryInt(c, "offset", 0); !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
	}
	if v := c.QueryParam("resource_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid resource_id"})
		}
		f.ResourceID = id
	}
	if v := c.QueryParam("from"); v != "" {
		tm, ok := usecase.ParseDateTimeRFC3339(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		f.Since = *tm
	}
	if v := c.QueryParam("to"); v != "" {
		tm, ok := usecase.ParseDateTimeRFC3339(v)
		if !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
		}
		f.Until = *tm
	}

	out, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 空なら def。数値でなければ false
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
