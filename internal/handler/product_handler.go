package handler

import (
	"net/http"
	"strconv"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

// どの層から返したか（remote/cache/static）
const CatalogSourceHeader = "X-Catalog-Source"

type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields usecase.FieldErrors `json:"fields,omitempty"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ve, ok := usecase.AsValidationError(err); ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: ve.Fields})
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// /products の公開API
type ProductHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewProductHandler(uc *usecase.CatalogUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
	e.GET("/products/:id/recommended", h.recommended)
}

// ?category= と ?q= は排他（categoryを優先）
func (h *ProductHandler) list(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		out []model.Product
		src string
	)
	switch {
	case c.QueryParam("category") != "":
		out, src = h.uc.GetProductsByCategory(ctx, c.QueryParam("category"))
	case c.QueryParam("q") != "":
		out, src = h.uc.SearchProducts(ctx, c.QueryParam("q"))
	default:
		out, src = h.uc.GetAllProducts(ctx)
	}

	c.Response().Header().Set(CatalogSourceHeader, src)
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	p, src, err := h.uc.GetProductByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(CatalogSourceHeader, src)
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) recommended(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	// limit（default 4）
	limit := usecase.DefaultRecommendedLimit
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	out, src := h.uc.GetRecommendedProducts(c.Request().Context(), id, limit)
	c.Response().Header().Set(CatalogSourceHeader, src)
	return c.JSON(http.StatusOK, out)
}
