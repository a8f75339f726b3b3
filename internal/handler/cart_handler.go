package handler

import (
	"net/http"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/middleware"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc    *usecase.CartUsecase
	users *usecase.UserUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, users *usecase.UserUsecase) *CartHandler {
	return &CartHandler{uc: uc, users: users}
}

type AddCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

// /cart, /cart/items/{id}, /cart/session/* を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/cart")
	g.Use(middleware.Session(cfg.IsProd()))
	g.Use(middleware.OptionalAuthJWT(cfg))

	g.GET("", h.getCart)
	g.DELETE("", h.clearCart)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:id", h.patchItem)
	g.DELETE("/items/:id", h.deleteItem)

	g.POST("/session/login", h.login)
	g.POST("/session/logout", h.logout)
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.uc.GetCart(c.Request().Context(), sessionFromContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AddItem(c.Request().Context(), sessionFromContext(c), req.ProductID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateQuantity(c.Request().Context(), sessionFromContext(c), c.Param("id"), req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	out, err := h.uc.RemoveItem(c.Request().Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	out, err := h.uc.ClearCart(c.Request().Context(), sessionFromContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ログイン直後にフロントから呼ぶ。usersの行を作ってからカートを切り替える
func (h *CartHandler) login(c echo.Context) error {
	s := sessionFromContext(c)
	if !s.Authenticated() {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if _, err := h.users.Sync(c.Request().Context(), s.UserID, s.Email); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Login(c.Request().Context(), s)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) logout(c echo.Context) error {
	out, err := h.uc.Logout(c.Request().Context(), sessionFromContext(c).ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// middleware.Session / AuthJWT が c.Set した値からセッションを組み立てる
func sessionFromContext(c echo.Context) model.Session {
	var s model.Session
	s.ID, _ = c.Get(middleware.CtxSessionIDKey).(string)
	s.UserID, _ = c.Get(middleware.CtxUserIDKey).(string)
	s.Email, _ = c.Get(middleware.CtxUserEmailKey).(string)
	return s
}

// middleware.AuthJWT が c.Set("user_id", string) した値を取り出す
func getUserIDFromContext(c echo.Context) (string, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
