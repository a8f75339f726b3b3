package handler

import (
	"net/http"
	"strconv"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/middleware"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkout と /orders
type OrderHandler struct {
	orders *usecase.OrderUsecase
	cart   *usecase.CartUsecase
}

// DI
func NewOrderHandler(orders *usecase.OrderUsecase, cart *usecase.CartUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, cart: cart}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	// ゲスト購入あり
	e.POST("/checkout", h.checkout, middleware.Session(cfg.IsProd()), middleware.OptionalAuthJWT(cfg))

	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.GET("", h.list)
	g.GET("/:id", h.detail)
}

// カートの中身で注文を作り、成功したらカートを空にする
func (h *OrderHandler) checkout(c echo.Context) error {
	var req usecase.ShippingInfo
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	ctx := c.Request().Context()
	s := sessionFromContext(c)

	cart, err := h.cart.GetCart(ctx, s)
	if err != nil {
		return writeError(c, err)
	}

	res, err := h.orders.SubmitOrder(ctx, usecase.SubmitOrderInput{
		UserID:   s.UserID,
		Shipping: req,
		Items:    cart.Items,
	})
	if err != nil {
		return writeError(c, err)
	}
	if !res.Success {
		return c.JSON(http.StatusInternalServerError, res)
	}

	//注文は確定済みなのでカートの失敗は返さない
	_, _ = h.cart.ClearCart(ctx, s)

	return c.JSON(http.StatusCreated, res)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.orders.ListMyOrders(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.orders.GetMyOrderDetail(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
