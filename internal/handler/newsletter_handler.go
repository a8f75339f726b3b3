package handler

import (
	"net/http"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

type NewsletterHandler struct {
	uc *usecase.NewsletterUsecase
}

// DI
func NewNewsletterHandler(uc *usecase.NewsletterUsecase) *NewsletterHandler {
	return &NewsletterHandler{uc: uc}
}

type SubscribeRequest struct {
	Email string `json:"email"`
}

func (h *NewsletterHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/newsletter/subscribe", h.subscribe)
}

// 初回は201、登録済みは200（同じコードを返す）
func (h *NewsletterHandler) subscribe(c echo.Context) error {
	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Subscribe(c.Request().Context(), req.Email)
	if err != nil {
		return writeError(c, err)
	}
	if out.AlreadySubscribed {
		return c.JSON(http.StatusOK, out)
	}
	return c.JSON(http.StatusCreated, out)
}
