package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/pricing"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
)

// 配送先フォーム
type ShippingInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// 入力チェック（validatorパッケージが実装）
type InputValidator interface {
	ValidateShipping(in ShippingInfo) FieldErrors
	ValidEmail(email string) bool
}

// 注文確認などのメール送信
type Notifier interface {
	OrderConfirmation(ctx context.Context, o model.Order, items []model.OrderItem) error
	NewsletterWelcome(ctx context.Context, email string, code string) error
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	validator InputValidator
	notifier  Notifier
	log       *slog.Logger
}

// DI
func NewOrderUsecase(tx repo.TransactionManager, validator InputValidator, notifier Notifier, log *slog.Logger) *OrderUsecase {
	return &OrderUsecase{tx: tx, validator: validator, notifier: notifier, log: log}
}

type SubmitOrderInput struct {
	// 未ログインなら空
	UserID   string
	Shipping ShippingInfo
	Items    []model.CartItem
}

type SubmitOrderResult struct {
	Success bool           `json:"success"`
	OrderID int64          `json:"order_id,omitempty"`
	Message string         `json:"message,omitempty"`
	Totals  pricing.Totals `json:"totals"`
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	model.Order
	Items []OrderItemOutput `json:"items"`
}

var errOrderInsert = errors.New("order insert failed")

// SubmitOrder は注文と明細を1トランザクションで作る。
// カートは消さない（呼び出し側が成功後に消す）。
func (u *OrderUsecase) SubmitOrder(ctx context.Context, in SubmitOrderInput) (SubmitOrderResult, error) {
	in.Shipping = trimShipping(in.Shipping)
	if fields := u.validator.ValidateShipping(in.Shipping); len(fields) > 0 {
		return SubmitOrderResult{}, &ValidationError{Fields: fields}
	}
	if len(in.Items) == 0 {
		return SubmitOrderResult{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}
	for _, it := range in.Items {
		if it.Product == nil || it.Quantity < 1 {
			return SubmitOrderResult{}, NewHTTPError(http.StatusBadRequest, "invalid cart item")
		}
	}

	totals := pricing.Calculate(pricing.Subtotal(in.Items))

	now := time.Now()
	order := model.Order{
		Status:    model.OrderStatusPending,
		Subtotal:  totals.Subtotal,
		Tax:       totals.Tax,
		Shipping:  totals.Shipping,
		Total:     totals.Total,
		FirstName: in.Shipping.FirstName,
		LastName:  in.Shipping.LastName,
		Email:     in.Shipping.Email,
		Address:   in.Shipping.Address,
		City:      in.Shipping.City,
		State:     in.Shipping.State,
		ZipCode:   in.Shipping.ZipCode,
		Country:   in.Shipping.Country,
		Phone:     in.Shipping.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.UserID != "" {
		uid := in.UserID
		order.UserID = &uid
	}

	//スナップショット
	items := make([]model.OrderItem, 0, len(in.Items))
	for _, ci := range in.Items {
		items = append(items, model.OrderItem{
			ProductID:   ci.ProductID,
			ProductName: ci.Product.Name,
			Price:       ci.Product.Price,
			Quantity:    ci.Quantity,
			CreatedAt:   now,
		})
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return fmt.Errorf("%w: %w", errOrderInsert, err)
		}
		order.ID = orderID

		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return fmt.Errorf("order items insert failed: %w", err)
		}
		return nil
	})
	if err != nil {
		u.log.Error("order: submit failed", "email", order.Email, "err", err)
		return SubmitOrderResult{Success: false, Message: err.Error(), Totals: totals}, nil
	}

	u.log.Info("order: created", "order_id", order.ID, "total", order.Total)

	// メールの失敗で注文は失敗させない
	if err := u.notifier.OrderConfirmation(ctx, order, items); err != nil {
		u.log.Warn("order: confirmation email failed", "order_id", order.ID, "err", err)
	}

	return SubmitOrderResult{
		Success: true,
		OrderID: order.ID,
		Message: "order placed",
		Totals:  totals,
	}, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID string) ([]OrderOutput, error) {
	if userID == "" {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングでまずは固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID string, orderID int64) (OrderOutput, error) {
	if userID == "" {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID == nil || *o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return OrderOutput{Order: o, Items: outItems}
}

func trimShipping(s ShippingInfo) ShippingInfo {
	return ShippingInfo{
		FirstName: strings.TrimSpace(s.FirstName),
		LastName:  strings.TrimSpace(s.LastName),
		Email:     strings.TrimSpace(s.Email),
		Address:   strings.TrimSpace(s.Address),
		City:      strings.TrimSpace(s.City),
		State:     strings.TrimSpace(s.State),
		ZipCode:   strings.TrimSpace(s.ZipCode),
		Country:   strings.TrimSpace(s.Country),
		Phone:     strings.TrimSpace(s.Phone),
	}
}
