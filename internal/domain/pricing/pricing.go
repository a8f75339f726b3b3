// Package pricing はチェックアウト金額の計算をまとめる。
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

const (
	// 送料無料になる小計（$50.00）
	FreeShippingThreshold int64 = 5000
	// 通常送料（$5.00）
	ShippingFee int64 = 500
)

var taxRate = decimal.NewFromFloat(0.10)

type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// 小計の10%（四捨五入）
func Tax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(taxRate).Round(0).IntPart()
}

func Shipping(subtotal int64) int64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return ShippingFee
}

func Calculate(subtotal int64) Totals {
	tax := Tax(subtotal)
	shipping := Shipping(subtotal)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal + tax + shipping,
	}
}

// Σ 単価 × 数量
func Subtotal(items []model.CartItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.UnitPrice() * it.Quantity
	}
	return sum
}

func TotalItems(items []model.CartItem) int64 {
	var n int64
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// 割引率を適用した金額（四捨五入）
func ApplyPercentage(amount int64, percentage int) int64 {
	off := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(percentage))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	return amount - off
}
