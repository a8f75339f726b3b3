package usecase

import (
	"strings"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

// 欠けている項目の既定値
const (
	DefaultProductImage       = "/images/products/placeholder.jpg"
	DefaultProductDescription = "A boring coffee, done right."
	DefaultProductCategory    = "coffee"
)

// SanitizeProducts は id/name/price が無い行を落とし、
// image_url/description/category の欠けを既定値で埋める。
// price<=0 と id<=0 は「無い」とみなす。
func SanitizeProducts(in []model.Product) []model.Product {
	out := make([]model.Product, 0, len(in))
	for _, p := range in {
		if p, ok := SanitizeProduct(p); ok {
			out = append(out, p)
		}
	}
	return out
}

func SanitizeProduct(p model.Product) (model.Product, bool) {
	p.Name = strings.TrimSpace(p.Name)
	if p.ID <= 0 || p.Name == "" || p.Price <= 0 {
		return model.Product{}, false
	}
	if strings.TrimSpace(p.ImageURL) == "" {
		p.ImageURL = DefaultProductImage
	}
	if strings.TrimSpace(p.Description) == "" {
		p.Description = DefaultProductDescription
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = DefaultProductCategory
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	return p, true
}
