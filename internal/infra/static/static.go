// Package static は同梱の商品リスト（リモートが使えないときの最終手段）。
package static

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

//go:embed products.json
var productsJSON []byte

var bundled []model.Product

func init() {
	if err := json.Unmarshal(productsJSON, &bundled); err != nil {
		panic(fmt.Sprintf("static: invalid products.json: %v", err))
	}
}

// Products は同梱リストのコピーを返す。
func Products() []model.Product {
	out := make([]model.Product, len(bundled))
	for i, p := range bundled {
		p.Images = slices.Clone(p.Images)
		p.Steps = slices.Clone(p.Steps)
		out[i] = p
	}
	return out
}
