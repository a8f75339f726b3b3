package db

import (
	"fmt"

	"gorm.io/gorm"
)

// 行レベル権限でテーブルを直接読めないクライアント向けの関数。
// SECURITY DEFINER で所有者権限で動く。
const getAllProductsSQL = `
CREATE OR REPLACE FUNCTION get_all_products()
RETURNS SETOF products
LANGUAGE sql
SECURITY DEFINER
AS $$
	SELECT * FROM products ORDER BY id;
$$;`

const insertProductSQL = `
CREATE OR REPLACE FUNCTION insert_product(p jsonb)
RETURNS SETOF products
LANGUAGE sql
SECURITY DEFINER
AS $$
	INSERT INTO products (
		id, name, description, price, original_price, discount_percentage, stock,
		category, image_url, images, rating, roast_level, story, steps, created_at, updated_at
	)
	SELECT
		(p->>'id')::bigint, p->>'name', COALESCE(p->>'description', ''),
		(p->>'price')::bigint, COALESCE((p->>'original_price')::bigint, 0),
		COALESCE((p->>'discount_percentage')::int, 0), COALESCE((p->>'stock')::bigint, 0),
		COALESCE(p->>'category', ''), COALESCE(p->>'image_url', ''),
		p->'images', COALESCE((p->>'rating')::float8, 0), COALESCE(p->>'roast_level', ''),
		COALESCE(p->>'story', ''), p->'steps', now(), now()
	RETURNING *;
$$;`

// Postgresのときだけ関数を作る
func EnsureFunctions(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, stmt := range []string{getAllProductsSQL, insertProductSQL} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create function: %w", err)
		}
	}
	return nil
}
