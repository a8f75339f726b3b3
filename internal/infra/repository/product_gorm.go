package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"

	"gorm.io/gorm"
)

// 更新で書き換える列（ゼロ値も書く）
var productUpdateColumns = []string{
	"name", "description", "price", "original_price", "discount_percentage", "stock",
	"category", "image_url", "images", "rating", "roast_level", "story", "steps", "updated_at",
}

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 全件。テーブルが権限で読めなければ get_all_products() を使う
func (r *ProductGormRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("id asc").Find(&products).Error
	if err == nil {
		return products, nil
	}
	if isPermissionDenied(err) {
		return r.ListAllViaProcedure(ctx)
	}
	return []model.Product{}, translate(err)
}

func (r *ProductGormRepository) ListAllViaProcedure(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).Raw("SELECT * FROM get_all_products()").Scan(&products).Error; err != nil {
		return []model.Product{}, translate(err)
	}
	return products, nil
}

func (r *ProductGormRepository) ListByCategory(ctx context.Context, category string) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("LOWER(category) = ?", strings.ToLower(strings.TrimSpace(category))).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, translate(err)
	}
	return products, nil
}

// LIKE のワイルドカードを文字として扱う
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// name/description/category の部分一致（大文字小文字無視）
func (r *ProductGormRepository) Search(ctx context.Context, q string) ([]model.Product, error) {
	like := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"

	var products []model.Product
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\'`, like, like, like).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, translate(err)
	}
	return products, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

func (r *ProductGormRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// 商品の作成。権限で弾かれたら insert_product() で入れる
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	err := r.db.WithContext(ctx).Create(&p).Error
	if err == nil {
		return p, nil
	}
	if !isPermissionDenied(err) {
		return model.Product{}, translate(err)
	}

	payload, mErr := json.Marshal(p)
	if mErr != nil {
		return model.Product{}, fmt.Errorf("marshal product: %w", mErr)
	}
	var created model.Product
	if err := r.db.WithContext(ctx).
		Raw("SELECT * FROM insert_product(?::jsonb)", string(payload)).
		Scan(&created).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return created, nil
}

// 商品の更新
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&p).Select(productUpdateColumns).Updates(&p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 物理削除（履歴は残さない）
func (r *ProductGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
