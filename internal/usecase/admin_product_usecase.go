package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
)

// 管理画面からカタログを操作する
type CatalogControl interface {
	InvalidateCache(ctx context.Context) error
	InitState() InitReport
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type CacheStatsReporter interface {
	Stats() CacheStats
}

type AdminProductUsecase struct {
	productRepo repo.ProductRepository
	tx          repo.TransactionManager
	catalog     CatalogControl
	db          Pinger
	cacheStats  CacheStatsReporter
	fallback    []model.Product
	log         *slog.Logger
}

// DI
func NewAdminProductUsecase(
	productRepo repo.ProductRepository,
	tx repo.TransactionManager,
	catalog CatalogControl,
	db Pinger,
	cacheStats CacheStatsReporter,
	fallback []model.Product,
	log *slog.Logger,
) *AdminProductUsecase {
	return &AdminProductUsecase{
		productRepo: productRepo,
		tx:          tx,
		catalog:     catalog,
		db:          db,
		cacheStats:  cacheStats,
		fallback:    fallback,
		log:         log,
	}
}

type AdminProductInput struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Price              int64    `json:"price"`
	OriginalPrice      int64    `json:"original_price"`
	DiscountPercentage int      `json:"discount_percentage"`
	Stock              int64    `json:"stock"`
	Category           string   `json:"category"`
	ImageURL           string   `json:"image_url"`
	Images             []string `json:"images"`
	Rating             float64  `json:"rating"`
	RoastLevel         string   `json:"roast_level"`
	Story              string   `json:"story"`
	Steps              []string `json:"steps"`
}

func (in AdminProductInput) toModel() model.Product {
	return model.Product{
		ID:                 in.ID,
		Name:               strings.TrimSpace(in.Name),
		Description:        in.Description,
		Price:              in.Price,
		OriginalPrice:      in.OriginalPrice,
		DiscountPercentage: in.DiscountPercentage,
		Stock:              in.Stock,
		Category:           strings.TrimSpace(in.Category),
		ImageURL:           strings.TrimSpace(in.ImageURL),
		Images:             in.Images,
		Rating:             in.Rating,
		RoastLevel:         in.RoastLevel,
		Story:              in.Story,
		Steps:              in.Steps,
	}
}

func validateProductInput(in AdminProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if in.Price <= 0 {
		return NewHTTPError(http.StatusBadRequest, "price must be > 0")
	}
	if in.Stock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	if in.OriginalPrice < 0 {
		return NewHTTPError(http.StatusBadRequest, "original_price must be >= 0")
	}
	if in.DiscountPercentage < 0 || in.DiscountPercentage > 100 {
		return NewHTTPError(http.StatusBadRequest, "discount_percentage must be 0..100")
	}
	return nil
}

// 一覧はリモートのみ（エラーはそのまま返す）
func (u *AdminProductUsecase) List(ctx context.Context) ([]model.Product, error) {
	ps, err := u.productRepo.ListAll(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrPermissionDenied) {
			return nil, NewHTTPError(http.StatusForbidden, "permission denied")
		}
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return ps, nil
}

func (u *AdminProductUsecase) Create(ctx context.Context, actor string, in AdminProductInput) (model.Product, error) {
	if actor == "" {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "id required")
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}
	p, _ := SanitizeProduct(in.toModel())

	var created model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		created, err = r.Products().Create(ctx, p)
		if errors.Is(err, repo.ErrDuplicate) {
			return NewHTTPError(http.StatusConflict, "product id already exists")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return u.audit(ctx, r, actor, model.AuditActionCreateProduct, created.ID, nil, created)
	})
	if err != nil {
		return model.Product{}, err
	}

	u.invalidate(ctx)
	return created, nil
}

func (u *AdminProductUsecase) Update(ctx context.Context, actor string, productID int64, in AdminProductInput) (model.Product, error) {
	if actor == "" {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := validateProductInput(in); err != nil {
		return model.Product{}, err
	}
	in.ID = productID
	p, _ := SanitizeProduct(in.toModel())

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		p.CreatedAt = before.CreatedAt
		p.UpdatedAt = time.Now()

		if err := r.Products().Update(ctx, p); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return u.audit(ctx, r, actor, model.AuditActionUpdateProduct, productID, before, p)
	})
	if err != nil {
		return model.Product{}, err
	}

	u.invalidate(ctx)
	return p, nil
}

// 物理削除
func (u *AdminProductUsecase) Delete(ctx context.Context, actor string, productID int64) error {
	if actor == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Products().Delete(ctx, productID); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return u.audit(ctx, r, actor, model.AuditActionDeleteProduct, productID, before, nil)
	})
	if err != nil {
		return err
	}

	u.invalidate(ctx)
	return nil
}

// 在庫の上書き。差分を履歴に残す
func (u *AdminProductUsecase) UpdateStock(ctx context.Context, actor string, productID int64, newStock int64, reason string) error {
	if actor == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	if strings.TrimSpace(reason) == "" {
		return NewHTTPError(http.StatusBadRequest, "reason required")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		p, err := r.Products().FindByID(ctx, productID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//履歴を作成（差分）
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			AdminUserID: actor,
			Delta:       newStock - p.Stock,
			Reason:      strings.TrimSpace(reason),
			CreatedAt:   time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return u.audit(ctx, r, actor, model.AuditActionUpdateStock, productID,
			map[string]int64{"stock": p.Stock}, map[string]int64{"stock": newStock})
	})
	if err != nil {
		return err
	}

	u.invalidate(ctx)
	return nil
}

type ImportReport struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Import は商品を取り込む（既存は空でない項目だけ上書き、無ければ作成）。
// products が空なら同梱の static リストを使う。
func (u *AdminProductUsecase) Import(ctx context.Context, actor string, products []model.Product) (ImportReport, error) {
	if actor == "" {
		return ImportReport{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(products) == 0 {
		products = u.fallback
	}

	var rep ImportReport
	for _, in := range products {
		p, ok := SanitizeProduct(in)
		if !ok {
			rep.Skipped++
			continue
		}

		existing, err := u.productRepo.FindByID(ctx, p.ID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			if _, err := u.productRepo.Create(ctx, p); err != nil {
				rep.Failed++
				rep.Errors = append(rep.Errors, fmt.Sprintf("insert %d: %v", p.ID, err))
				continue
			}
			rep.Inserted++
		case err != nil:
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Sprintf("lookup %d: %v", p.ID, err))
		default:
			if err := u.productRepo.Update(ctx, mergeProduct(existing, in)); err != nil {
				rep.Failed++
				rep.Errors = append(rep.Errors, fmt.Sprintf("update %d: %v", p.ID, err))
				continue
			}
			rep.Updated++
		}
	}

	u.log.Info("admin: products imported",
		"inserted", rep.Inserted, "updated", rep.Updated, "skipped", rep.Skipped, "failed", rep.Failed)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return u.audit(ctx, r, actor, model.AuditActionImportProducts, 0, nil, rep)
	})
	if err != nil {
		u.log.Warn("admin: import audit failed", "err", err)
	}

	u.invalidate(ctx)
	return rep, nil
}

// 取り込み側の空でない項目で上書き
func mergeProduct(dst model.Product, src model.Product) model.Product {
	if s := strings.TrimSpace(src.Name); s != "" {
		dst.Name = s
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.Price > 0 {
		dst.Price = src.Price
	}
	if src.OriginalPrice > 0 {
		dst.OriginalPrice = src.OriginalPrice
	}
	if src.DiscountPercentage > 0 {
		dst.DiscountPercentage = src.DiscountPercentage
	}
	if src.Stock > 0 {
		dst.Stock = src.Stock
	}
	if src.Category != "" {
		dst.Category = src.Category
	}
	if src.ImageURL != "" {
		dst.ImageURL = src.ImageURL
	}
	if len(src.Images) > 0 {
		dst.Images = src.Images
	}
	if src.Rating > 0 {
		dst.Rating = src.Rating
	}
	if src.RoastLevel != "" {
		dst.RoastLevel = src.RoastLevel
	}
	if src.Story != "" {
		dst.Story = src.Story
	}
	if len(src.Steps) > 0 {
		dst.Steps = src.Steps
	}
	dst.UpdatedAt = time.Now()
	return dst
}

type CheckResult struct {
	OK    bool   `json:"ok"`
	Count int64  `json:"count,omitempty"`
	Error string `json:"error,omitempty"`
}

type DebugReport struct {
	Database      CheckResult `json:"database"`
	ProductsTable CheckResult `json:"products_table"`
	Procedure     CheckResult `json:"procedure"`
	Cache         *CacheStats `json:"cache,omitempty"`
	Catalog       InitReport  `json:"catalog"`
}

// 接続診断。失敗しても各項目に理由を入れて返す
func (u *AdminProductUsecase) DebugConnection(ctx context.Context) DebugReport {
	var rep DebugReport

	if err := u.db.Ping(ctx); err != nil {
		rep.Database.Error = err.Error()
	} else {
		rep.Database.OK = true
	}

	if n, err := u.productRepo.Count(ctx); err != nil {
		rep.ProductsTable.Error = err.Error()
	} else {
		rep.ProductsTable = CheckResult{OK: true, Count: n}
	}

	if ps, err := u.productRepo.ListAllViaProcedure(ctx); err != nil {
		rep.Procedure.Error = err.Error()
	} else {
		rep.Procedure = CheckResult{OK: true, Count: int64(len(ps))}
	}

	if u.cacheStats != nil {
		st := u.cacheStats.Stats()
		rep.Cache = &st
	}
	rep.Catalog = u.catalog.InitState()
	return rep
}

func (u *AdminProductUsecase) audit(ctx context.Context, r repo.TxRepos, actor string, action model.AuditAction, id int64, before, after any) error {
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   id,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 書き込み後は必ずキャッシュを捨てる（失敗はログのみ）
func (u *AdminProductUsecase) invalidate(ctx context.Context) {
	if err := u.catalog.InvalidateCache(ctx); err != nil {
		u.log.Warn("admin: catalog invalidate failed", "err", err)
	}
}

func toJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
