package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/tiered"
)

// 取得元（X-Catalog-Source）
const (
	SourceRemote = "remote"
	SourceCache  = "cache"
	SourceStatic = "static"
)

// 既定のおすすめ件数
const DefaultRecommendedLimit = 4

// まとめたリモート読み取りの上限
const remoteFetchTimeout = 10 * time.Second

var errCacheMiss = errors.New("cache miss")

// CatalogCache は最後に取れたリモートの商品一覧を持つ。
type CatalogCache interface {
	Get(ctx context.Context) ([]model.Product, bool, error)
	Set(ctx context.Context, products []model.Product) error
	Invalidate(ctx context.Context) error
}

// キャッシュのヒット率（診断用）
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
}

// 初期化の結果（診断用）
type InitReport struct {
	Attempted  bool      `json:"attempted"`
	Seeded     int       `json:"seeded"`
	Warmed     int       `json:"warmed"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// CatalogUsecase は remote → cache → static の順で商品を返す。
// リモートの失敗は呼び出し側に返さない。
type CatalogUsecase struct {
	productRepo repo.ProductRepository
	cache       CatalogCache
	fallback    []model.Product
	log         *slog.Logger

	group singleflight.Group

	initMu   sync.Mutex
	initDone bool
	initRep  InitReport
	// 権限エラーのログは初期化1回につき1度だけ
	deniedLogged atomic.Bool
}

// DI
func NewCatalogUsecase(
	productRepo repo.ProductRepository,
	cache CatalogCache,
	fallback []model.Product,
	log *slog.Logger,
) *CatalogUsecase {
	return &CatalogUsecase{
		productRepo: productRepo,
		cache:       cache,
		fallback:    SanitizeProducts(fallback),
		log:         log,
	}
}

// 全件
func (u *CatalogUsecase) GetAllProducts(ctx context.Context) ([]model.Product, string) {
	res, err := tiered.Read(ctx, tiered.EmptySlice[model.Product],
		tiered.Tier[[]model.Product]{Name: SourceRemote, Fetch: u.fetchRemoteAll},
		tiered.Tier[[]model.Product]{Name: SourceCache, Fetch: u.fetchCache},
		tiered.Static(SourceStatic, u.staticProducts()),
	)
	u.logMisses(res.Misses)
	if err != nil {
		// ctxキャンセル等で static まで届かなかった
		return u.staticProducts(), SourceStatic
	}
	return res.Value, res.Source
}

func (u *CatalogUsecase) GetProductByID(ctx context.Context, id int64) (model.Product, string, error) {
	if id <= 0 {
		return model.Product{}, "", NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	notFound := func(p model.Product) bool { return p.ID == 0 }
	res, err := tiered.Read(ctx, notFound,
		tiered.Tier[model.Product]{Name: SourceRemote, Fetch: func(ctx context.Context) (model.Product, error) {
			p, err := u.productRepo.FindByID(ctx, id)
			if err != nil {
				return model.Product{}, err
			}
			p, _ = SanitizeProduct(p)
			return p, nil
		}},
		tiered.Tier[model.Product]{Name: SourceCache, Fetch: func(ctx context.Context) (model.Product, error) {
			ps, err := u.fetchCache(ctx)
			if err != nil {
				return model.Product{}, err
			}
			return findProduct(ps, id), nil
		}},
		tiered.Static(SourceStatic, findProduct(u.fallback, id)),
	)
	u.logMisses(res.Misses)
	if err != nil {
		if p := findProduct(u.fallback, id); p.ID != 0 {
			return p, SourceStatic, nil
		}
		return model.Product{}, "", NewHTTPError(http.StatusNotFound, "not found")
	}
	return res.Value, res.Source, nil
}

func (u *CatalogUsecase) GetProductsByCategory(ctx context.Context, category string) ([]model.Product, string) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return u.GetAllProducts(ctx)
	}
	match := func(p model.Product) bool { return strings.ToLower(p.Category) == category }

	return u.readFiltered(ctx, match, func(ctx context.Context) ([]model.Product, error) {
		return u.productRepo.ListByCategory(ctx, category)
	})
}

// name/description/category の部分一致（大小無視）
func (u *CatalogUsecase) SearchProducts(ctx context.Context, q string) ([]model.Product, string) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return u.GetAllProducts(ctx)
	}
	match := func(p model.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q)
	}

	return u.readFiltered(ctx, match, func(ctx context.Context) ([]model.Product, error) {
		return u.productRepo.Search(ctx, q)
	})
}

// 同じカテゴリ（自分以外）を優先し、足りなければ他の商品で埋める
func (u *CatalogUsecase) GetRecommendedProducts(ctx context.Context, productID int64, limit int) ([]model.Product, string) {
	if limit <= 0 {
		limit = DefaultRecommendedLimit
	}

	all, source := u.GetAllProducts(ctx)

	var category string
	for _, p := range all {
		if p.ID == productID {
			category = p.Category
			break
		}
	}

	out := make([]model.Product, 0, limit)
	for _, p := range all {
		if len(out) == limit {
			return out, source
		}
		if p.ID != productID && category != "" && p.Category == category {
			out = append(out, p)
		}
	}
	for _, p := range all {
		if len(out) == limit {
			break
		}
		if p.ID != productID && (category == "" || p.Category != category) {
			out = append(out, p)
		}
	}
	return out, source
}

// Initialize はリモートの疎通確認、空なら static で埋めてキャッシュを温める。
// 2回目以降は前回の結果を返す（ResetInitialization で再実行）。
func (u *CatalogUsecase) Initialize(ctx context.Context) InitReport {
	u.initMu.Lock()
	defer u.initMu.Unlock()

	if u.initDone {
		return u.initRep
	}
	u.initDone = true
	u.deniedLogged.Store(false)

	rep := u.initialize(ctx)
	rep.FinishedAt = time.Now()
	u.initRep = rep
	return rep
}

func (u *CatalogUsecase) initialize(ctx context.Context) InitReport {
	rep := InitReport{Attempted: true}

	n, err := u.productRepo.Count(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrPermissionDenied) {
			u.logDeniedOnce()
		} else {
			u.log.Warn("catalog: remote check failed", "err", err)
		}
		// count が拒否されても get_all_products() は読めることがある
		n = -1
	}

	if n == 0 {
		for _, p := range u.fallback {
			if _, err := u.productRepo.Create(ctx, p); err != nil {
				u.log.Warn("catalog: seed failed", "product_id", p.ID, "err", err)
				rep.Error = err.Error()
				continue
			}
			rep.Seeded++
		}
		u.log.Info("catalog: seeded remote store", "count", rep.Seeded)
	}

	ps, err := u.refresh(ctx)
	if err != nil {
		if rep.Error == "" {
			rep.Error = err.Error()
		}
		return rep
	}
	rep.Warmed = len(ps)
	return rep
}

func (u *CatalogUsecase) ResetInitialization() {
	u.initMu.Lock()
	defer u.initMu.Unlock()
	u.initDone = false
	u.initRep = InitReport{}
}

func (u *CatalogUsecase) InitState() InitReport {
	u.initMu.Lock()
	defer u.initMu.Unlock()
	return u.initRep
}

func (u *CatalogUsecase) InvalidateCache(ctx context.Context) error {
	if err := u.cache.Invalidate(ctx); err != nil {
		u.log.Warn("catalog: cache invalidate failed", "err", err)
		return NewHTTPError(http.StatusInternalServerError, "cache error")
	}
	return nil
}

// Refresh はキャッシュを捨ててリモートから読み直す（cron）。
func (u *CatalogUsecase) Refresh(ctx context.Context) error {
	if err := u.cache.Invalidate(ctx); err != nil {
		u.log.Warn("catalog: cache invalidate failed", "err", err)
	}
	ps, err := u.refresh(ctx)
	if err != nil {
		return err
	}
	u.log.Info("catalog: cache refreshed", "count", len(ps))
	return nil
}

func (u *CatalogUsecase) refresh(ctx context.Context) ([]model.Product, error) {
	ps, err := u.fetchRemoteAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, errors.New("remote catalog is empty")
	}
	return ps, nil
}

// 同時の全件読みは1回にまとめる。成功したらキャッシュへ。
// 共有の読み取りは呼び出し元のキャンセルに引きずられない（待つ側は自分のctxで抜ける）
func (u *CatalogUsecase) fetchRemoteAll(ctx context.Context) ([]model.Product, error) {
	ch := u.group.DoChan("all", func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), remoteFetchTimeout)
		defer cancel()

		ps, err := u.productRepo.ListAll(sctx)
		if err != nil {
			return nil, err
		}
		ps = SanitizeProducts(ps)
		if len(ps) > 0 {
			if err := u.cache.Set(sctx, ps); err != nil {
				u.log.Warn("catalog: cache set failed", "err", err)
			}
		}
		return ps, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return slices.Clone(r.Val.([]model.Product)), nil
	}
}

func (u *CatalogUsecase) fetchCache(ctx context.Context) ([]model.Product, error) {
	ps, ok, err := u.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errCacheMiss
	}
	return ps, nil
}

func (u *CatalogUsecase) staticProducts() []model.Product {
	return slices.Clone(u.fallback)
}

func (u *CatalogUsecase) readFiltered(
	ctx context.Context,
	match func(model.Product) bool,
	remote func(ctx context.Context) ([]model.Product, error),
) ([]model.Product, string) {
	res, err := tiered.Read(ctx, tiered.EmptySlice[model.Product],
		tiered.Tier[[]model.Product]{Name: SourceRemote, Fetch: func(ctx context.Context) ([]model.Product, error) {
			ps, err := remote(ctx)
			if err != nil {
				return nil, err
			}
			return SanitizeProducts(ps), nil
		}},
		tiered.Tier[[]model.Product]{Name: SourceCache, Fetch: func(ctx context.Context) ([]model.Product, error) {
			ps, err := u.fetchCache(ctx)
			if err != nil {
				return nil, err
			}
			return filterProducts(ps, match), nil
		}},
		tiered.Static(SourceStatic, filterProducts(u.fallback, match)),
	)
	u.logMisses(res.Misses)
	if err != nil {
		// どの段も空。static の結果（空）を返す
		return filterProducts(u.fallback, match), SourceStatic
	}
	return res.Value, res.Source
}

func (u *CatalogUsecase) logMisses(misses []tiered.Miss) {
	for _, m := range misses {
		if errors.Is(m.Err, repo.ErrPermissionDenied) {
			u.logDeniedOnce()
			continue
		}
		if errors.Is(m.Err, errCacheMiss) || m.Tier == SourceStatic {
			continue
		}
		u.log.Debug("catalog: tier skipped", "tier", m.Tier, "err", m.Err)
	}
}

func (u *CatalogUsecase) logDeniedOnce() {
	if u.deniedLogged.Swap(true) {
		return
	}
	u.log.Warn("catalog: remote store denied access; check row level security policies")
}

func findProduct(ps []model.Product, id int64) model.Product {
	for _, p := range ps {
		if p.ID == id {
			return p
		}
	}
	return model.Product{}
}

func filterProducts(ps []model.Product, match func(model.Product) bool) []model.Product {
	out := make([]model.Product, 0, len(ps))
	for _, p := range ps {
		if match(p) {
			out = append(out, p)
		}
	}
	return out
}
