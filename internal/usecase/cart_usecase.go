package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/pricing"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
)

// カート結果の同期状態
type SyncState string

const (
	SyncGuest     SyncState = "guest"
	SyncSynced    SyncState = "synced"
	SyncLocalOnly SyncState = "local_only"
)

const reasonRemoteUnavailable = "remote cart unavailable"

type SyncStatus struct {
	State  SyncState `json:"state"`
	Reason string    `json:"reason,omitempty"`
}

type CartResult struct {
	Items      []model.CartItem `json:"items"`
	TotalItems int64            `json:"total_items"`
	Subtotal   int64            `json:"subtotal"`
	Sync       SyncStatus       `json:"sync"`
}

// セッションごとのローカルカート置き場
type LocalCartStore interface {
	Load(ctx context.Context, sessionID string) (model.LocalCart, error)
	Save(ctx context.Context, sessionID string, cart model.LocalCart) error
}

// カートに入れる商品の解決（カタログのフォールバック込み）
type ProductLookup interface {
	GetProductByID(ctx context.Context, id int64) (model.Product, string, error)
}

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

type CartOptions struct {
	LoginPolicy config.CartLoginPolicy
	DedupWindow time.Duration
}

// CartUsecase はゲスト（ローカル）と認証済み（リモート）のカートを扱う。
// リモートが落ちていてもローカルで続け、結果に local_only を載せる。
type CartUsecase struct {
	cartItemRepo repo.CartItemRepository
	products     ProductLookup
	store        LocalCartStore
	ids          IDGenerator
	clock        Clock
	opts         CartOptions
	log          *slog.Logger

	locks sessionLocks

	dedupMu sync.Mutex
	recent  map[string]recentAdd
}

type recentAdd struct {
	at   time.Time
	qty  int64
	sync SyncStatus
}

// DI
func NewCartUsecase(
	cartItemRepo repo.CartItemRepository,
	products ProductLookup,
	store LocalCartStore,
	ids IDGenerator,
	clock Clock,
	opts CartOptions,
	log *slog.Logger,
) *CartUsecase {
	if opts.LoginPolicy == "" {
		opts.LoginPolicy = config.CartLoginReplace
	}
	return &CartUsecase{
		cartItemRepo: cartItemRepo,
		products:     products,
		store:        store,
		ids:          ids,
		clock:        clock,
		opts:         opts,
		log:          log,
		recent:       map[string]recentAdd{},
	}
}

// 1リクエスト分の作業状態
type cartTx struct {
	s     model.Session
	local model.LocalCart
	sync  SyncStatus
}

func (t *cartTx) items() []model.CartItem {
	if t.s.Authenticated() {
		return t.local.Working
	}
	return t.local.Guest
}

func (t *cartTx) setItems(items []model.CartItem) {
	if t.s.Authenticated() {
		t.local.Working = items
		return
	}
	t.local.Guest = items
}

func (t *cartTx) localOnly(reason string) {
	t.sync = SyncStatus{State: SyncLocalOnly, Reason: reason}
}

// 取得（認証済みはリモートで手元を上書き）
func (u *CartUsecase) GetCart(ctx context.Context, s model.Session) (CartResult, error) {
	return u.run(ctx, s, func(t *cartTx) error {
		if t.s.Authenticated() {
			u.pullRemote(ctx, t)
		}
		return nil
	})
}

// 追加（同一商品は数量加算）
func (u *CartUsecase) AddItem(ctx context.Context, s model.Session, productID int64, quantity int64) (CartResult, error) {
	if productID <= 0 {
		return CartResult{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if quantity < 1 {
		quantity = 1
	}

	return u.run(ctx, s, func(t *cartTx) error {
		if st, ok := u.isDuplicateAdd(s.ID, productID, quantity); ok {
			t.sync = st
			return nil
		}

		p, _, err := u.products.GetProductByID(ctx, productID)
		if err != nil {
			return err
		}

		if t.s.Authenticated() {
			row, err := u.cartItemRepo.UpsertByUserAndProduct(ctx, t.s.UserID, productID, quantity, u.ids.NewID())
			if err != nil {
				u.log.Warn("cart: remote add failed", "user_id", t.s.UserID, "product_id", productID, "err", err)
				t.localOnly(reasonRemoteUnavailable)
				t.setItems(addLocal(t.items(), p, quantity, u.ids.NewID(), t.s.UserID, u.clock.Now()))
			} else {
				if row.Product == nil {
					row.Product = &p
				}
				t.setItems(putLocal(t.items(), row))
			}
		} else {
			t.setItems(addLocal(t.items(), p, quantity, u.ids.NewID(), "", u.clock.Now()))
		}

		u.rememberAdd(s.ID, productID, quantity, t.sync)
		return nil
	})
}

// 削除（所有者のもののみ）
func (u *CartUsecase) RemoveItem(ctx context.Context, s model.Session, itemID string) (CartResult, error) {
	if itemID == "" {
		return CartResult{}, NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	return u.run(ctx, s, func(t *cartTx) error {
		if t.s.Authenticated() {
			err := u.cartItemRepo.DeleteByID(ctx, t.s.UserID, itemID)
			// リモートに無い（オフライン中に積んだ）明細は手元だけ消す
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				u.log.Warn("cart: remote remove failed", "user_id", t.s.UserID, "item_id", itemID, "err", err)
				t.localOnly(reasonRemoteUnavailable)
			}
		}
		t.setItems(removeLocal(t.items(), itemID))
		return nil
	})
}

// 数量変更（加算ではなく上書き。0以下は削除）
func (u *CartUsecase) UpdateQuantity(ctx context.Context, s model.Session, itemID string, quantity int64) (CartResult, error) {
	if quantity <= 0 {
		return u.RemoveItem(ctx, s, itemID)
	}
	if itemID == "" {
		return CartResult{}, NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	return u.run(ctx, s, func(t *cartTx) error {
		if t.s.Authenticated() {
			err := u.cartItemRepo.UpdateQuantity(ctx, t.s.UserID, itemID, quantity)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				u.log.Warn("cart: remote update failed", "user_id", t.s.UserID, "item_id", itemID, "err", err)
				t.localOnly(reasonRemoteUnavailable)
			}
		}
		t.setItems(setLocalQuantity(t.items(), itemID, quantity))
		return nil
	})
}

func (u *CartUsecase) ClearCart(ctx context.Context, s model.Session) (CartResult, error) {
	return u.run(ctx, s, func(t *cartTx) error {
		if t.s.Authenticated() {
			if err := u.cartItemRepo.DeleteAllByUserID(ctx, t.s.UserID); err != nil {
				u.log.Warn("cart: remote clear failed", "user_id", t.s.UserID, "err", err)
				t.localOnly(reasonRemoteUnavailable)
			}
		}
		t.setItems(nil)
		return nil
	})
}

// Login はログイン遷移を明示的に走らせる（通常は次のリクエストで自動）。
func (u *CartUsecase) Login(ctx context.Context, s model.Session) (CartResult, error) {
	if !s.Authenticated() {
		return CartResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.run(ctx, s, func(t *cartTx) error { return nil })
}

// Logout は手元の状態を捨ててゲストカートに戻す。
func (u *CartUsecase) Logout(ctx context.Context, sessionID string) (CartResult, error) {
	return u.run(ctx, model.Session{ID: sessionID}, func(t *cartTx) error { return nil })
}

// run はセッションをロックし、ロード→遷移→操作→保存を行う。
func (u *CartUsecase) run(ctx context.Context, s model.Session, op func(t *cartTx) error) (CartResult, error) {
	if s.ID == "" {
		return CartResult{}, NewHTTPError(http.StatusBadRequest, "session required")
	}

	unlock := u.locks.lock(s.ID)
	defer unlock()

	local, err := u.store.Load(ctx, s.ID)
	if err != nil {
		u.log.Error("cart: load local cart failed", "session_id", s.ID, "err", err)
		return CartResult{}, NewHTTPError(http.StatusInternalServerError, "cart store error")
	}

	t := &cartTx{s: s, local: local, sync: SyncStatus{State: SyncGuest}}
	if s.Authenticated() {
		t.sync = SyncStatus{State: SyncSynced}
	}

	u.transition(ctx, t)

	if err := op(t); err != nil {
		return CartResult{}, err
	}

	if err := u.store.Save(ctx, s.ID, t.local); err != nil {
		u.log.Error("cart: save local cart failed", "session_id", s.ID, "err", err)
		return CartResult{}, NewHTTPError(http.StatusInternalServerError, "cart store error")
	}

	return buildCartResult(t.items(), t.sync), nil
}

// transition はセッションの紐づけユーザーが変わったときの遷移。
// ログアウト: 手元を捨てる（ゲストカートはストアに残っている）
// ログイン: ポリシーに従ってゲストを統合し、リモートで手元を作り直す
func (u *CartUsecase) transition(ctx context.Context, t *cartTx) {
	if t.local.BoundUserID == t.s.UserID {
		return
	}

	if t.local.BoundUserID != "" {
		u.log.Info("cart: session logged out", "session_id", t.s.ID, "user_id", t.local.BoundUserID)
		t.local.Working = nil
		t.local.BoundUserID = ""
	}
	if !t.s.Authenticated() {
		return
	}

	u.log.Info("cart: session logged in", "session_id", t.s.ID, "user_id", t.s.UserID, "policy", u.opts.LoginPolicy)
	t.local.BoundUserID = t.s.UserID

	if u.opts.LoginPolicy == config.CartLoginMerge && len(t.local.Guest) > 0 {
		u.mergeGuest(ctx, t)
	}
	u.pullRemote(ctx, t)
}

// ゲスト明細をリモートへ加算。全部入ったらゲストカートを空にする
func (u *CartUsecase) mergeGuest(ctx context.Context, t *cartTx) {
	var left []model.CartItem
	for _, it := range t.local.Guest {
		if _, err := u.cartItemRepo.UpsertByUserAndProduct(ctx, t.s.UserID, it.ProductID, it.Quantity, u.ids.NewID()); err != nil {
			u.log.Warn("cart: merge guest item failed", "user_id", t.s.UserID, "product_id", it.ProductID, "err", err)
			left = append(left, it)
		}
	}
	t.local.Guest = left
	if len(left) > 0 {
		t.localOnly("guest cart merge incomplete")
	}
}

func (u *CartUsecase) pullRemote(ctx context.Context, t *cartTx) {
	items, err := u.cartItemRepo.ListByUserID(ctx, t.s.UserID)
	if err != nil {
		u.log.Warn("cart: remote read failed", "user_id", t.s.UserID, "err", err)
		t.localOnly(reasonRemoteUnavailable)
		return
	}
	t.local.Working = items
}

// 窓内に同じ商品・同じ数量の追加があれば二重送信とみなす（DedupWindow 0 なら無効）
func (u *CartUsecase) isDuplicateAdd(sessionID string, productID int64, qty int64) (SyncStatus, bool) {
	if u.opts.DedupWindow <= 0 {
		return SyncStatus{}, false
	}
	u.dedupMu.Lock()
	defer u.dedupMu.Unlock()

	r, ok := u.recent[dedupKey(sessionID, productID)]
	if !ok || r.qty != qty || u.clock.Now().Sub(r.at) >= u.opts.DedupWindow {
		return SyncStatus{}, false
	}
	return r.sync, true
}

func (u *CartUsecase) rememberAdd(sessionID string, productID int64, qty int64, st SyncStatus) {
	if u.opts.DedupWindow <= 0 {
		return
	}
	u.dedupMu.Lock()
	defer u.dedupMu.Unlock()

	now := u.clock.Now()
	for k, r := range u.recent {
		if now.Sub(r.at) >= u.opts.DedupWindow {
			delete(u.recent, k)
		}
	}
	u.recent[dedupKey(sessionID, productID)] = recentAdd{at: now, qty: qty, sync: st}
}

func dedupKey(sessionID string, productID int64) string {
	return sessionID + "|" + strconv.FormatInt(productID, 10)
}

func buildCartResult(items []model.CartItem, st SyncStatus) CartResult {
	out := make([]model.CartItem, len(items))
	copy(out, items)
	return CartResult{
		Items:      out,
		TotalItems: pricing.TotalItems(out),
		Subtotal:   pricing.Subtotal(out),
		Sync:       st,
	}
}

// 同じ商品があれば加算、無ければ末尾に追加
func addLocal(items []model.CartItem, p model.Product, qty int64, id string, userID string, now time.Time) []model.CartItem {
	out := make([]model.CartItem, len(items), len(items)+1)
	copy(out, items)
	for i := range out {
		if out[i].ProductID == p.ID {
			out[i].Quantity += qty
			out[i].Product = &p
			return out
		}
	}

	it := model.CartItem{
		ID:        id,
		ProductID: p.ID,
		Quantity:  qty,
		CreatedAt: now,
		Product:   &p,
	}
	if userID != "" {
		it.UserID = &userID
	}
	return append(out, it)
}

// リモートの行で手元を上書き（同じ商品の明細を置き換える）
func putLocal(items []model.CartItem, row model.CartItem) []model.CartItem {
	out := make([]model.CartItem, 0, len(items)+1)
	replaced := false
	for _, it := range items {
		if it.ProductID == row.ProductID {
			if !replaced {
				out = append(out, row)
				replaced = true
			}
			continue
		}
		out = append(out, it)
	}
	if !replaced {
		out = append(out, row)
	}
	return out
}

func removeLocal(items []model.CartItem, itemID string) []model.CartItem {
	out := make([]model.CartItem, 0, len(items))
	for _, it := range items {
		if it.ID != itemID {
			out = append(out, it)
		}
	}
	return out
}

func setLocalQuantity(items []model.CartItem, itemID string, qty int64) []model.CartItem {
	out := make([]model.CartItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == itemID {
			out[i].Quantity = qty
		}
	}
	return out
}

// セッションIDごとのロック（参照カウントで使い終わったら消す）
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = map[string]*sessionLock{}
	}
	e, ok := l.m[id]
	if !ok {
		e = &sessionLock{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
