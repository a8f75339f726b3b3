package model

// リクエスト単位のカート所有者。
// IDはゲストセッションID（cookie）、UserIDは認証済みなら入る。
type Session struct {
	ID     string
	UserID string
	Email  string
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// セッションに紐づくローカルカート状態（LocalCartStoreに保存）。
type LocalCart struct {
	// ログイン中のユーザー（未ログインなら空）
	BoundUserID string `json:"bound_user_id"`

	// ゲストとして積んだカート。ログアウト時に戻る
	Guest []CartItem `json:"guest"`

	// ログイン中の手元の状態。リモートの写し
	Working []CartItem `json:"working"`
}
