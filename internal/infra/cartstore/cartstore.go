// Package cartstore はセッションごとのローカルカートを保存する。
// ブラウザのlocalStorageの代わりに、固定プレフィックスのキーへJSONで置く。
package cartstore

// KeyPrefix はセッションカートのキー
const KeyPrefix = "boring-coffee-cart:"

func key(sessionID string) string {
	return KeyPrefix + sessionID
}
