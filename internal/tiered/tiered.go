// Package tiered は「上から順に試して最初に取れた値を返す」読み取りをまとめる。
package tiered

import (
	"context"
	"errors"
	"fmt"
)

// ErrExhausted はすべての段が失敗 or 空だったことを表す。
var ErrExhausted = errors.New("tiered: all tiers exhausted")

// errEmpty は値は取れたが空だった段の記録用。
var errEmpty = errors.New("empty result")

// Tier は読み取り元1段分。
type Tier[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// Result はどの段から取れたか、途中で捨てた段の理由を持つ。
type Result[T any] struct {
	Value  T
	Source string
	Misses []Miss
}

type Miss struct {
	Tier string
	Err  error
}

// Read は tiers を順に呼び、エラーでも空でもない最初の値を返す。
// isEmpty が nil の場合、エラーでなければ採用する。
// すべて外れた場合は ErrExhausted（各段の理由をjoinしたもの）を返す。
func Read[T any](ctx context.Context, isEmpty func(T) bool, tiers ...Tier[T]) (Result[T], error) {
	var res Result[T]
	errs := []error{ErrExhausted}

	for _, t := range tiers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		v, err := t.Fetch(ctx)
		if err == nil && isEmpty != nil && isEmpty(v) {
			err = errEmpty
		}
		if err != nil {
			res.Misses = append(res.Misses, Miss{Tier: t.Name, Err: err})
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}

		res.Value = v
		res.Source = t.Name
		return res, nil
	}

	return res, errors.Join(errs...)
}

// Static は固定値を返す段を作る。
func Static[T any](name string, v T) Tier[T] {
	return Tier[T]{
		Name:  name,
		Fetch: func(context.Context) (T, error) { return v, nil },
	}
}

// EmptySlice はスライス用の isEmpty。
func EmptySlice[E any](v []E) bool {
	return len(v) == 0
}
